package channel

import (
	"errors"
	"io"
)

// Direct returns a pair of connected in-memory channels that hand record
// buffers between goroutines with no framing or encoding. Records sent on
// one side are received by the other, and vice versa. Send copies the
// record, so the caller may reuse its buffer immediately; delivery is
// synchronous, rendezvousing each Send with a Recv on the far side.
func Direct() (left, right Channel) {
	lr := make(chan []byte)
	rl := make(chan []byte)
	left = &direct{send: lr, recv: rl}
	right = &direct{send: rl, recv: lr}
	return
}

type direct struct {
	send   chan<- []byte
	recv   <-chan []byte
	closed bool // this side has closed; the peer may still send
}

var errDirectClosed = errors.New("send on closed channel")

func (d *direct) Send(rec []byte) error {
	if d.closed {
		return errDirectClosed
	}
	cp := make([]byte, len(rec))
	copy(cp, rec)
	d.send <- cp
	return nil
}

func (d *direct) Recv() ([]byte, error) {
	rec, ok := <-d.recv
	if ok {
		return rec, nil
	}
	return nil, io.EOF
}

func (d *direct) Close() error {
	if !d.closed {
		d.closed = true
		close(d.send)
	}
	return nil
}
