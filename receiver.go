package ipc

import (
	"io"

	"github.com/dbcfd/packet-ipc/channel"
)

// A Receiver decodes the inbound half of a stream. Recv yields each batch
// in the order it was sent and returns io.EOF at, and after, the
// end-of-stream sentinel. A Receiver is not safe for concurrent use.
type Receiver struct {
	ch   channel.Channel
	done bool
}

// NewReceiver wraps an established channel in a Receiver. The channel must
// carry frames produced by a Link.
func NewReceiver(ch channel.Channel) *Receiver { return &Receiver{ch: ch} }

// Recv returns the next batch from the stream. An empty batch is returned
// as an empty, non-nil slice: it is a real frame, not an end-of-stream
// condition. Once the sentinel is observed Recv returns io.EOF forever.
//
// A channel that ends before the sentinel arrives is a truncated stream and
// reports a Protocol error, not io.EOF.
func (r *Receiver) Recv() ([]Packet, error) {
	if r.done {
		return nil, io.EOF
	}
	frame, err := r.ch.Recv()
	if err != nil {
		r.done = true
		r.ch.Close()
		if err == io.EOF {
			return nil, Errorf(Protocol, "stream truncated before end of stream")
		}
		return nil, Errorf(Transport, "recv frame: %w", err)
	}
	batch, ok, err := decodeFrame(frame)
	if err != nil {
		r.done = true
		r.ch.Close()
		return nil, err
	}
	if !ok {
		r.done = true
		r.ch.Close()
		return nil, io.EOF
	}
	return batch, nil
}

// Close tears the receiver down without waiting for the sentinel. Recv
// reports io.EOF afterward.
func (r *Receiver) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	return r.ch.Close()
}
