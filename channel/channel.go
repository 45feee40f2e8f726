// Package channel defines the byte-record transports the packet-ipc core
// rides on. A Channel moves opaque records between two endpoints in the
// order they were sent; it never interprets their contents.
package channel

import "io"

// A Channel represents the ability to transmit and receive opaque records in
// FIFO order. A Channel does not interpret the contents of a record. The
// methods of a Channel need not be safe for concurrent use.
type Channel interface {
	// Send transmits a record on the channel.
	Send([]byte) error

	// Recv returns the next available record from the channel. If no
	// further records will arrive, it returns io.EOF.
	Recv() ([]byte, error)

	// Close shuts down the channel, after which no further records may be
	// sent or received.
	Close() error
}

// A Framing converts a reader and a writer into a Channel with a particular
// record-framing discipline.
type Framing func(io.Reader, io.WriteCloser) Channel

// Pipe creates a pair of connected in-memory channels using the specified
// framing discipline. Pipe will panic if framing == nil.
func Pipe(framing Framing) (left, right Channel) {
	lr, rw := io.Pipe()
	rr, lw := io.Pipe()
	left = framing(lr, lw)
	right = framing(rr, rw)
	return
}
