package ipc

import "github.com/dbcfd/packet-ipc/channel"

// A Link is the established outbound half of a stream: an ordered sink for
// batches of packets, terminated by a single end-of-stream sentinel when it
// is closed. A Link is either open or closed, and every operation on a
// closed link fails with ErrLinkClosed.
//
// A Link must be owned by one logical sender at a time; its methods are not
// safe for concurrent use. The link keeps no buffer of its own: Send hands
// each frame straight to the transport, and a full transport manifests as
// Send taking longer, not as a distinct backpressure signal.
type Link struct {
	ch     channel.Channel
	closed bool
}

func newLink(ch channel.Channel) *Link { return &Link{ch: ch} }

// Ready reports whether the link can accept another batch. An open link is
// always ready; Ready never blocks.
func (l *Link) Ready() error {
	if l.closed {
		return ErrLinkClosed
	}
	return nil
}

// Send transmits one batch of packets, which the receiver observes as a
// single frame. An empty batch is valid and is delivered like any other.
// The link takes ownership of the batch; the caller must not retain it.
//
// If transmission fails the link is closed and must be discarded. Batches
// from earlier Send calls may or may not have been delivered; the protocol
// offers no partial-batch retry.
func (l *Link) Send(batch []Packet) error {
	if l.closed {
		return ErrLinkClosed
	}
	if err := l.ch.Send(encodeFrame(batch)); err != nil {
		l.closed = true
		l.ch.Close()
		return Errorf(Transport, "send batch: %w", err)
	}
	return nil
}

// Flush always succeeds on an open link. The link does no client-side
// buffering, so there is nothing to flush.
func (l *Link) Flush() error {
	if l.closed {
		return ErrLinkClosed
	}
	return nil
}

// Close transmits the end-of-stream sentinel and shuts the link down. The
// receiver is guaranteed to observe the sentinel after every batch sent
// before Close, and nothing after it. Close may be called exactly once.
func (l *Link) Close() error {
	if l.closed {
		return ErrLinkClosed
	}
	l.closed = true
	if err := l.ch.Send(endFrame); err != nil {
		l.ch.Close()
		return Errorf(Transport, "send end of stream: %w", err)
	}
	return l.ch.Close()
}
