// Package socket implements the one-shot rendezvous bootstrap over unix
// domain sockets. Listen advertises a freshly named socket path as the
// rendezvous identifier; Dial registers against one. The socket is removed
// as soon as the rendezvous is redeemed or abandoned, so an identifier can
// be dialed successfully at most once.
package socket

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dbcfd/packet-ipc/channel"
)

// registration is the record a dialer sends to redeem a rendezvous. The
// connection itself is the peer's handle; the marker keeps a stray process
// that happens onto the socket from being mistaken for a registration.
var registration = []byte("packet-ipc/1")

// ErrBadRegistration is reported when a peer's bootstrap record does not
// carry the expected registration marker.
var ErrBadRegistration = errors.New("malformed registration")

// Options control Listen and Dial. A nil *Options is ready to use.
type Options struct {
	// Framing selects the record framing applied to the socket stream.
	// Both endpoints must agree on it. If nil, channel.Varint is used.
	// A role-bound framing such as channel.Secure must be built with
	// channel.Initiator on the dialing side and channel.Responder on the
	// listening side.
	Framing channel.Framing

	// Dir is the directory the rendezvous socket is created in, used only
	// by Listen. If empty, the system temporary directory is used.
	Dir string
}

func (o *Options) framing() channel.Framing {
	if o == nil || o.Framing == nil {
		return channel.Varint
	}
	return o.Framing
}

func (o *Options) dir() string {
	if o == nil || o.Dir == "" {
		return os.TempDir()
	}
	return o.Dir
}

// A Listener is a one-shot rendezvous point bound to a unix socket. It
// redeems at most one registration; afterward, or once closed, its
// identifier can never be dialed again.
type Listener struct {
	lst     net.Listener
	path    string
	framing channel.Framing

	closeOnce sync.Once
	closeErr  error
}

// Listen binds a rendezvous socket under a fresh name and starts
// advertising it.
func Listen(opts *Options) (*Listener, error) {
	path := filepath.Join(opts.dir(), "pipc-"+uuid.NewString()+".sock")
	lst, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("bind rendezvous socket: %w", err)
	}
	return &Listener{lst: lst, path: path, framing: opts.framing()}, nil
}

// Name reports the rendezvous identifier: the socket path.
func (l *Listener) Name() string { return l.path }

// Redeem blocks until one peer dials the socket and delivers a valid
// registration record, and returns the peer's channel. Whatever the
// outcome, the socket stops accepting and is unlinked: the identifier is
// spent. A registration without the expected marker fails with an error
// wrapping ErrBadRegistration.
func (l *Listener) Redeem() (channel.Channel, error) {
	conn, err := l.lst.Accept()
	l.Close()
	if err != nil {
		return nil, fmt.Errorf("await registration: %w", err)
	}
	ch := l.framing(conn, conn)
	rec, err := ch.Recv()
	if err != nil {
		// The peer connected but never delivered a decodable registration.
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadRegistration, err)
	}
	if !bytes.Equal(rec, registration) {
		conn.Close()
		return nil, fmt.Errorf("%w: %q", ErrBadRegistration, rec)
	}
	return ch, nil
}

// Close abandons the rendezvous and unlinks the socket. It is safe to call
// more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() { l.closeErr = l.lst.Close() })
	return l.closeErr
}

// Dial registers against the rendezvous identifier name and returns the
// channel the remote link's frames will arrive on. At most one Dial per
// identifier ever succeeds; dialing a redeemed, abandoned, or never-issued
// identifier fails.
func Dial(name string, opts *Options) (channel.Channel, error) {
	conn, err := net.Dial("unix", name)
	if err != nil {
		return nil, fmt.Errorf("dial rendezvous: %w", err)
	}
	ch := opts.framing()(conn, conn)
	if err := ch.Send(registration); err != nil {
		ch.Close()
		return nil, fmt.Errorf("send registration: %w", err)
	}
	return ch, nil
}
