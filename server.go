package ipc

import (
	"errors"
	"sync/atomic"

	"github.com/dbcfd/packet-ipc/channel"
	"github.com/dbcfd/packet-ipc/socket"
)

// A Bootstrap is the one-shot rendezvous capability a Server is built on:
// it advertises an identifier, receives exactly one peer registration
// against it, and yields an ordered outbound channel. Package socket
// provides the default implementation over unix domain sockets.
type Bootstrap interface {
	// Name reports the identifier peers register against. It is opaque to
	// this package and must be delivered to the peer verbatim.
	Name() string

	// Redeem blocks until exactly one peer has registered and returns the
	// resulting channel. A Bootstrap redeems at most one registration:
	// whether Redeem succeeds or fails, the identifier is spent.
	Redeem() (channel.Channel, error)

	// Close abandons the rendezvous. The identifier must never again be
	// redeemable.
	Close() error
}

// ServerOptions control the construction of a Server. A nil *ServerOptions
// is ready to use and selects the socket transport with its defaults.
type ServerOptions struct {
	// Bootstrap, if set, supplies the rendezvous transport. If nil, a unix
	// domain socket listener is created.
	Bootstrap Bootstrap

	// Socket configures the default socket transport. It is ignored when
	// Bootstrap is set.
	Socket *socket.Options
}

func (o *ServerOptions) bootstrap() (Bootstrap, error) {
	if o != nil && o.Bootstrap != nil {
		return o.Bootstrap, nil
	}
	var sopts *socket.Options
	if o != nil {
		sopts = o.Socket
	}
	lst, err := socket.Listen(sopts)
	if err != nil {
		return nil, err
	}
	return lst, nil
}

// A Server publishes a one-time rendezvous identifier and redeems it for a
// Link. Each Server yields at most one link; a failed or abandoned
// rendezvous permanently retires the identifier.
type Server struct {
	bs    Bootstrap
	spent atomic.Bool
}

// NewServer allocates a rendezvous endpoint. It reports a Resource error if
// the underlying listening primitive cannot be created.
func NewServer(opts *ServerOptions) (*Server, error) {
	bs, err := opts.bootstrap()
	if err != nil {
		return nil, Errorf(Resource, "create endpoint: %w", err)
	}
	return &Server{bs: bs}, nil
}

// Name reports the server's public rendezvous identifier, the string a peer
// uses to dial in. The identifier must reach exactly one peer; delivering
// it is the application's concern.
func (s *Server) Name() string { return s.bs.Name() }

// Accept blocks until exactly one peer registers against the identifier,
// and returns the Link the registration established. Accept is one-shot: a
// second call fails with ErrServerUsed, and after a failed Accept the
// server and its identifier are dead. A malformed registration is a
// Protocol error; a failure of the listening primitive itself is a
// Transport error.
//
// Accept has no timeout and no cancellation. A caller that needs a
// deadline must race Accept externally and discard the Server if the
// deadline wins; the identifier is unusable either way.
func (s *Server) Accept() (*Link, error) {
	if !s.spent.CompareAndSwap(false, true) {
		return nil, ErrServerUsed
	}
	ch, err := s.bs.Redeem()
	if err != nil {
		s.bs.Close()
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		if errors.Is(err, socket.ErrBadRegistration) {
			return nil, Errorf(Protocol, "accept registration: %w", err)
		}
		// The listening primitive itself failed; no registration was
		// decoded, well-formed or otherwise.
		return nil, Errorf(Transport, "accept: %w", err)
	}
	return newLink(ch), nil
}

// Close abandons the endpoint without redeeming it. The identifier can
// never again be dialed. Closing an already-spent server is a no-op.
func (s *Server) Close() error {
	if !s.spent.CompareAndSwap(false, true) {
		return nil
	}
	return s.bs.Close()
}

// Dial registers against the rendezvous identifier name over the socket
// transport and returns a Receiver for the stream it establishes. Options
// other than the socket defaults, or non-socket transports, require
// dialing the transport directly and wrapping the channel in NewReceiver.
func Dial(name string) (*Receiver, error) {
	ch, err := socket.Dial(name, nil)
	if err != nil {
		return nil, Errorf(Resource, "dial %q: %w", name, err)
	}
	return NewReceiver(ch), nil
}
