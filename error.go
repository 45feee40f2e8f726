package ipc

import (
	"errors"
	"fmt"
)

// A Kind classifies the failures this package reports.
type Kind int

const (
	// NoError denotes a nil error. It is never attached to an *Error.
	NoError Kind = iota

	// Resource marks an allocation failure: the endpoint's listening
	// primitive could not be created, or the endpoint was already spent.
	Resource

	// Protocol marks a malformed registration or wire frame. The affected
	// rendezvous or stream is dead; there is no resynchronization.
	Protocol

	// Transport marks a delivery failure on an established link. The link
	// is unusable and must be discarded; recovery means a fresh rendezvous.
	Transport
)

var kindNames = map[Kind]string{
	NoError:   "no error",
	Resource:  "resource error",
	Protocol:  "protocol error",
	Transport: "transport error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Error is the concrete type of errors reported by this package.
type Error struct {
	Kind    Kind
	Message string

	err error // wrapped cause, or nil
}

// Error satisfies the error interface.
func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Unwrap returns the underlying cause of e, if any.
func (e *Error) Unwrap() error { return e.err }

// Errorf constructs an *Error of the given kind with a message formatted by
// fmt.Errorf, so the %w verb records a cause that errors.Is and errors.As
// can observe through the result.
func Errorf(kind Kind, msg string, args ...interface{}) *Error {
	err := fmt.Errorf(msg, args...)
	return &Error{Kind: kind, Message: err.Error(), err: errors.Unwrap(err)}
}

// ErrorKind reports the kind of err: NoError if err is nil, the kind of the
// first *Error in its chain, or Transport for foreign errors, which can only
// reach a caller through the underlying transport.
func ErrorKind(err error) Kind {
	if err == nil {
		return NoError
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transport
}

// Sentinel errors reported for misuse of spent values. Both carry a kind
// and match with errors.Is.
var (
	// ErrServerUsed is reported by Server.Accept after the server has
	// already accepted, failed, or been closed.
	ErrServerUsed = &Error{Kind: Resource, Message: "server already accepted"}

	// ErrLinkClosed is reported by Link operations after Close, or after a
	// transport failure has rendered the link unusable.
	ErrLinkClosed = &Error{Kind: Transport, Message: "link is closed"}
)
