package session

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a mutating call starts while another one on
	// the same session is still outstanding.
	ErrBusy = errors.New("session busy: a mutation is already in flight")

	// ErrClosed is returned by calls on a closed session.
	ErrClosed = errors.New("session closed")
)

// TransportError reports a failure to learn the outcome of a call.
//
// Unlike a calculation error, a transport error does not mean the stack is
// unchanged: the remote mutation may or may not have been applied.
type TransportError struct {
	// Op is the primitive that failed ("state", "push", "apply", "clear").
	Op string

	// Timeout is true when the caller stopped waiting.
	Timeout bool

	// StatusCode is the HTTP status for server-side failures, 0 otherwise.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timeout, outcome unknown: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: server error (status %d), outcome unknown: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: connection failed, outcome unknown: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTimeout returns true if err is a TransportError caused by a timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}
