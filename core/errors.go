package core

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityMismatch is returned when the WHO_AM_I register does
	// not report an MMA8452Q.
	ErrIdentityMismatch = errors.New("unexpected chip identity")

	// ErrInvalidArgument is returned for malformed arguments that are
	// rejected before any device interaction (buffer length < 2,
	// non-positive thresholds).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrClosed is returned when an operation is submitted after the
	// device has been closed.
	ErrClosed = errors.New("device closed")

	// ErrTimeout is returned when a bounded transaction wait expires.
	// The underlying bus call may still complete; the queue stays valid.
	ErrTimeout = errors.New("transaction timed out")
)

// TransportError wraps a bus read/write failure with the register
// operation that triggered it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
