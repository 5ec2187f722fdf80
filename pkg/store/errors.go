package store

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/entity"
)

var (
	// ErrNotFound reports that the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict marks a rejection caused by an existing record, such as a
	// duplicate name.
	ErrConflict = errors.New("store: conflicting record")
	// ErrInvalid marks a rejection caused by the payload itself.
	ErrInvalid = errors.New("store: invalid payload")
)

// RejectedError is a validation rejection from the store. Field names the
// offending column when the store could tell.
type RejectedError struct {
	Entity entity.Type
	Field  string
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e == nil {
		return ""
	}
	msg := "store: " + string(e.Entity)
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += " rejected"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *RejectedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Conflict builds a RejectedError wrapping ErrConflict.
func Conflict(t entity.Type, field, reason string) *RejectedError {
	return &RejectedError{Entity: t, Field: field, Reason: reason, Err: ErrConflict}
}

// Invalid builds a RejectedError wrapping ErrInvalid.
func Invalid(t entity.Type, field, reason string) *RejectedError {
	return &RejectedError{Entity: t, Field: field, Reason: reason, Err: ErrInvalid}
}

// TransportError reports a failure reaching or talking to the backing store.
type TransportError struct {
	Op     string
	Entity entity.Type
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transport wraps err as a TransportError unless it is already classified as
// a rejection, a transport failure or ErrNotFound.
func Transport(op string, t entity.Type, err error) error {
	if err == nil {
		return nil
	}
	if IsTransport(err) || errors.Is(err, ErrNotFound) {
		return err
	}
	if _, ok := IsRejected(err); ok {
		return err
	}
	return &TransportError{Op: op, Entity: t, Err: err}
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsRejected returns the RejectedError carried by err, if any.
func IsRejected(err error) (*RejectedError, bool) {
	var target *RejectedError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
