package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/entity"
)

var (
	ErrUnknownField     = errors.New("form: unknown field")
	ErrSubmitBlocked    = errors.New("form: submission blocked")
	ErrSubmitInProgress = errors.New("form: submission already in progress")
	ErrClosed           = errors.New("form: controller closed")
	ErrNameTaken        = errors.New("form: value already taken")
	ErrNoFetcher        = errors.New("form: no fetcher configured")
)

// UnverifiedMessage is shown when a uniqueness check could not complete.
const UnverifiedMessage = "Unable to validate right now. Please try again."

// FieldError is the error currently attached to a field.
type FieldError struct {
	Field   string
	Message string
	Source  ErrorSource
	Err     error
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BlockedError lists why Submit refused to call the mutator.
type BlockedError struct {
	Fields  []*FieldError
	Pending []string
}

func (e *BlockedError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Fields)+len(e.Pending))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	for _, name := range e.Pending {
		parts = append(parts, name+": check in progress")
	}
	sort.Strings(parts)
	return ErrSubmitBlocked.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *BlockedError) Unwrap() error { return ErrSubmitBlocked }

// Field returns the error for name, if any.
func (e *BlockedError) Field(name string) *FieldError {
	if e == nil {
		return nil
	}
	for _, f := range e.Fields {
		if f.Field == name {
			return f
		}
	}
	return nil
}

// SubmissionError wraps a failed create or update.
type SubmissionError struct {
	Entity entity.Type
	Op     string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("form: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
