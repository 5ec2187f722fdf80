package uniqueness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

var (
	// ErrUnverified reports that availability could not be determined. The
	// candidate is neither available nor taken.
	ErrUnverified = errors.New("uniqueness: unable to verify")
	// ErrEmptyCandidate rejects blank candidate values.
	ErrEmptyCandidate = errors.New("uniqueness: candidate is empty")
)

// Query describes one availability check. Column defaults to "name".
type Query struct {
	Entity     entity.Type
	Column     string
	Name       string
	ExcludeID  string
	ScopeField string
	ScopeValue string
}

// Checker answers availability queries through the data-fetch collaborator.
type Checker struct {
	fetcher store.Fetcher
	logger  *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Checker reading through fetcher.
func New(fetcher store.Fetcher, opts ...Option) *Checker {
	c := &Checker{fetcher: fetcher, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// CheckUnique reports whether q.Name is free. Values are compared trimmed and
// case-insensitively against existing records of the same entity type,
// skipping q.ExcludeID. When ScopeField is set only records sharing
// ScopeValue are considered. Transport failures return an error wrapping
// ErrUnverified and never a verdict.
func (c *Checker) CheckUnique(ctx context.Context, q Query) (bool, error) {
	if c == nil || c.fetcher == nil {
		return false, fmt.Errorf("%w: checker has no fetcher", ErrUnverified)
	}
	candidate := strings.TrimSpace(q.Name)
	if candidate == "" {
		return false, ErrEmptyCandidate
	}
	column := strings.TrimSpace(q.Column)
	if column == "" {
		column = "name"
	}

	filter := store.Filter{}
	if q.ScopeField == "category_id" {
		filter.CategoryID = q.ScopeValue
	}

	records, err := c.fetcher.List(ctx, q.Entity, filter)
	if err != nil {
		c.logger.Debug("uniqueness check failed",
			zap.String("entity", string(q.Entity)),
			zap.String("query", candidate),
			zap.Error(err),
		)
		return false, &UnverifiedError{Query: q, Err: err}
	}

	for _, rec := range records {
		if q.ExcludeID != "" && rec.ID == q.ExcludeID {
			continue
		}
		if q.ScopeField != "" && rec.Value(q.ScopeField) != q.ScopeValue {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rec.Value(column)), candidate) {
			c.logger.Debug("uniqueness conflict",
				zap.String("entity", string(q.Entity)),
				zap.String("query", candidate),
				zap.String("conflict_id", rec.ID),
			)
			return false, nil
		}
	}
	return true, nil
}

// UnverifiedError carries the failed query and its cause.
type UnverifiedError struct {
	Query Query
	Err   error
}

func (e *UnverifiedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("uniqueness: unable to verify %s %q: %v", e.Query.Entity, strings.TrimSpace(e.Query.Name), e.Err)
}

// Unwrap exposes both ErrUnverified and the cause to errors.Is.
func (e *UnverifiedError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrUnverified, e.Err}
}

// IsUnverified reports whether err means availability is unknown.
func IsUnverified(err error) bool {
	return errors.Is(err, ErrUnverified)
}
