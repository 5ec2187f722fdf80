package form

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/debounce"
	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/uniqueness"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// UniquenessChecker answers availability queries. *uniqueness.Checker
// satisfies it.
type UniquenessChecker interface {
	CheckUnique(ctx context.Context, q uniqueness.Query) (bool, error)
}

// Projection derives dependent field values after changed was set. It
// returns only the fields it wants to overwrite.
type Projection func(changed string, values map[string]string) map[string]string

// Assembler turns the submitted values into a store payload.
type Assembler func(values map[string]string) (entity.Payload, error)

// Listener receives a snapshot after every state change. Listeners are called
// one at a time and must not call back into the controller synchronously.
type Listener func(State)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Engine   *validation.Engine
	Checker  UniquenessChecker
	Mutator  store.Mutator
	Fetcher  store.Fetcher
	Notifier notify.Notifier
	Logger   *zap.Logger
	Clock    debounce.Clock
}

// Option customises a Controller.
type Option func(*Controller)

// WithProjection registers a derived-field projection.
func WithProjection(p Projection) Option {
	return func(c *Controller) {
		if p != nil {
			c.projections = append(c.projections, p)
		}
	}
}

// WithAssembler replaces the default trim-and-drop-blank assembler.
func WithAssembler(a Assembler) Option {
	return func(c *Controller) {
		if a != nil {
			c.assemble = a
		}
	}
}

// WithListener subscribes fn to state changes.
func WithListener(fn Listener) Option {
	return func(c *Controller) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

// OnSuccess registers the navigation hook run after a successful submit.
func OnSuccess(fn func(entity.Record)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onSuccess = fn
		}
	}
}

// WithDebounce overrides the rule set's uniqueness window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithEntityLabel sets the noun used in notifications ("Category").
func WithEntityLabel(label string) Option {
	return func(c *Controller) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			c.noun = trimmed
		}
	}
}

// DefaultAssembler trims every value and drops blanks.
func DefaultAssembler(values map[string]string) (entity.Payload, error) {
	payload := make(entity.Payload, len(values))
	for key, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		payload[key] = trimmed
	}
	return payload, nil
}
