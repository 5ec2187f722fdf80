package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Config holds the circuit breaker tuning.
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig(c.Name)
	if c.Name == "" {
		c.Name = "store"
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = def.MaxRequests
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	return c
}

// Store guards a store.Store with a circuit breaker. Only transport failures
// count against the circuit; rejections and missing records pass through
// untouched. While the circuit is open every call fails fast with a
// store.TransportError wrapping gobreaker.ErrOpenState.
type Store struct {
	next   store.Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Wrap decorates next. A nil logger is replaced with a no-op logger.
func Wrap(next store.Store, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalized()
	s := &Store{next: next, logger: logger}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !store.IsTransport(err) || errors.Is(err, context.Canceled)
		},
	})
	return s
}

// State reports the current circuit state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

func (s *Store) List(ctx context.Context, t entity.Type, filter store.Filter) ([]entity.Record, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.List(ctx, t, filter)
	})
	if err != nil {
		return nil, s.wrap("list", t, err)
	}
	records, _ := out.([]entity.Record)
	return records, nil
}

func (s *Store) Get(ctx context.Context, t entity.Type, id string) (entity.Record, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Get(ctx, t, id)
	})
	if err != nil {
		return entity.Record{}, s.wrap("get", t, err)
	}
	rec, _ := out.(entity.Record)
	return rec, nil
}

func (s *Store) Create(ctx context.Context, t entity.Type, payload entity.Payload) (entity.Record, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Create(ctx, t, payload)
	})
	if err != nil {
		return entity.Record{}, s.wrap("create", t, err)
	}
	rec, _ := out.(entity.Record)
	return rec, nil
}

func (s *Store) Update(ctx context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Update(ctx, t, id, payload)
	})
	if err != nil {
		return entity.Record{}, s.wrap("update", t, err)
	}
	rec, _ := out.(entity.Record)
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, t entity.Type, id string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Delete(ctx, t, id)
	})
	if err != nil {
		return s.wrap("delete", t, err)
	}
	return nil
}

func (s *Store) wrap(op string, t entity.Type, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug("circuit breaker rejected call",
			zap.String("op", op),
			zap.String("entity", string(t)),
			zap.Error(err),
		)
		return &store.TransportError{Op: op, Entity: t, Err: err}
	}
	return err
}
