package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/store/memory"
)

type failingStore struct {
	store.Store
	err   error
	calls int
}

func (f *failingStore) List(context.Context, entity.Type, store.Filter) ([]entity.Record, error) {
	f.calls++
	return nil, f.err
}

func testConfig() Config {
	return Config{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestStore_TransportFailuresOpenCircuit(t *testing.T) {
	next := &failingStore{err: store.Transport("list", entity.Category, errors.New("connection refused"))}
	s := Wrap(next, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.List(ctx, entity.Category, store.Filter{}); !store.IsTransport(err) {
			t.Fatalf("call %d: expected transport error, got %v", i, err)
		}
	}
	if s.State() != gobreaker.StateOpen {
		t.Fatalf("expected open circuit, got %v", s.State())
	}

	_, err := s.List(ctx, entity.Category, store.Filter{})
	if !store.IsTransport(err) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected fast failure wrapping ErrOpenState, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected open circuit to skip the backend, got %d calls", next.calls)
	}
}

func TestStore_RejectionsDoNotTrip(t *testing.T) {
	backend := memory.New(memory.WithRecords(entity.Record{ID: "c1", Type: entity.Category, Name: "Plumbing"}))
	s := Wrap(backend, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, entity.Category, entity.Payload{"name": "plumbing"})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("call %d: expected conflict, got %v", i, err)
		}
	}
	if _, err := s.Get(ctx, entity.Category, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed circuit, got %v", s.State())
	}

	rec, err := s.Create(ctx, entity.Category, entity.Payload{"name": "Cleaning"})
	if err != nil || rec.Name != "Cleaning" {
		t.Fatalf("expected create to pass through, got %+v %v", rec, err)
	}
}
