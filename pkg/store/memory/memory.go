package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRecords seeds the store. Records without an id receive a generated one.
func WithRecords(records ...entity.Record) Option {
	return func(s *Store) {
		s.seed = append(s.seed, records...)
	}
}

// Store keeps records in memory, in insertion order per entity type. It
// enforces the same uniqueness constraints as the persistent adapters.
type Store struct {
	mu     sync.RWMutex
	tables map[entity.Type][]entity.Record
	newID  func() string
	seed   []entity.Record
}

var _ store.Store = (*Store)(nil)

// New constructs an empty store, applying the provided options.
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[entity.Type][]entity.Record),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.Seed(s.seed...)
	s.seed = nil
	return s
}

// Seed inserts records as-is, bypassing uniqueness checks so fixtures can
// reproduce legacy data.
func (s *Store) Seed(records ...entity.Record) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if !rec.Type.Valid() {
			continue
		}
		if rec.ID == "" {
			rec.ID = s.newID()
		}
		s.tables[rec.Type] = append(s.tables[rec.Type], cloneRecord(rec))
	}
}

// List returns records of type t matching filter.
func (s *Store) List(ctx context.Context, t entity.Type, filter store.Filter) ([]entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Transport("list", t, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Record, 0, len(s.tables[t]))
	for _, rec := range s.tables[t] {
		if !filter.Matches(rec) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// Get returns a single record or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, t entity.Type, id string) (entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("get", t, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexLocked(t, id); idx >= 0 {
		return cloneRecord(s.tables[t][idx]), nil
	}
	return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
}

// Create inserts a new record built from payload.
func (s *Store) Create(ctx context.Context, t entity.Type, payload entity.Payload) (entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("create", t, err)
	}
	if !t.Valid() {
		return entity.Record{}, store.Invalid(t, "", "unknown entity type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := entity.ApplyPayload(entity.Record{Type: t, ID: s.newID()}, payload)
	if err := s.checkLocked(rec); err != nil {
		return entity.Record{}, err
	}
	s.tables[t] = append(s.tables[t], rec)
	return cloneRecord(rec), nil
}

// Update merges payload into the stored record.
func (s *Store) Update(ctx context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("update", t, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(t, id)
	if idx < 0 {
		return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	payload = payload.Clone()
	delete(payload, "id")
	rec := entity.ApplyPayload(s.tables[t][idx], payload)
	rec.ID = id
	if err := s.checkLocked(rec); err != nil {
		return entity.Record{}, err
	}
	s.tables[t][idx] = rec
	return cloneRecord(rec), nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, t entity.Type, id string) error {
	if err := ctx.Err(); err != nil {
		return store.Transport("delete", t, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(t, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	table := s.tables[t]
	s.tables[t] = append(table[:idx:idx], table[idx+1:]...)
	return nil
}

// Len returns the number of stored records of type t.
func (s *Store) Len(t entity.Type) int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[t])
}

func (s *Store) indexLocked(t entity.Type, id string) int {
	for i, rec := range s.tables[t] {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) checkLocked(rec entity.Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return store.Invalid(rec.Type, "name", "name is required")
	}
	column, scope := store.UniqueColumn(rec.Type)
	if column == "" {
		return nil
	}
	candidate := strings.TrimSpace(rec.Value(column))
	if candidate == "" {
		return nil
	}
	for _, existing := range s.tables[rec.Type] {
		if existing.ID == rec.ID {
			continue
		}
		if scope != "" && existing.Value(scope) != rec.Value(scope) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(existing.Value(column)), candidate) {
			return store.Conflict(rec.Type, column, fmt.Sprintf("%s %q already exists", column, candidate))
		}
	}
	return nil
}

func cloneRecord(rec entity.Record) entity.Record {
	if rec.Attributes != nil {
		attrs := make(map[string]any, len(rec.Attributes))
		for k, v := range rec.Attributes {
			attrs[k] = v
		}
		rec.Attributes = attrs
	}
	return rec
}
