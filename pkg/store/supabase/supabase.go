package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/upload"
)

// Config describes the Supabase project and table layout.
type Config struct {
	URL string
	Key string
	// Tables maps entity types to table names. Missing entries fall back to
	// DefaultTables.
	Tables map[entity.Type]string
	// CategoryColumn is the service column holding the parent category id.
	CategoryColumn string
	// Bucket is the storage bucket used for icon uploads.
	Bucket string
}

// DefaultTables is the table layout of the hosted admin dashboard.
var DefaultTables = map[entity.Type]string{
	entity.Category: "categories",
	entity.Service:  "services",
	entity.User:     "users",
	entity.Provider: "service_providers",
}

// Store talks to PostgREST through supabase-go. Rows are reconciled with
// entity.FromRow so alternate column names never leak past this adapter.
type Store struct {
	client         *supabase.Client
	tables         map[entity.Type]string
	categoryColumn string
	logger         *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a client for cfg.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("supabase: url and key are required")
	}
	client, err := supabase.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: create client: %w", err)
	}
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *supabase.Client, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	tables := make(map[entity.Type]string, len(DefaultTables))
	for t, name := range DefaultTables {
		tables[t] = name
	}
	for t, name := range cfg.Tables {
		if strings.TrimSpace(name) != "" {
			tables[t] = strings.TrimSpace(name)
		}
	}
	column := strings.TrimSpace(cfg.CategoryColumn)
	if column == "" {
		column = "category_id"
	}
	return &Store{client: client, tables: tables, categoryColumn: column, logger: logger}
}

// Client exposes the underlying supabase client, e.g. to build a Bucket.
func (s *Store) Client() *supabase.Client { return s.client }

func (s *Store) table(t entity.Type) (string, error) {
	name, ok := s.tables[t]
	if !ok {
		return "", store.Invalid(t, "", "no table configured")
	}
	return name, nil
}

// List selects every row of the entity table, narrowed by filter.
func (s *Store) List(ctx context.Context, t entity.Type, filter store.Filter) ([]entity.Record, error) {
	table, err := s.table(t)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Transport("list", t, err)
	}

	query := s.client.From(table).Select("*", "", false)
	if filter.CategoryID != "" && t == entity.Service {
		query = query.Eq(s.categoryColumn, filter.CategoryID)
	}
	var rows []map[string]any
	if _, err := query.ExecuteTo(&rows); err != nil {
		return nil, s.classify("list", t, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Transport("list", t, err)
	}

	records := make([]entity.Record, 0, len(rows))
	for _, row := range rows {
		rec := entity.FromRow(t, row)
		if !filter.Matches(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get selects a row by id.
func (s *Store) Get(ctx context.Context, t entity.Type, id string) (entity.Record, error) {
	table, err := s.table(t)
	if err != nil {
		return entity.Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("get", t, err)
	}
	var rows []map[string]any
	if _, err := s.client.From(table).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return entity.Record{}, s.classify("get", t, err)
	}
	if len(rows) == 0 {
		return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	return entity.FromRow(t, rows[0]), nil
}

// Create inserts payload and returns the stored representation.
func (s *Store) Create(ctx context.Context, t entity.Type, payload entity.Payload) (entity.Record, error) {
	table, err := s.table(t)
	if err != nil {
		return entity.Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("create", t, err)
	}
	var rows []map[string]any
	if _, err := s.client.From(table).Insert(map[string]any(payload), false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return entity.Record{}, s.classify("create", t, err)
	}
	if len(rows) == 0 {
		return entity.Record{}, store.Transport("create", t, errors.New("no row returned"))
	}
	return entity.FromRow(t, rows[0]), nil
}

// Update patches the row with id.
func (s *Store) Update(ctx context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error) {
	table, err := s.table(t)
	if err != nil {
		return entity.Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.Record{}, store.Transport("update", t, err)
	}
	body := payload.Clone()
	delete(body, "id")
	var rows []map[string]any
	if _, err := s.client.From(table).Update(map[string]any(body), "representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return entity.Record{}, s.classify("update", t, err)
	}
	if len(rows) == 0 {
		return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	return entity.FromRow(t, rows[0]), nil
}

// Delete removes the row with id.
func (s *Store) Delete(ctx context.Context, t entity.Type, id string) error {
	table, err := s.table(t)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return store.Transport("delete", t, err)
	}
	var rows []map[string]any
	if _, err := s.client.From(table).Delete("representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return s.classify("delete", t, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	return nil
}

// PostgreSQL error codes surfaced by PostgREST as "(code) message".
const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
	codeCheckViolation   = "23514"
	codeInvalidText      = "22P02"
)

func (s *Store) classify(op string, t entity.Type, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, codeUniqueViolation):
		column, _ := store.UniqueColumn(t)
		return store.Conflict(t, column, "duplicate "+column)
	case strings.Contains(msg, codeNotNullViolation),
		strings.Contains(msg, codeCheckViolation),
		strings.Contains(msg, codeInvalidText):
		return store.Invalid(t, "", msg)
	}
	s.logger.Warn("supabase request failed",
		zap.String("op", op),
		zap.String("entity", string(t)),
		zap.Error(err),
	)
	return store.Transport(op, t, err)
}

// Bucket uploads objects to Supabase Storage.
type Bucket struct {
	storage *storage_go.Client
	bucket  string
}

var _ upload.Storage = (*Bucket)(nil)

// NewBucket returns upload storage backed by the client's storage API.
func NewBucket(client *supabase.Client, bucket string) (*Bucket, error) {
	if client == nil || client.Storage == nil {
		return nil, errors.New("supabase: storage client is nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("supabase: bucket is required")
	}
	return &Bucket{storage: client.Storage, bucket: strings.TrimSpace(bucket)}, nil
}

// Put implements upload.Storage.
func (b *Bucket) Put(ctx context.Context, obj upload.Object) (upload.Stored, error) {
	if err := ctx.Err(); err != nil {
		return upload.Stored{}, err
	}
	contentType := obj.ContentType
	upsert := false
	if _, err := b.storage.UploadFile(b.bucket, obj.Path, obj.Body, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return upload.Stored{}, fmt.Errorf("supabase: upload %s: %w", obj.Path, err)
	}
	public := b.storage.GetPublicUrl(b.bucket, obj.Path)
	return upload.Stored{Path: obj.Path, PublicURL: public.SignedURL}, nil
}
