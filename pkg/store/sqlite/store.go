package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

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

// WithNow overrides the timestamp source.
func WithNow(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// Store persists records in a single SQLite table. Unique indexes mirror the
// marketplace rules: category names are unique table-wide, service names per
// category and user/provider emails per type.
type Store struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// OpenStore opens dbPath, applies the schema and returns a ready store.
func OpenStore(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	db, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db, opts...), nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = `id, type, name, description, email, category_id, category_name, duration_minutes, attributes`

// List returns records of type t in insertion order.
func (s *Store) List(ctx context.Context, t entity.Type, filter store.Filter) ([]entity.Record, error) {
	if s == nil || s.db == nil {
		return nil, store.Transport("list", t, errors.New("db is nil"))
	}

	query := `SELECT ` + selectColumns + ` FROM records WHERE type = ?`
	args := []any{string(t)}
	if filter.CategoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}
	query += ` ORDER BY created_at_utc, rowid;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Transport("list", t, err)
	}
	defer rows.Close()

	records := make([]entity.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, store.Transport("list", t, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Transport("list", t, err)
	}
	return records, nil
}

// Get returns a single record or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, t entity.Type, id string) (entity.Record, error) {
	if s == nil || s.db == nil {
		return entity.Record{}, store.Transport("get", t, errors.New("db is nil"))
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE type = ? AND id = ?;`,
		string(t), id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	if err != nil {
		return entity.Record{}, store.Transport("get", t, err)
	}
	return rec, nil
}

// Create inserts a record built from payload.
func (s *Store) Create(ctx context.Context, t entity.Type, payload entity.Payload) (entity.Record, error) {
	if s == nil || s.db == nil {
		return entity.Record{}, store.Transport("create", t, errors.New("db is nil"))
	}
	if !t.Valid() {
		return entity.Record{}, store.Invalid(t, "", "unknown entity type")
	}

	rec := entity.ApplyPayload(entity.Record{Type: t, ID: s.newID()}, payload)
	rec = trimKeys(rec)
	if rec.Name == "" {
		return entity.Record{}, store.Invalid(t, "name", "name is required")
	}
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return entity.Record{}, store.Invalid(t, "", err.Error())
	}

	nowUTC := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (`+selectColumns+`, created_at_utc, updated_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.ID, string(t), rec.Name, rec.Description, rec.Email, rec.CategoryID, rec.CategoryName,
		rec.DurationMinutes, attrs, nowUTC, nowUTC,
	)
	if err != nil {
		return entity.Record{}, classify("create", rec, err)
	}
	return rec, nil
}

// Update merges payload into the stored record.
func (s *Store) Update(ctx context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error) {
	existing, err := s.Get(ctx, t, id)
	if err != nil {
		return entity.Record{}, err
	}
	payload = payload.Clone()
	delete(payload, "id")
	rec := entity.ApplyPayload(existing, payload)
	rec.ID = id
	rec = trimKeys(rec)
	if rec.Name == "" {
		return entity.Record{}, store.Invalid(t, "name", "name is required")
	}
	attrs, err := encodeAttributes(rec.Attributes)
	if err != nil {
		return entity.Record{}, store.Invalid(t, "", err.Error())
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE records
		SET name = ?, description = ?, email = ?, category_id = ?, category_name = ?,
			duration_minutes = ?, attributes = ?, updated_at_utc = ?
		WHERE type = ? AND id = ?;`,
		rec.Name, rec.Description, rec.Email, rec.CategoryID, rec.CategoryName,
		rec.DurationMinutes, attrs, s.now().UTC().Format(time.RFC3339Nano),
		string(t), id,
	)
	if err != nil {
		return entity.Record{}, classify("update", rec, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return entity.Record{}, store.Transport("update", t, err)
	}
	if affected == 0 {
		return entity.Record{}, fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	return rec, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, t entity.Type, id string) error {
	if s == nil || s.db == nil {
		return store.Transport("delete", t, errors.New("db is nil"))
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE type = ? AND id = ?;`, string(t), id)
	if err != nil {
		return store.Transport("delete", t, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return store.Transport("delete", t, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %q", store.ErrNotFound, t, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (entity.Record, error) {
	var (
		rec   entity.Record
		typ   string
		attrs string
	)
	if err := row.Scan(
		&rec.ID, &typ, &rec.Name, &rec.Description, &rec.Email,
		&rec.CategoryID, &rec.CategoryName, &rec.DurationMinutes, &attrs,
	); err != nil {
		return entity.Record{}, err
	}
	rec.Type = entity.Type(typ)
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return entity.Record{}, fmt.Errorf("decode attributes: %w", err)
		}
	}
	return rec, nil
}

// trimKeys strips the columns the unique indexes compare, so they hold the
// same value the in-memory store and the uniqueness checker see.
func trimKeys(rec entity.Record) entity.Record {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.Email = strings.TrimSpace(rec.Email)
	return rec
}

func encodeAttributes(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(data), nil
}

func classify(op string, rec entity.Record, err error) error {
	if isUniqueConstraintErr(err) {
		column, _ := store.UniqueColumn(rec.Type)
		value := strings.TrimSpace(rec.Value(column))
		return store.Conflict(rec.Type, column, fmt.Sprintf("%s %q already exists", column, value))
	}
	return store.Transport(op, rec.Type, err)
}
