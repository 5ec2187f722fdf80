package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	category_id TEXT NOT NULL DEFAULT '',
	category_name TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at_utc TEXT NOT NULL,
	updated_at_utc TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_type ON records(type);
CREATE UNIQUE INDEX IF NOT EXISTS records_category_name
	ON records(lower(trim(name, ' ' || char(9, 10, 11, 12, 13)))) WHERE type = 'category';
CREATE UNIQUE INDEX IF NOT EXISTS records_service_name
	ON records(category_id, lower(trim(name, ' ' || char(9, 10, 11, 12, 13)))) WHERE type = 'service';
CREATE UNIQUE INDEX IF NOT EXISTS records_person_email
	ON records(type, lower(trim(email, ' ' || char(9, 10, 11, 12, 13)))) WHERE type IN ('user', 'provider') AND email <> '';
`

// Open initializes a SQLite connection with the pragmas the store relies on.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("sqlite open: db path is required")
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single connection so connection-local pragmas and :memory: databases
	// stay consistent
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", stmt, err)
		}
	}
	return db, nil
}

// Migrate creates the records table and its unique indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("sqlite migrate: db is nil")
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "constraint failed: unique")
}
