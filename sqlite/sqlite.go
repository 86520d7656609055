// Package sqlite provides SQLite-backed checkpoint and record stores.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Wait up to 5 seconds on lock contention.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL lets the status server read while the crawl writes. In-memory
	// databases do not support it.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkpoint (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			region_index INTEGER NOT NULL,
			category_code INTEGER NOT NULL,
			page_number INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS listings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fingerprint TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			vehicle_type TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			contact_name TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_listings_phone_number ON listings(phone_number);
		CREATE INDEX IF NOT EXISTS idx_listings_run_id ON listings(run_id);
	`

	_, err := db.db.Exec(schema)
	return err
}
