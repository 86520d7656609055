// Package postgres provides a Postgres-backed archive for listing records.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/adharvest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable receives records when no table is configured.
const DefaultTable = "listings"

// Config controls the Postgres connection pool used for archived records.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Ensure RecordStore implements adharvest.RecordSink at compile time.
var _ adharvest.RecordSink = (*RecordStore)(nil)

// RecordStore archives listing records. A record whose field values are
// already stored is ignored, so replaying a unit never duplicates rows.
type RecordStore struct {
	pool  pool
	table string
	runID string

	// Now stamps saved rows. Defaults to time.Now.
	Now func() time.Time
}

// NewRecordStore connects to Postgres using cfg.
func NewRecordStore(ctx context.Context, cfg Config, runID string) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, adharvest.Errorf(adharvest.EINVALID, "postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewRecordStoreWithPool(p, cfg.Table, runID)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table, runID string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, adharvest.Errorf(adharvest.EINVALID, "invalid table name %q", table)
	}
	return &RecordStore{pool: p, table: table, runID: runID}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the archive table if it does not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	fingerprint TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	title TEXT NOT NULL,
	vehicle_type TEXT NOT NULL,
	price TEXT NOT NULL,
	location TEXT NOT NULL,
	contact_name TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Save inserts the batch in one transaction.
func (s *RecordStore) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	fingerprint,
	run_id,
	title,
	vehicle_type,
	price,
	location,
	contact_name,
	phone_number,
	saved_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (fingerprint) DO NOTHING`, s.table)

	savedAt := s.now().UTC()
	for _, r := range records {
		args := []any{
			Fingerprint(r),
			s.runID,
			r.Title,
			r.VehicleType,
			r.Price,
			r.Location,
			r.ContactName,
			r.PhoneNumber,
			savedAt,
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert listing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit listings: %w", err)
	}
	return nil
}

func (s *RecordStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Fingerprint identifies a record by its field values.
func Fingerprint(r *adharvest.ListingRecord) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(r.Row(), "\x1f")))
}
