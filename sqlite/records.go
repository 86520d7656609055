package sqlite

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/fwojciec/adharvest"
)

// Compile-time interface verification.
var _ adharvest.RecordStore = (*RecordStore)(nil)

// RecordStore archives listing records. Records already stored, by field
// values, are ignored.
type RecordStore struct {
	db    *DB
	runID string
}

// NewRecordStore creates a RecordStore tagging rows with runID.
func NewRecordStore(db *DB, runID string) *RecordStore {
	return &RecordStore{db: db, runID: runID}
}

// Save inserts the batch in one transaction.
func (s *RecordStore) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (fingerprint, run_id, title, vehicle_type, price, location, contact_name, phone_number, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, fingerprint(r), s.runID,
			r.Title, r.VehicleType, r.Price, r.Location, r.ContactName, r.PhoneNumber, now); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
	}
	return tx.Commit()
}

// Content renders every stored record as CSV in insertion order.
func (s *RecordStore) Content(ctx context.Context) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, vehicle_type, price, location, contact_name, phone_number
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	var header bool
	for rows.Next() {
		var r adharvest.ListingRecord
		if err := rows.Scan(&r.Title, &r.VehicleType, &r.Price, &r.Location, &r.ContactName, &r.PhoneNumber); err != nil {
			return nil, err
		}
		if !header {
			if err := w.Write(r.Header()); err != nil {
				return nil, err
			}
			header = true
		}
		if err := w.Write(r.Row()); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Count returns the number of stored records.
func (s *RecordStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n)
	return n, err
}
