package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fwojciec/adharvest"
)

// Compile-time interface verification.
var _ adharvest.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore keeps the checkpoint in a single-row table.
type CheckpointStore struct {
	db      *DB
	initial adharvest.Checkpoint
}

// NewCheckpointStore creates a CheckpointStore returning initial until a
// checkpoint is saved.
func NewCheckpointStore(db *DB, initial adharvest.Checkpoint) *CheckpointStore {
	return &CheckpointStore{db: db, initial: initial}
}

func (s *CheckpointStore) Load(ctx context.Context) (adharvest.Checkpoint, error) {
	var cp adharvest.Checkpoint
	err := s.db.QueryRowContext(ctx, `
		SELECT region_index, category_code, page_number
		FROM checkpoint
		WHERE id = 1
	`).Scan(&cp.RegionIndex, &cp.CategoryCode, &cp.PageNumber)
	if err == sql.ErrNoRows {
		return s.initial, nil
	}
	if err != nil {
		return s.initial, adharvest.Errorf(adharvest.ECORRUPT, "read checkpoint: %v", err)
	}
	return cp, nil
}

func (s *CheckpointStore) Save(ctx context.Context, cp adharvest.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoint (id, region_index, category_code, page_number, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			region_index = excluded.region_index,
			category_code = excluded.category_code,
			page_number = excluded.page_number,
			updated_at = excluded.updated_at
	`, cp.RegionIndex, cp.CategoryCode, cp.PageNumber, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *CheckpointStore) Reset(ctx context.Context) error {
	return s.Save(ctx, s.initial)
}

// UpdatedAt returns when the checkpoint was last written.
// Returns ENOTFOUND if no checkpoint has been saved.
func (s *CheckpointStore) UpdatedAt(ctx context.Context) (time.Time, error) {
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM checkpoint WHERE id = 1`).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, adharvest.Errorf(adharvest.ENOTFOUND, "checkpoint not saved")
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseRFC3339(updatedAt, "updated_at")
}
