package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/adharvest"
)

// Ensure CheckpointFile implements adharvest.CheckpointStore at compile time.
var _ adharvest.CheckpointStore = (*CheckpointFile)(nil)

// CheckpointFile stores the checkpoint as a JSON document. Writes go to a
// temporary file that is renamed over the target, so a crash mid-write
// leaves the previous checkpoint intact.
type CheckpointFile struct {
	path    string
	initial adharvest.Checkpoint
}

// NewCheckpointFile creates a CheckpointFile at path that reports initial
// when nothing has been stored.
func NewCheckpointFile(path string, initial adharvest.Checkpoint) *CheckpointFile {
	return &CheckpointFile{path: path, initial: initial}
}

func (f *CheckpointFile) Load(ctx context.Context) (adharvest.Checkpoint, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return f.initial, nil
	}
	if err != nil {
		return f.initial, adharvest.Errorf(adharvest.ECORRUPT, "read checkpoint %s: %v", f.path, err)
	}

	var cp adharvest.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return f.initial, adharvest.Errorf(adharvest.ECORRUPT, "decode checkpoint %s: %v", f.path, err)
	}
	return cp, nil
}

func (f *CheckpointFile) Save(ctx context.Context, cp adharvest.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

func (f *CheckpointFile) Reset(ctx context.Context) error {
	return f.Save(ctx, f.initial)
}
