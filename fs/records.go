package fs

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/adharvest"
)

// Ensure RecordFile implements adharvest.RecordStore at compile time.
var _ adharvest.RecordStore = (*RecordFile)(nil)

// RecordFile is an append-only CSV file of listing records. The header row
// is written only while the file is empty.
type RecordFile struct {
	path string
	mu   sync.Mutex
}

// NewRecordFile creates a RecordFile at path. The file is created on the
// first Save.
func NewRecordFile(path string) *RecordFile {
	return &RecordFile{path: path}
}

// Path returns the file location.
func (f *RecordFile) Path() string {
	return f.path
}

// Save appends the batch in a single write. On failure the file is
// truncated back to its previous size. Returns ESINK on any failure.
func (f *RecordFile) Save(ctx context.Context, records []*adharvest.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return adharvest.Errorf(adharvest.ESINK, "create record directory: %v", err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return adharvest.Errorf(adharvest.ESINK, "open record file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return adharvest.Errorf(adharvest.ESINK, "stat record file: %v", err)
	}
	size := info.Size()

	data, err := render(records, size == 0)
	if err != nil {
		return adharvest.Errorf(adharvest.ESINK, "encode records: %v", err)
	}

	if _, err := file.WriteAt(data, size); err != nil {
		if terr := file.Truncate(size); terr != nil {
			err = errors.Join(err, terr)
		}
		return adharvest.Errorf(adharvest.ESINK, "append %d records: %v", len(records), err)
	}
	if err := file.Sync(); err != nil {
		return adharvest.Errorf(adharvest.ESINK, "sync record file: %v", err)
	}
	return nil
}

// Content returns the whole file. A file that does not exist yet is empty.
func (f *RecordFile) Content(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func render(records []*adharvest.ListingRecord, header bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header {
		if err := w.Write(records[0].Header()); err != nil {
			return nil, err
		}
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
