package bloom

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
)

// Load reads the filter persisted at path. A missing file yields a new
// empty filter sized for n links at fpRate, so scan workers in separate
// processes can share one run-scoped set through the file.
func Load(path string, n uint, fpRate float64) (*Filter, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewFilter(n, fpRate), nil
	} else if err != nil {
		return nil, fmt.Errorf("open visited set: %w", err)
	}
	defer file.Close()

	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("decode visited set %s: %w", path, err)
	}
	return &Filter{f: f}, nil
}

// Save writes the filter to path, replacing any previous copy atomically.
func (f *Filter) Save(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create visited set directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create visited set: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := f.f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write visited set: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync visited set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close visited set: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
