// Package bloom provides an in-process visited-link set backed by a Bloom
// filter.
package bloom

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/adharvest"
)

// Defaults sized for one run over the default crawl space.
const (
	DefaultCapacity = 100_000
	DefaultFPRate   = 0.001
)

// Ensure Filter implements adharvest.VisitedSet at compile time.
var _ adharvest.VisitedSet = (*Filter)(nil)

// Filter is a run-scoped set of listing links. A false positive skips a
// listing that was never fetched, which recall tolerates.
type Filter struct {
	mu sync.Mutex
	f  *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected links
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// MarkIfNew adds link and reports whether it was absent before.
func (f *Filter) MarkIfNew(_ context.Context, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.f.TestAndAddString(link), nil
}

// Test returns true if the link might have been marked.
// False positives are possible; false negatives are not.
func (f *Filter) Test(link string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.TestString(link)
}

// EstimatedCount returns the approximate number of links marked.
func (f *Filter) EstimatedCount() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint(f.f.ApproximatedSize())
}
