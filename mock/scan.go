package mock

import (
	"context"

	"github.com/fwojciec/adharvest"
)

var _ adharvest.Scanner = (*Scanner)(nil)

// Scanner is a mock implementation of adharvest.Scanner.
type Scanner struct {
	ScanFn func(ctx context.Context, pageURL string) ([]*adharvest.ListingRecord, error)
}

func (s *Scanner) Scan(ctx context.Context, pageURL string) ([]*adharvest.ListingRecord, error) {
	return s.ScanFn(ctx, pageURL)
}

var _ adharvest.ScanRunner = (*ScanRunner)(nil)

// ScanRunner is a mock implementation of adharvest.ScanRunner.
type ScanRunner struct {
	StartFn func(ctx context.Context, pageURL string) <-chan adharvest.ScanResult
}

func (r *ScanRunner) Start(ctx context.Context, pageURL string) <-chan adharvest.ScanResult {
	return r.StartFn(ctx, pageURL)
}
