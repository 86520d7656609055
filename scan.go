package adharvest

import "context"

// ScanResult is the terminal signal of one isolated page scan.
type ScanResult struct {
	Records []*ListingRecord `json:"records"`
	Err     error            `json:"-"`
}

// Scanner renders one search-results page and returns its batch.
type Scanner interface {
	// Scan returns every validated record linked from the page.
	// Returns ESCAN if the page could not be processed as a whole.
	Scan(ctx context.Context, pageURL string) ([]*ListingRecord, error)
}

// ScanRunner dispatches page scans in an isolated execution context.
type ScanRunner interface {
	// Start begins scanning the page and returns a channel that receives
	// exactly one result. Canceling ctx abandons the scan.
	Start(ctx context.Context, pageURL string) <-chan ScanResult
}
