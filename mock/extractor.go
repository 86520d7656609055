package mock

import "github.com/fwojciec/adharvest"

var _ adharvest.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of adharvest.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*adharvest.ListingRecord, error)
}

func (e *Extractor) Extract(html string) (*adharvest.ListingRecord, error) {
	return e.ExtractFn(html)
}

var _ adharvest.LinkSelector = (*LinkSelector)(nil)

// LinkSelector is a mock implementation of adharvest.LinkSelector.
type LinkSelector struct {
	SelectLinksFn func(html string, baseURL string) ([]string, error)
}

func (s *LinkSelector) SelectLinks(html string, baseURL string) ([]string, error) {
	return s.SelectLinksFn(html, baseURL)
}
