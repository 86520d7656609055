package mock

import (
	"context"

	"github.com/fwojciec/adharvest"
)

var _ adharvest.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of adharvest.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ adharvest.IdentityFetcher = (*IdentityFetcher)(nil)

// IdentityFetcher is a mock implementation of adharvest.IdentityFetcher.
type IdentityFetcher struct {
	FetchAsFn func(ctx context.Context, url string, id adharvest.Identity) (string, error)
}

func (f *IdentityFetcher) FetchAs(ctx context.Context, url string, id adharvest.Identity) (string, error) {
	return f.FetchAsFn(ctx, url, id)
}

var _ adharvest.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of adharvest.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

var _ adharvest.VisitedSet = (*VisitedSet)(nil)

// VisitedSet is a mock implementation of adharvest.VisitedSet.
type VisitedSet struct {
	MarkIfNewFn func(ctx context.Context, link string) (bool, error)
}

func (v *VisitedSet) MarkIfNew(ctx context.Context, link string) (bool, error) {
	return v.MarkIfNewFn(ctx, link)
}
