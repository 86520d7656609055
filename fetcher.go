package adharvest

import "context"

// Fetcher retrieves raw listing page content.
type Fetcher interface {
	// Fetch returns the response body for the URL.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (body string, err error)

	// Close releases transport resources.
	Close() error
}

// Identity is a simulated client presented to the listings site.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string
}

// IdentityFetcher performs a single fetch presenting the given identity.
type IdentityFetcher interface {
	FetchAs(ctx context.Context, url string, id Identity) (body string, err error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// VisitedSet records listing links already seen during a run.
type VisitedSet interface {
	// MarkIfNew inserts the link and reports whether it was absent.
	MarkIfNew(ctx context.Context, link string) (bool, error)
}
