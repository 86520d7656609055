// Package http provides an HTTP-based implementation of adharvest.Fetcher
// for listing pages, which are served fully rendered and need no browser,
// and the status server that reports crawl progress.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/adharvest"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// DefaultIdentity is presented by Fetch.
var DefaultIdentity = adharvest.Identity{
	UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	AcceptLanguage: "en-US,en;q=0.9",
}

// Ensure Fetcher implements adharvest.Fetcher and adharvest.IdentityFetcher at compile time.
var (
	_ adharvest.Fetcher         = (*Fetcher)(nil)
	_ adharvest.IdentityFetcher = (*Fetcher)(nil)
)

// Fetcher retrieves listing pages using plain HTTP requests.
// A single call makes exactly one request; retries belong to the caller.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithClient replaces the underlying HTTP client. The timeout option is
// ignored when a client is supplied.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}

	return f
}

// Fetch retrieves the page presenting DefaultIdentity.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchAs(ctx, url, DefaultIdentity)
}

// FetchAs retrieves the page presenting the given identity's headers.
func (f *Fetcher) FetchAs(ctx context.Context, url string, id adharvest.Identity) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if id.UserAgent != "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}
	if id.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", id.AcceptLanguage)
	}
	if id.Referer != "" {
		req.Header.Set("Referer", id.Referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
