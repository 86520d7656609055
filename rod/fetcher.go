package rod

import (
	"context"
	"time"

	"github.com/fwojciec/adharvest"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultFetchTimeout bounds one rendered fetch.
const DefaultFetchTimeout = 30 * time.Second

// Ensure Fetcher implements adharvest.IdentityFetcher at compile time.
var _ adharvest.IdentityFetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered listing pages through Chrome, presenting the
// requested identity. It is the browser-backed alternative to the plain
// HTTP transport for sites that gate content behind JavaScript.
//
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	timeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchTimeout sets the per-fetch timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// NewFetcher creates a Fetcher sharing manager's browser.
func NewFetcher(manager *BrowserManager, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{manager: manager, timeout: DefaultFetchTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAs navigates to url as id and returns the rendered HTML.
func (f *Fetcher) FetchAs(ctx context.Context, url string, id adharvest.Identity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	browser, err := f.manager.Browser()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", err
	}
	defer page.Close()
	f.manager.IncrementPageCount()

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return "", err
	}
	if id.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      id.UserAgent,
			AcceptLanguage: id.AcceptLanguage,
		})
		if err != nil {
			return "", err
		}
	}
	if id.Referer != "" {
		cleanup, err := page.SetExtraHeaders([]string{"Referer", id.Referer})
		if err != nil {
			return "", err
		}
		defer cleanup()
	}

	if err := page.Navigate(url); err != nil {
		return "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", err
	}
	return page.HTML()
}
