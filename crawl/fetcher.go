package crawl

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Default retry policy for listing fetches.
const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = 1 * time.Second
	DefaultDelayStep   = 500 * time.Millisecond
)

var errEmptyBody = errors.New("empty response body")

// Ensure ResilientFetcher implements adharvest.Fetcher at compile time.
var _ adharvest.Fetcher = (*ResilientFetcher)(nil)

// ResilientFetcher fetches one URL with bounded retries. Every attempt
// presents the next identity from the pool, and the wait before attempt n
// is BaseDelay + n*DelayStep.
type ResilientFetcher struct {
	Transport   adharvest.IdentityFetcher
	Identities  []adharvest.Identity
	MaxAttempts int
	BaseDelay   time.Duration
	DelayStep   time.Duration

	// Limiter, if set, gates every attempt per host.
	Limiter adharvest.DomainLimiter

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *zap.Logger

	next atomic.Uint64
}

// NewResilientFetcher returns a fetcher with the default policy and
// identity pool.
func NewResilientFetcher(transport adharvest.IdentityFetcher) *ResilientFetcher {
	return &ResilientFetcher{
		Transport:   transport,
		Identities:  DefaultIdentities(adharvest.DefaultBaseURL + "/"),
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		DelayStep:   DefaultDelayStep,
	}
}

// Fetch returns the first non-empty body. When every attempt fails it
// returns EEXHAUSTED; callers skip the item.
func (f *ResilientFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	attempts := f.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	ids := f.Identities
	if len(ids) == 0 {
		ids = DefaultIdentities("")
	}
	start := int(f.next.Add(1) - 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.BaseDelay+time.Duration(attempt)*f.DelayStep); err != nil {
				return "", err
			}
		}

		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx, hostOf(rawURL)); err != nil {
				return "", err
			}
		}

		body, err := f.Transport.FetchAs(ctx, rawURL, ids[(start+attempt)%len(ids)])
		if err == nil && strings.TrimSpace(body) != "" {
			return body, nil
		}
		if err == nil {
			err = errEmptyBody
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.logger().Debug("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return "", adharvest.Errorf(adharvest.EEXHAUSTED, "fetch %s: %d attempts failed: %v", rawURL, attempts, lastErr)
}

// Close closes the transport if it holds resources.
func (f *ResilientFetcher) Close() error {
	if c, ok := f.Transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (f *ResilientFetcher) sleep(ctx context.Context, d time.Duration) error {
	if f.Sleep != nil {
		return f.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (f *ResilientFetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
