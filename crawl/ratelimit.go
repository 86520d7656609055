package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/adharvest"
	"golang.org/x/time/rate"
)

var _ adharvest.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter provides per-domain rate limiting using token buckets.
// It creates a separate rate limiter for each domain, so listing fetches
// on one host are throttled without slowing requests to another.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewDomainLimiter creates a new DomainLimiter with the specified requests
// per second limit and a burst of 1.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return NewDomainLimiterWithBurst(rps, 1)
}

// NewDomainLimiterWithBurst is like NewDomainLimiter but allows bursts of
// up to burst requests, which lets a page's bounded fan-out start at once.
func NewDomainLimiterWithBurst(rps float64, burst int) *DomainLimiter {
	if burst < 1 {
		burst = 1
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(d.rps), d.burst)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
