package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default scanner bounds.
const (
	DefaultScanConcurrency = 5
	DefaultNavigateTimeout = 60 * time.Second
	DefaultReadyTimeout    = 30 * time.Second
	DefaultListingTimeout  = 30 * time.Second
)

// Ensure Scanner implements adharvest.Scanner at compile time.
var _ adharvest.Scanner = (*Scanner)(nil)

// Scanner renders one search-results page, harvests its listing links and
// fetches and extracts each unseen listing. A page is one atomic unit: any
// render failure discards every record already extracted from it.
type Scanner struct {
	Renderer  adharvest.Renderer
	Links     adharvest.LinkSelector
	Fetcher   adharvest.Fetcher
	Extractor adharvest.Extractor

	// Visited filters links already seen in this run. Nil disables filtering.
	Visited adharvest.VisitedSet

	Concurrency     int
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
	ListingTimeout  time.Duration
	ReadySelector   string
	ListingSelector string

	Logger *zap.Logger
}

// Scan returns the page's batch, in link order. Returns ESCAN if the page
// could not be rendered or the scan was abandoned.
func (s *Scanner) Scan(ctx context.Context, pageURL string) ([]*adharvest.ListingRecord, error) {
	session, err := s.Renderer.Open(ctx)
	if err != nil {
		return nil, scanFailed(pageURL, "open session", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger().Warn("close render session", zap.String("url", pageURL), zap.Error(err))
		}
	}()

	if err := session.Block(ctx, adharvest.NonEssentialResources...); err != nil {
		return nil, scanFailed(pageURL, "block resources", err)
	}

	err = withTimeout(ctx, or(s.NavigateTimeout, DefaultNavigateTimeout), func(ctx context.Context) error {
		return session.Navigate(ctx, pageURL)
	})
	if err != nil {
		return nil, scanFailed(pageURL, "navigate", err)
	}

	err = withTimeout(ctx, or(s.ReadyTimeout, DefaultReadyTimeout), func(ctx context.Context) error {
		return session.WaitFor(ctx, orString(s.ReadySelector, adharvest.DefaultReadySelector))
	})
	if err != nil {
		return nil, scanFailed(pageURL, "wait for content", err)
	}

	if err := session.Scroll(ctx); err != nil {
		return nil, scanFailed(pageURL, "scroll", err)
	}

	links, err := s.harvest(ctx, session, pageURL)
	if err != nil {
		return nil, scanFailed(pageURL, "harvest links", err)
	}

	fresh := s.unvisited(ctx, links)
	s.logger().Info("listing links",
		zap.String("url", pageURL),
		zap.Int("found", len(links)),
		zap.Int("new", len(fresh)),
	)

	records, err := s.collect(ctx, fresh)
	if err != nil {
		return nil, scanFailed(pageURL, "collect listings", err)
	}
	return records, nil
}

// harvest waits for listing anchors and selects them from the rendered
// page. A page whose anchors never appear has zero listings.
func (s *Scanner) harvest(ctx context.Context, session adharvest.RenderSession, pageURL string) ([]string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, or(s.ListingTimeout, DefaultListingTimeout))
	defer cancel()
	if err := session.WaitFor(waitCtx, orString(s.ListingSelector, adharvest.DefaultListingSelector)); err != nil {
		if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			s.logger().Info("no listings on page", zap.String("url", pageURL))
			return nil, nil
		}
		return nil, err
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return s.Links.SelectLinks(html, pageURL)
}

// unvisited returns the links not seen before, marking them seen. A
// visited-set failure keeps the link.
func (s *Scanner) unvisited(ctx context.Context, links []string) []string {
	if s.Visited == nil {
		return links
	}
	fresh := make([]string, 0, len(links))
	for _, link := range links {
		isNew, err := s.Visited.MarkIfNew(ctx, link)
		if err != nil {
			s.logger().Warn("visited set", zap.String("link", link), zap.Error(err))
			isNew = true
		}
		if isNew {
			fresh = append(fresh, link)
		}
	}
	return fresh
}

// collect fetches and extracts every link with bounded concurrency.
// Listing-level failures are skipped; cancellation aborts the batch.
func (s *Scanner) collect(ctx context.Context, links []string) ([]*adharvest.ListingRecord, error) {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultScanConcurrency
	}

	results := make([]*adharvest.ListingRecord, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, link := range links {
		g.Go(func() error {
			rec, err := s.process(gctx, link)
			if err != nil {
				return err
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]*adharvest.ListingRecord, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// process returns a nil record for skipped listings. Only cancellation is
// reported as an error.
func (s *Scanner) process(ctx context.Context, link string) (*adharvest.ListingRecord, error) {
	body, err := s.Fetcher.Fetch(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger().Warn("listing fetch failed", zap.String("link", link), zap.Error(err))
		return nil, nil
	}

	rec, err := s.Extractor.Extract(body)
	switch adharvest.ErrorCode(err) {
	case "":
		return rec, nil
	case adharvest.EINVALID:
		s.logger().Debug("listing skipped", zap.String("link", link), zap.String("reason", adharvest.ErrorMessage(err)))
	default:
		s.logger().Warn("listing not extractable", zap.String("link", link), zap.Error(err))
	}
	return nil, nil
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func scanFailed(pageURL, step string, err error) error {
	return adharvest.Errorf(adharvest.ESCAN, "scan %s: %s: %v", pageURL, step, err)
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func or(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func orString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
