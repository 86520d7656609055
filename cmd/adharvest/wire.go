package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/bloom"
	"github.com/fwojciec/adharvest/crawl"
	"github.com/fwojciec/adharvest/fs"
	"github.com/fwojciec/adharvest/github"
	"github.com/fwojciec/adharvest/goquery"
	adhttp "github.com/fwojciec/adharvest/http"
	"github.com/fwojciec/adharvest/postgres"
	adprom "github.com/fwojciec/adharvest/prometheus"
	"github.com/fwojciec/adharvest/redis"
	"github.com/fwojciec/adharvest/rod"
	"github.com/fwojciec/adharvest/sqlite"
	adzap "github.com/fwojciec/adharvest/zap"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// stores opens the checkpoint store and the local record store for the
// configured backend.
func (m *Main) stores(cfg Config, runID string) (adharvest.CheckpointStore, adharvest.RecordStore, error) {
	if m.Checkpoints != nil && m.Records != nil {
		return m.Checkpoints, m.Records, nil
	}
	initial := adharvest.InitialCheckpoint(cfg.Crawl.Space)

	var checkpoints adharvest.CheckpointStore
	var records adharvest.RecordStore
	switch cfg.Storage.Backend {
	case BackendSQLite:
		db := sqlite.NewDB(cfg.SQLitePath())
		if err := db.Open(); err != nil {
			return nil, nil, fmt.Errorf("failed to open database at %q: %w", cfg.SQLitePath(), err)
		}
		m.onClose(db.Close)
		checkpoints = sqlite.NewCheckpointStore(db, initial)
		records = sqlite.NewRecordStore(db, runID)
	default:
		checkpoints = fs.NewCheckpointFile(cfg.CheckpointPath(), initial)
		records = fs.NewRecordFile(cfg.RecordsPath())
	}

	if m.Checkpoints != nil {
		checkpoints = m.Checkpoints
	}
	if m.Records != nil {
		records = m.Records
	}
	return checkpoints, records, nil
}

// sink assembles the record sink: the local store, then the optional
// Postgres archive and GitHub mirror.
func (m *Main) sink(ctx context.Context, cfg Config, local adharvest.RecordStore, runID string, logger *zap.Logger, metrics *adprom.Metrics) (adharvest.RecordSink, error) {
	s := &crawl.Sink{Local: local, Logger: logger}

	if cfg.Postgres.DSN != "" {
		archive, err := postgres.NewRecordStore(ctx, cfg.Postgres, runID)
		if err != nil {
			return nil, err
		}
		m.onClose(func() error {
			archive.Close()
			return nil
		})
		if err := archive.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		s.Archive = append(s.Archive, adzap.NewLoggingSink(archive, logger.Named("postgres")))
	}

	if cfg.Mirror.Enabled {
		mirror, err := github.NewMirror(cfg.Mirror.GitHub)
		if err != nil {
			return nil, err
		}
		s.Mirror = adprom.NewMirror(adzap.NewLoggingMirror(mirror, logger.Named("mirror")), metrics)
	}

	return adprom.NewSink(adzap.NewLoggingSink(s, logger), metrics), nil
}

// visited opens the run-scoped visited set. For the file-backed Bloom
// filter it also returns a function persisting the set for the next worker.
func (m *Main) visited(ctx context.Context, cfg Config, runID, file string) (adharvest.VisitedSet, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Visited.Backend {
	case BackendNone:
		return nil, noop, nil
	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Visited.RedisAddr})
		m.onClose(client.Close)
		set, err := redis.NewVisitedSet(client, runID, cfg.Visited.TTL)
		if err != nil {
			return nil, nil, err
		}
		if err := set.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Visited.RedisAddr, err)
		}
		return set, noop, nil
	default:
		if file == "" {
			return bloom.NewFilter(cfg.Visited.Capacity, cfg.Visited.FPRate), noop, nil
		}
		f, err := bloom.Load(file, cfg.Visited.Capacity, cfg.Visited.FPRate)
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return f.Save(file) }, nil
	}
}

// scanner builds the page scanner around a shared browser.
func (m *Main) scanner(cfg Config, visited adharvest.VisitedSet, logger *zap.Logger, metrics *adprom.Metrics) (adharvest.Scanner, error) {
	if m.NewScanner != nil {
		return m.NewScanner(visited), nil
	}

	manager, err := rod.NewBrowserManager(
		rod.WithHeadless(cfg.Browser.Headless),
		rod.WithNoSandbox(cfg.Browser.NoSandbox),
		rod.WithBin(cfg.Browser.Bin),
		rod.WithMaxPages(cfg.Browser.MaxPages),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser (Chrome or Chromium must be installed): %w", err)
	}
	m.onClose(manager.Close)

	var transport adharvest.IdentityFetcher
	switch cfg.Fetch.Transport {
	case TransportBrowser:
		transport = rod.NewFetcher(manager, rod.WithFetchTimeout(cfg.Fetch.Timeout))
	default:
		transport = adhttp.NewFetcher(adhttp.WithTimeout(cfg.Fetch.Timeout))
	}

	resilient := crawl.NewResilientFetcher(transport)
	resilient.Identities = crawl.DefaultIdentities(cfg.Crawl.URL.Base + "/")
	resilient.MaxAttempts = cfg.Fetch.MaxAttempts
	resilient.BaseDelay = cfg.Fetch.BaseDelay
	resilient.DelayStep = cfg.Fetch.DelayStep
	resilient.Logger = logger
	if cfg.Fetch.RateLimit > 0 {
		resilient.Limiter = crawl.NewDomainLimiter(cfg.Fetch.RateLimit)
	}

	fetcher := adprom.NewFetcher(adzap.NewLoggingFetcher(resilient, logger), metrics)
	m.onClose(fetcher.Close)

	return &crawl.Scanner{
		Renderer:        rod.NewRenderer(manager),
		Links:           goquery.NewListingLinkSelector(),
		Fetcher:         fetcher,
		Extractor:       adprom.NewExtractor(goquery.NewExtractor(), metrics),
		Visited:         visited,
		Concurrency:     cfg.Scan.Concurrency,
		NavigateTimeout: cfg.Scan.NavigateTimeout,
		ReadyTimeout:    cfg.Scan.ReadyTimeout,
		ListingTimeout:  cfg.Scan.ListingTimeout,
		ReadySelector:   cfg.Scan.ReadySelector,
		ListingSelector: cfg.Scan.ListingSelector,
		Logger:          logger,
	}, nil
}

// workerEnv returns the environment handed to scan worker processes.
func workerEnv(runID, visitedFile string) []string {
	env := append(os.Environ(), "ADHARVEST_RUN_ID="+runID)
	if visitedFile != "" {
		env = append(env, "ADHARVEST_VISITED_FILE="+visitedFile)
	}
	return env
}
