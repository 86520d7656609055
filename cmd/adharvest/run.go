package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/crawl"
	adhttp "github.com/fwojciec/adharvest/http"
	"github.com/fwojciec/adharvest/proc"
	adprom "github.com/fwojciec/adharvest/prometheus"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	ctx := deps.Ctx
	cfg := deps.Config
	m := deps.Main

	if c.Isolation != "" {
		if c.Isolation != IsolationProcess && c.Isolation != IsolationGoroutine {
			return adharvest.Errorf(adharvest.EINVALID, "--isolation must be %q or %q", IsolationProcess, IsolationGoroutine)
		}
		cfg.Crawl.Isolation = c.Isolation
	}

	runID := uuid.NewString()
	logger := deps.Logger.With(zap.String("run_id", runID))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := adprom.NewMetrics(reg)

	checkpoints, records, err := m.stores(cfg, runID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}
	checkpoints = adprom.NewCheckpointStore(checkpoints, metrics)

	sink, err := m.sink(ctx, cfg, records, runID, logger, metrics)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", adharvest.ErrorMessage(err))
		return err
	}

	runner, err := m.runner(deps, cfg, runID, logger, metrics)
	if err != nil {
		return err
	}

	state := crawl.NewCrawlState(checkpoints)
	coord := &crawl.Coordinator{
		Space:    cfg.Crawl.Space,
		URLs:     cfg.Crawl.URL,
		Runner:   adprom.NewRunner(runner, metrics),
		Sink:     sink,
		Store:    checkpoints,
		MinDelay: cfg.Crawl.MinDelay,
		MaxDelay: cfg.Crawl.MaxDelay,
		State:    state,
		Logger:   logger,
		Progress: crawl.PrintProgress(deps.Stdout),
	}
	if cfg.Crawl.MinDelay == 0 && cfg.Crawl.MaxDelay == 0 {
		coord.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}

	if cfg.Server.Addr != "" {
		l, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
		}
		srv := adhttp.NewServer(adhttp.ServerConfig{
			Checkpoints: checkpoints,
			Status: func() adhttp.Status {
				unit, active, phase := state.Snapshot()
				st := adhttp.Status{Phase: phase.String(), Active: active}
				if active {
					st.Unit = unit.String()
				}
				return st
			},
			Metrics: adprom.Handler(reg),
			Logger:  logger.Named("server"),
		})
		go func() {
			if err := srv.Serve(ctx, l); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
		logger.Info("status server listening", zap.String("addr", l.Addr().String()))
	}

	summary, err := coord.Run(ctx)
	if summary != nil {
		fmt.Fprintf(deps.Stdout, "Processed %d units (%d succeeded, %d failed), saved %d listings\n",
			summary.Units, summary.Succeeded, summary.Failed, summary.Records)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, "Crawl complete, checkpoint reset")
	return nil
}

// runner returns the configured isolation boundary for page scans.
func (m *Main) runner(deps *Dependencies, cfg Config, runID string, logger *zap.Logger, metrics *adprom.Metrics) (adharvest.ScanRunner, error) {
	if m.Runner != nil {
		return m.Runner, nil
	}

	if cfg.Crawl.Isolation == IsolationGoroutine {
		visited, _, err := m.visited(deps.Ctx, cfg, runID, "")
		if err != nil {
			return nil, err
		}
		scanner, err := m.scanner(cfg, visited, logger.Named("scan"), metrics)
		if err != nil {
			return nil, err
		}
		return &crawl.GoroutineRunner{Scanner: scanner}, nil
	}

	var visitedFile string
	if cfg.Visited.Backend == BackendMemory {
		visitedFile = filepath.Join(cfg.Storage.Dir, "visited-"+runID+".bloom")
		m.onClose(func() error {
			if err := os.Remove(visitedFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			return nil
		})
	}

	var args []string
	if deps.ConfigPath != "" {
		args = append(args, "--config", deps.ConfigPath)
	}
	return &proc.Runner{
		Args:   args,
		Env:    workerEnv(runID, visitedFile),
		Stderr: deps.Stderr,
	}, nil
}
