package crawl

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/fwojciec/adharvest"
	"go.uber.org/zap"
)

// Default inter-unit delay window.
const (
	DefaultMinDelay = 5 * time.Second
	DefaultMaxDelay = 8 * time.Second
)

// Coordinator walks the crawl space one unit at a time, dispatching each
// page to the runner and checkpointing after every unit.
type Coordinator struct {
	Space  adharvest.CrawlSpace
	URLs   adharvest.URLTemplate
	Runner adharvest.ScanRunner
	Sink   adharvest.RecordSink
	Store  adharvest.CheckpointStore

	// MinDelay and MaxDelay bound the uniform pause after a successful unit.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Sleep pauses between units. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	// State is shared with observers such as the status server. Run
	// creates one when nil.
	State *CrawlState

	Logger   *zap.Logger
	Progress ProgressFunc
}

// Summary holds the outcome of a run.
type Summary struct {
	Units     int
	Succeeded int
	Failed    int
	Records   int
	Completed bool
}

// Run processes every unit from the stored checkpoint to the end of the
// space, then resets the checkpoint. Canceling ctx persists the unit in
// flight and returns EINTERRUPTED.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	if err := c.Space.Validate(); err != nil {
		return nil, err
	}
	if c.State == nil {
		c.State = NewCrawlState(c.Store)
	}
	state := c.State
	log := c.logger()

	start, err := c.resume(ctx)
	if err != nil {
		return nil, err
	}
	state.SetPhase(PhaseRunning)

	// The watcher persists the unit in flight the moment ctx is canceled,
	// whatever the loop is blocked on.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			if err := state.Seal(ctx); err != nil {
				log.Error("persist checkpoint on interrupt", zap.Error(err))
			}
		case <-done:
		}
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	summary := &Summary{}
	total := c.Space.Len()
	last := start
	log.Info("crawl started",
		zap.Stringer("from", start),
		zap.Int("position", c.Space.Index(start)),
		zap.Int("total", total),
	)

	for u := range c.Space.Units(start.Checkpoint()) {
		if ctx.Err() != nil {
			return summary, c.interrupted(ctx, u)
		}

		state.Begin(u)
		last = u
		pageURL := c.URLs.URL(u)
		position := c.Space.Index(u) + 1
		c.emit(ProgressEvent{Type: ProgressUnitStarted, Unit: u, URL: pageURL, Completed: position - 1, Total: total})
		unitLog := log.With(
			zap.Int("region_index", u.RegionIndex),
			zap.String("region", u.Region),
			zap.Int("category", u.Category),
			zap.Int("page", u.Page),
			zap.String("url", pageURL),
		)

		state.SetPhase(PhaseWaiting)
		var result adharvest.ScanResult
		select {
		case res, ok := <-c.Runner.Start(ctx, pageURL):
			if !ok {
				res = adharvest.ScanResult{Err: adharvest.Errorf(adharvest.ESCAN, "scan %s ended without a result", pageURL)}
			}
			result = res
		case <-ctx.Done():
			return summary, c.interrupted(ctx, u)
		}
		summary.Units++

		if result.Err != nil {
			if ctx.Err() != nil {
				return summary, c.interrupted(ctx, u)
			}
			state.SetPhase(PhaseFailed)
			summary.Failed++
			unitLog.Error("unit failed", zap.Error(result.Err))
			c.commit(ctx, unitLog, u)
			c.emit(ProgressEvent{Type: ProgressUnitFailed, Unit: u, URL: pageURL, Completed: position, Total: total, Error: result.Err})
			continue
		}

		state.SetPhase(PhaseCompleted)
		if err := c.Sink.Save(ctx, result.Records); err != nil {
			unitLog.Error("save batch", zap.Int("records", len(result.Records)), zap.Error(err))
		} else {
			summary.Records += len(result.Records)
		}
		summary.Succeeded++
		c.commit(ctx, unitLog, u)
		c.emit(ProgressEvent{Type: ProgressUnitCompleted, Unit: u, URL: pageURL, Records: len(result.Records), Completed: position, Total: total})

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		unitLog.Info("unit completed",
			zap.Int("records", len(result.Records)),
			zap.Int("position", position),
			zap.Int("total", total),
			zap.Uint64("heap_alloc_bytes", mem.HeapAlloc),
			zap.Uint64("sys_bytes", mem.Sys),
		)

		if position == total {
			break
		}
		if err := c.sleep(ctx, c.delay()); err != nil {
			return summary, c.interrupted(ctx, u)
		}
	}

	// The watcher may have sealed the state during the final unit.
	if state.Sealed() {
		return summary, c.interrupted(ctx, last)
	}
	if err := state.Reset(ctx); err != nil {
		if state.Sealed() || ctx.Err() != nil {
			return summary, c.interrupted(ctx, last)
		}
		return summary, err
	}
	summary.Completed = true
	c.emit(ProgressEvent{Type: ProgressRunFinished, Completed: total, Total: total})
	log.Info("crawl finished",
		zap.Int("units", summary.Units),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("records", summary.Records),
	)
	return summary, nil
}

// resume returns the unit named by the stored checkpoint. A corrupt or
// out-of-range checkpoint restarts from the first unit.
func (c *Coordinator) resume(ctx context.Context) (adharvest.CrawlUnit, error) {
	cp, err := c.Store.Load(ctx)
	if err != nil {
		if adharvest.ErrorCode(err) != adharvest.ECORRUPT {
			return adharvest.CrawlUnit{}, err
		}
		c.logger().Warn("checkpoint unreadable, starting from the first unit", zap.Error(err))
		return c.Space.First(), nil
	}
	u, err := cp.Unit(c.Space)
	if err != nil {
		c.logger().Warn("checkpoint outside crawl space, starting from the first unit",
			zap.Int("region_index", cp.RegionIndex),
			zap.Int("category", cp.CategoryCode),
			zap.Int("page", cp.PageNumber),
			zap.Error(err),
		)
		return c.Space.First(), nil
	}
	return u, nil
}

func (c *Coordinator) commit(ctx context.Context, log *zap.Logger, u adharvest.CrawlUnit) {
	if err := c.State.Commit(ctx, u); err != nil {
		log.Error("persist checkpoint", zap.Error(err))
	}
}

// interrupted seals the state and reports the interruption.
func (c *Coordinator) interrupted(ctx context.Context, u adharvest.CrawlUnit) error {
	if err := c.State.Seal(ctx); err != nil {
		c.logger().Error("persist checkpoint on interrupt", zap.Error(err))
	}
	c.logger().Warn("crawl interrupted", zap.Stringer("unit", u))
	return adharvest.Errorf(adharvest.EINTERRUPTED, "crawl interrupted at %s", u)
}

// delay samples uniformly from [MinDelay, MaxDelay].
func (c *Coordinator) delay() time.Duration {
	lo, hi := c.MinDelay, c.MaxDelay
	if lo <= 0 && hi <= 0 {
		lo, hi = DefaultMinDelay, DefaultMaxDelay
	}
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (c *Coordinator) emit(e ProgressEvent) {
	if c.Progress != nil {
		c.Progress(e)
	}
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
