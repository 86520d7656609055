package crawl_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/crawl"
	"github.com/fwojciec/adharvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// memCheckpoints is an in-memory checkpoint store recording every write.
type memCheckpoints struct {
	mu      sync.Mutex
	initial adharvest.Checkpoint
	current *adharvest.Checkpoint
	loadErr error
	saves   []adharvest.Checkpoint
	resets  int
}

func (m *memCheckpoints) store() *mock.CheckpointStore {
	return &mock.CheckpointStore{
		LoadFn: func(context.Context) (adharvest.Checkpoint, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.loadErr != nil {
				return m.initial, m.loadErr
			}
			if m.current == nil {
				return m.initial, nil
			}
			return *m.current, nil
		},
		SaveFn: func(_ context.Context, cp adharvest.Checkpoint) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.current = &cp
			m.saves = append(m.saves, cp)
			return nil
		},
		ResetFn: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			cp := m.initial
			m.current = &cp
			m.resets++
			return nil
		},
	}
}

func (m *memCheckpoints) last() adharvest.Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.current
}

func smallSpace() adharvest.CrawlSpace {
	return adharvest.CrawlSpace{
		Regions:    []string{"r0", "r1"},
		Categories: adharvest.Range{Min: 1, Max: 2},
		Pages:      adharvest.Range{Min: 1, Max: 2},
	}
}

func immediate(result adharvest.ScanResult) <-chan adharvest.ScanResult {
	ch := make(chan adharvest.ScanResult, 1)
	ch <- result
	close(ch)
	return ch
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestCoordinator_Run(t *testing.T) {
	t.Parallel()

	t.Run("processes every unit in order and resets the checkpoint", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		var urls []string
		var saved int
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.URLTemplate{Base: "https://x", Segment: "s"},
			Runner: &mock.ScanRunner{StartFn: func(_ context.Context, url string) <-chan adharvest.ScanResult {
				urls = append(urls, url)
				return immediate(adharvest.ScanResult{Records: []*adharvest.ListingRecord{{Title: url}}})
			}},
			Sink: &mock.RecordSink{SaveFn: func(_ context.Context, r []*adharvest.ListingRecord) error {
				saved += len(r)
				return nil
			}},
			Store: cps.store(),
			Sleep: noSleep,
		}

		summary, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.True(t, summary.Completed)
		assert.Equal(t, 8, summary.Units)
		assert.Equal(t, 8, summary.Records)
		assert.Equal(t, 8, saved)
		assert.Equal(t, "https://x/r0/s?page=1&sorting=desc-creation&filter=body_type_eq_1", urls[0])
		assert.Equal(t, "https://x/r1/s?page=2&sorting=desc-creation&filter=body_type_eq_2", urls[7])
		assert.Len(t, cps.saves, 8)
		assert.Equal(t, 1, cps.resets)
		assert.Equal(t, adharvest.Checkpoint{RegionIndex: 0, CategoryCode: 1, PageNumber: 1}, cps.last())
		_, _, phase := c.State.Snapshot()
		assert.Equal(t, crawl.PhaseTerminated, phase)
	})

	t.Run("resumes from the stored checkpoint", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{
			initial: adharvest.InitialCheckpoint(space),
			current: &adharvest.Checkpoint{RegionIndex: 1, CategoryCode: 2, PageNumber: 1},
		}
		var urls []string
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.URLTemplate{Base: "https://x", Segment: "s"},
			Runner: &mock.ScanRunner{StartFn: func(_ context.Context, url string) <-chan adharvest.ScanResult {
				urls = append(urls, url)
				return immediate(adharvest.ScanResult{})
			}},
			Sink:  &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store: cps.store(),
			Sleep: noSleep,
		}

		summary, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Units)
		assert.Equal(t, []string{
			"https://x/r1/s?page=1&sorting=desc-creation&filter=body_type_eq_2",
			"https://x/r1/s?page=2&sorting=desc-creation&filter=body_type_eq_2",
		}, urls)
	})

	t.Run("advances past a failed unit without saving or pausing", func(t *testing.T) {
		t.Parallel()

		space := adharvest.CrawlSpace{Regions: []string{"r0"}, Categories: adharvest.Range{Min: 1, Max: 1}, Pages: adharvest.Range{Min: 1, Max: 3}}
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		core, logs := observer.New(zap.ErrorLevel)
		var sinkCalls, sleeps int
		calls := 0
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				calls++
				if calls == 1 {
					return immediate(adharvest.ScanResult{Err: adharvest.Errorf(adharvest.ESCAN, "page never ready")})
				}
				return immediate(adharvest.ScanResult{})
			}},
			Sink: &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error {
				sinkCalls++
				return nil
			}},
			Store: cps.store(),
			Sleep: func(context.Context, time.Duration) error {
				sleeps++
				return nil
			},
			Logger: zap.New(core),
		}

		summary, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 2, summary.Succeeded)
		assert.Equal(t, 2, sinkCalls)
		assert.Equal(t, 1, sleeps)
		assert.Equal(t, adharvest.Checkpoint{RegionIndex: 0, CategoryCode: 1, PageNumber: 1}, cps.saves[0])
		entries := logs.FilterMessage("unit failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(1), entries[0].ContextMap()["page"])
		assert.Contains(t, entries[0].ContextMap()["url"], "page=1")
	})

	t.Run("still advances the checkpoint when the sink fails", func(t *testing.T) {
		t.Parallel()

		space := adharvest.CrawlSpace{Regions: []string{"r0"}, Categories: adharvest.Range{Min: 1, Max: 1}, Pages: adharvest.Range{Min: 1, Max: 2}}
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				return immediate(adharvest.ScanResult{Records: []*adharvest.ListingRecord{{Title: "a"}}})
			}},
			Sink: &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error {
				return adharvest.Errorf(adharvest.ESINK, "disk full")
			}},
			Store: cps.store(),
			Sleep: noSleep,
		}

		summary, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Zero(t, summary.Records)
		assert.Equal(t, []adharvest.Checkpoint{
			{RegionIndex: 0, CategoryCode: 1, PageNumber: 1},
			{RegionIndex: 0, CategoryCode: 1, PageNumber: 2},
		}, cps.saves)
	})

	t.Run("persists the unit in flight when interrupted during a scan", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		calls := 0
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				calls++
				if calls == 3 {
					cancel()
					return make(chan adharvest.ScanResult)
				}
				return immediate(adharvest.ScanResult{})
			}},
			Sink:  &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store: cps.store(),
			Sleep: noSleep,
		}

		summary, err := c.Run(ctx)

		assert.Equal(t, adharvest.EINTERRUPTED, adharvest.ErrorCode(err))
		assert.False(t, summary.Completed)
		assert.Equal(t, adharvest.Checkpoint{RegionIndex: 0, CategoryCode: 2, PageNumber: 1}, cps.last())
		assert.Zero(t, cps.resets)
	})

	t.Run("persists the unit when interrupted during the pause", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				return immediate(adharvest.ScanResult{})
			}},
			Sink:  &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store: cps.store(),
			Sleep: func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			},
		}

		_, err := c.Run(ctx)

		assert.Equal(t, adharvest.EINTERRUPTED, adharvest.ErrorCode(err))
		assert.Equal(t, adharvest.Checkpoint{RegionIndex: 0, CategoryCode: 1, PageNumber: 1}, cps.last())
	})

	t.Run("reports an interrupt during the final save instead of completing", func(t *testing.T) {
		t.Parallel()

		space := adharvest.CrawlSpace{
			Regions:    []string{"r0"},
			Categories: adharvest.Range{Min: 1, Max: 1},
			Pages:      adharvest.Range{Min: 1, Max: 1},
		}
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		store := cps.store()
		state := crawl.NewCrawlState(store)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				return immediate(adharvest.ScanResult{Records: []*adharvest.ListingRecord{{Title: "Civic"}}})
			}},
			Sink: &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error {
				cancel()
				require.Eventually(t, state.Sealed, time.Second, time.Millisecond)
				return nil
			}},
			Store: store,
			State: state,
			Sleep: noSleep,
		}

		summary, err := c.Run(ctx)

		assert.Equal(t, adharvest.EINTERRUPTED, adharvest.ErrorCode(err))
		assert.False(t, summary.Completed)
		assert.Zero(t, cps.resets)
		assert.Equal(t, adharvest.Checkpoint{RegionIndex: 0, CategoryCode: 1, PageNumber: 1}, cps.last())
	})

	t.Run("starts from the first unit when the checkpoint is corrupt", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{
			initial: adharvest.InitialCheckpoint(space),
			loadErr: adharvest.Errorf(adharvest.ECORRUPT, "unexpected end of JSON input"),
		}
		core, logs := observer.New(zap.WarnLevel)
		var first string
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.URLTemplate{Base: "https://x", Segment: "s"},
			Runner: &mock.ScanRunner{StartFn: func(_ context.Context, url string) <-chan adharvest.ScanResult {
				if first == "" {
					first = url
				}
				return immediate(adharvest.ScanResult{})
			}},
			Sink:   &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store:  cps.store(),
			Sleep:  noSleep,
			Logger: zap.New(core),
		}

		_, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "https://x/r0/s?page=1&sorting=desc-creation&filter=body_type_eq_1", first)
		assert.Equal(t, 1, logs.FilterMessage("checkpoint unreadable, starting from the first unit").Len())
	})

	t.Run("starts from the first unit when the checkpoint is outside the space", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{
			initial: adharvest.InitialCheckpoint(space),
			current: &adharvest.Checkpoint{RegionIndex: 7, CategoryCode: 1, PageNumber: 1},
		}
		units := 0
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				units++
				return immediate(adharvest.ScanResult{})
			}},
			Sink:  &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store: cps.store(),
			Sleep: noSleep,
		}

		_, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 8, units)
	})

	t.Run("treats a closed result channel as a failed scan", func(t *testing.T) {
		t.Parallel()

		space := adharvest.CrawlSpace{Regions: []string{"r0"}, Categories: adharvest.Range{Min: 1, Max: 1}, Pages: adharvest.Range{Min: 1, Max: 1}}
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				ch := make(chan adharvest.ScanResult)
				close(ch)
				return ch
			}},
			Store: cps.store(),
			Sleep: noSleep,
		}

		summary, err := c.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
	})

	t.Run("emits progress for every unit", func(t *testing.T) {
		t.Parallel()

		space := smallSpace()
		cps := &memCheckpoints{initial: adharvest.InitialCheckpoint(space)}
		var events []crawl.ProgressEvent
		c := &crawl.Coordinator{
			Space: space,
			URLs:  adharvest.DefaultURLTemplate(),
			Runner: &mock.ScanRunner{StartFn: func(context.Context, string) <-chan adharvest.ScanResult {
				return immediate(adharvest.ScanResult{})
			}},
			Sink:     &mock.RecordSink{SaveFn: func(context.Context, []*adharvest.ListingRecord) error { return nil }},
			Store:    cps.store(),
			Sleep:    noSleep,
			Progress: func(e crawl.ProgressEvent) { events = append(events, e) },
		}

		_, err := c.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 17)
		assert.Equal(t, crawl.ProgressUnitStarted, events[0].Type)
		assert.Equal(t, crawl.ProgressUnitCompleted, events[1].Type)
		assert.Equal(t, 1, events[1].Completed)
		assert.Equal(t, 8, events[1].Total)
		assert.Equal(t, crawl.ProgressRunFinished, events[16].Type)
	})

	t.Run("rejects an empty crawl space", func(t *testing.T) {
		t.Parallel()

		c := &crawl.Coordinator{Space: adharvest.CrawlSpace{}}

		_, err := c.Run(context.Background())

		assert.Equal(t, adharvest.EINVALID, adharvest.ErrorCode(err))
	})
}
