package crawl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/crawl"
	"github.com/fwojciec/adharvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingStore(saved *[]adharvest.Checkpoint, resets *int) *mock.CheckpointStore {
	return &mock.CheckpointStore{
		SaveFn: func(_ context.Context, cp adharvest.Checkpoint) error {
			*saved = append(*saved, cp)
			return nil
		},
		ResetFn: func(context.Context) error {
			*resets++
			return nil
		},
	}
}

func unitAt(region, category, page int) adharvest.CrawlUnit {
	return adharvest.CrawlUnit{RegionIndex: region, Region: "r", Category: category, Page: page}
}

func TestPhase_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", crawl.PhaseIdle.String())
	assert.Equal(t, "waiting", crawl.PhaseWaiting.String())
	assert.Equal(t, "terminated", crawl.PhaseTerminated.String())
	assert.Equal(t, "unknown", crawl.Phase(99).String())
}

func TestCrawlState_Commit(t *testing.T) {
	t.Parallel()

	t.Run("persists committed units in order", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var resets int
		s := crawl.NewCrawlState(recordingStore(&saved, &resets))

		require.NoError(t, s.Commit(context.Background(), unitAt(0, 1, 1)))
		require.NoError(t, s.Commit(context.Background(), unitAt(0, 1, 2)))
		require.NoError(t, s.Commit(context.Background(), unitAt(0, 1, 2)))

		assert.Equal(t, []adharvest.Checkpoint{
			{RegionIndex: 0, CategoryCode: 1, PageNumber: 1},
			{RegionIndex: 0, CategoryCode: 1, PageNumber: 2},
			{RegionIndex: 0, CategoryCode: 1, PageNumber: 2},
		}, saved)
	})

	t.Run("rejects a checkpoint that moves backwards", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var resets int
		s := crawl.NewCrawlState(recordingStore(&saved, &resets))

		require.NoError(t, s.Commit(context.Background(), unitAt(1, 3, 1)))
		err := s.Commit(context.Background(), unitAt(0, 11, 2))

		assert.Equal(t, adharvest.EINVALID, adharvest.ErrorCode(err))
		assert.Len(t, saved, 1)
	})

	t.Run("returns store failures", func(t *testing.T) {
		t.Parallel()

		s := crawl.NewCrawlState(&mock.CheckpointStore{
			SaveFn: func(context.Context, adharvest.Checkpoint) error { return errors.New("disk full") },
		})

		err := s.Commit(context.Background(), unitAt(0, 1, 1))

		assert.EqualError(t, err, "disk full")
	})
}

func TestCrawlState_Seal(t *testing.T) {
	t.Parallel()

	t.Run("persists the unit in flight even when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var saveCtxErr error
		var resets int
		store := recordingStore(&saved, &resets)
		save := store.SaveFn
		store.SaveFn = func(ctx context.Context, cp adharvest.Checkpoint) error {
			saveCtxErr = ctx.Err()
			return save(ctx, cp)
		}
		s := crawl.NewCrawlState(store)
		s.Begin(unitAt(0, 4, 2))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, s.Seal(ctx))

		assert.NoError(t, saveCtxErr)
		assert.Equal(t, []adharvest.Checkpoint{{RegionIndex: 0, CategoryCode: 4, PageNumber: 2}}, saved)
		_, _, phase := s.Snapshot()
		assert.Equal(t, crawl.PhasePersisted, phase)
		assert.True(t, s.Sealed())
	})

	t.Run("drops commits after sealing", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var resets int
		s := crawl.NewCrawlState(recordingStore(&saved, &resets))
		s.Begin(unitAt(0, 1, 1))
		require.NoError(t, s.Seal(context.Background()))

		require.NoError(t, s.Commit(context.Background(), unitAt(0, 1, 2)))
		err := s.Reset(context.Background())
		s.SetPhase(crawl.PhaseRunning)

		assert.Equal(t, adharvest.EINTERRUPTED, adharvest.ErrorCode(err))

		assert.Len(t, saved, 1)
		assert.Zero(t, resets)
		_, _, phase := s.Snapshot()
		assert.Equal(t, crawl.PhasePersisted, phase)
	})

	t.Run("does nothing after the run terminated", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var resets int
		s := crawl.NewCrawlState(recordingStore(&saved, &resets))
		s.Begin(unitAt(2, 11, 2))
		require.NoError(t, s.Reset(context.Background()))

		require.NoError(t, s.Seal(context.Background()))

		assert.Empty(t, saved)
		assert.Equal(t, 1, resets)
	})

	t.Run("seals without saving when no unit has begun", func(t *testing.T) {
		t.Parallel()

		var saved []adharvest.Checkpoint
		var resets int
		s := crawl.NewCrawlState(recordingStore(&saved, &resets))

		require.NoError(t, s.Seal(context.Background()))

		assert.Empty(t, saved)
		assert.True(t, s.Sealed())
	})
}
