package bloom_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/adharvest/bloom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_MarkIfNew(t *testing.T) {
	t.Parallel()

	t.Run("reports a link as new only the first time", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.01)
		ctx := context.Background()

		isNew, err := f.MarkIfNew(ctx, "https://www.olx.com.pk/item/civic-iid-1")
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = f.MarkIfNew(ctx, "https://www.olx.com.pk/item/civic-iid-1")
		require.NoError(t, err)
		assert.False(t, isNew)

		isNew, err = f.MarkIfNew(ctx, "https://www.olx.com.pk/item/civic-iid-2")
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("admits each link once under concurrent use", func(t *testing.T) {
		t.Parallel()

		f := bloom.NewFilter(1000, 0.001)
		var mu sync.Mutex
		admitted := 0
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				isNew, _ := f.MarkIfNew(context.Background(), "https://www.olx.com.pk/item/same")
				if isNew {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, admitted)
	})
}

func TestFilter_Test(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("https://example.com/page1"))

	_, _ = f.MarkIfNew(context.Background(), "https://example.com/page1")

	assert.True(t, f.Test("https://example.com/page1"))
	assert.False(t, f.Test("https://example.com/page2"))
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)
	assert.Equal(t, uint(0), f.EstimatedCount())

	for i := range 3 {
		_, _ = f.MarkIfNew(context.Background(), fmt.Sprintf("https://example.com/page%d", i))
	}

	count := f.EstimatedCount()
	assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)
	for i := range numItems {
		_, _ = f.MarkIfNew(context.Background(), fmt.Sprintf("https://example.com/added/%d", i))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(fmt.Sprintf("https://example.com/notadded/%d", i)) {
			falsePositives++
		}
	}

	// Allow up to 2% for statistical variance.
	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}
