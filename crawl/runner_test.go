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

func TestGoroutineRunner_Start(t *testing.T) {
	t.Parallel()

	t.Run("delivers the scanned batch", func(t *testing.T) {
		t.Parallel()

		want := []*adharvest.ListingRecord{{Title: "Corolla", PhoneNumber: "+923001234567"}}
		r := &crawl.GoroutineRunner{Scanner: &mock.Scanner{
			ScanFn: func(_ context.Context, url string) ([]*adharvest.ListingRecord, error) {
				assert.Equal(t, "https://x/page", url)
				return want, nil
			},
		}}

		res := <-r.Start(context.Background(), "https://x/page")

		require.NoError(t, res.Err)
		assert.Equal(t, want, res.Records)
	})

	t.Run("delivers exactly one result then closes", func(t *testing.T) {
		t.Parallel()

		r := &crawl.GoroutineRunner{Scanner: &mock.Scanner{
			ScanFn: func(context.Context, string) ([]*adharvest.ListingRecord, error) {
				return nil, nil
			},
		}}

		ch := r.Start(context.Background(), "https://x/page")
		_, ok := <-ch
		require.True(t, ok)
		_, ok = <-ch
		assert.False(t, ok)
	})

	t.Run("reports scan failures", func(t *testing.T) {
		t.Parallel()

		r := &crawl.GoroutineRunner{Scanner: &mock.Scanner{
			ScanFn: func(context.Context, string) ([]*adharvest.ListingRecord, error) {
				return nil, adharvest.Errorf(adharvest.ESCAN, "page never ready")
			},
		}}

		res := <-r.Start(context.Background(), "https://x/page")

		assert.Equal(t, adharvest.ESCAN, adharvest.ErrorCode(res.Err))
	})

	t.Run("wraps foreign errors with the page url", func(t *testing.T) {
		t.Parallel()

		r := &crawl.GoroutineRunner{Scanner: &mock.Scanner{
			ScanFn: func(context.Context, string) ([]*adharvest.ListingRecord, error) {
				return nil, context.Canceled
			},
		}}

		res := <-r.Start(context.Background(), "https://x/page")

		assert.True(t, errors.Is(res.Err, context.Canceled))
		assert.Contains(t, res.Err.Error(), "https://x/page")
	})

	t.Run("converts a panic into a scan failure", func(t *testing.T) {
		t.Parallel()

		r := &crawl.GoroutineRunner{Scanner: &mock.Scanner{
			ScanFn: func(context.Context, string) ([]*adharvest.ListingRecord, error) {
				panic("nil map write")
			},
		}}

		res := <-r.Start(context.Background(), "https://x/page")

		assert.Nil(t, res.Records)
		assert.Equal(t, adharvest.ESCAN, adharvest.ErrorCode(res.Err))
		assert.Contains(t, adharvest.ErrorMessage(res.Err), "nil map write")
	})
}
