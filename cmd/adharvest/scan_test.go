package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/mock"
	"github.com/fwojciec/adharvest/proc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCmd(t *testing.T) {
	t.Parallel()

	const pageURL = "https://www.olx.com.pk/lahore_g4060673/vehicles_c5?page=1&sorting=desc-creation&filter=body_type_eq_1"

	t.Run("prints a success report", func(t *testing.T) {
		t.Parallel()

		m := testMain(testConfig(t))
		var scanned string
		m.NewScanner = func(adharvest.VisitedSet) adharvest.Scanner {
			return &mock.Scanner{
				ScanFn: func(_ context.Context, u string) ([]*adharvest.ListingRecord, error) {
					scanned = u
					return []*adharvest.ListingRecord{recordFor("1")}, nil
				},
			}
		}
		stdout := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"scan", pageURL}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Equal(t, pageURL, scanned)
		var report proc.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.True(t, report.Success)
		require.Len(t, report.Records, 1)
		assert.Equal(t, "Civic 1", report.Records[0].Title)
	})

	t.Run("prints a failure report and fails", func(t *testing.T) {
		t.Parallel()

		m := testMain(testConfig(t))
		m.NewScanner = func(adharvest.VisitedSet) adharvest.Scanner {
			return &mock.Scanner{
				ScanFn: func(context.Context, string) ([]*adharvest.ListingRecord, error) {
					return nil, adharvest.Errorf(adharvest.ESCAN, "ready marker timed out")
				},
			}
		}
		stdout := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"scan", pageURL}, stdout, &bytes.Buffer{})

		assert.Equal(t, adharvest.ESCAN, adharvest.ErrorCode(err))
		var report proc.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.False(t, report.Success)
		assert.Equal(t, "ready marker timed out", report.Message)
	})

	t.Run("persists the visited set for the next worker", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		file := filepath.Join(cfg.Storage.Dir, "visited.bloom")
		const link = "https://www.olx.com.pk/item/civic-iid-1"
		var fresh []bool
		for range 2 {
			m := testMain(cfg)
			m.NewScanner = func(visited adharvest.VisitedSet) adharvest.Scanner {
				return &mock.Scanner{
					ScanFn: func(ctx context.Context, _ string) ([]*adharvest.ListingRecord, error) {
						isNew, err := visited.MarkIfNew(ctx, link)
						fresh = append(fresh, isNew)
						return nil, err
					},
				}
			}

			err := m.Run(context.Background(), []string{"scan", "--visited-file", file, pageURL}, &bytes.Buffer{}, &bytes.Buffer{})
			require.NoError(t, err)
		}

		assert.Equal(t, []bool{true, false}, fresh)
		assert.FileExists(t, file)
	})
}
