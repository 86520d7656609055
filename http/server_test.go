package http_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/adharvest"
	adhttp "github.com/fwojciec/adharvest/http"
	"github.com/fwojciec/adharvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWith(cp adharvest.Checkpoint, err error) *mock.CheckpointStore {
	return &mock.CheckpointStore{
		LoadFn: func(context.Context) (adharvest.Checkpoint, error) { return cp, err },
	}
}

func serve(t *testing.T, s *adhttp.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer(t *testing.T) {
	t.Parallel()

	t.Run("reports healthy", func(t *testing.T) {
		t.Parallel()

		s := adhttp.NewServer(adhttp.ServerConfig{Checkpoints: storeWith(adharvest.Checkpoint{}, nil)})

		rec := serve(t, s, "/healthz")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("reports the stored checkpoint with live status", func(t *testing.T) {
		t.Parallel()

		s := adhttp.NewServer(adhttp.ServerConfig{
			Checkpoints: storeWith(adharvest.Checkpoint{RegionIndex: 1, CategoryCode: 4, PageNumber: 2}, nil),
			Status: func() adhttp.Status {
				return adhttp.Status{Phase: "waiting", Unit: "karachi/category=4/page=2", Active: true}
			},
		})

		rec := serve(t, s, "/checkpoint")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{
			"regionIndex": 1, "categoryCode": 4, "pageNumber": 2,
			"status": {"phase": "waiting", "unit": "karachi/category=4/page=2", "active": true}
		}`, rec.Body.String())
	})

	t.Run("reports checkpoint errors with their code", func(t *testing.T) {
		t.Parallel()

		s := adhttp.NewServer(adhttp.ServerConfig{
			Checkpoints: storeWith(adharvest.Checkpoint{}, adharvest.Errorf(adharvest.ECORRUPT, "bad json")),
		})

		rec := serve(t, s, "/checkpoint")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"bad json","code":"corrupt"}`, rec.Body.String())
	})

	t.Run("mounts the metrics handler", func(t *testing.T) {
		t.Parallel()

		s := adhttp.NewServer(adhttp.ServerConfig{
			Checkpoints: storeWith(adharvest.Checkpoint{}, nil),
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "adharvest_units_total 3\n")
			}),
		})

		rec := serve(t, s, "/metrics")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "adharvest_units_total 3")
	})

	t.Run("omits metrics when no handler is configured", func(t *testing.T) {
		t.Parallel()

		s := adhttp.NewServer(adhttp.ServerConfig{Checkpoints: storeWith(adharvest.Checkpoint{}, nil)})

		rec := serve(t, s, "/metrics")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := adhttp.NewServer(adhttp.ServerConfig{Checkpoints: storeWith(adharvest.Checkpoint{}, nil)})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
