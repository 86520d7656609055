package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/adharvest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds graceful shutdown of the status server.
const DefaultShutdownTimeout = 5 * time.Second

// Status describes what the crawl is doing right now.
type Status struct {
	Phase  string `json:"phase"`
	Unit   string `json:"unit,omitempty"`
	Active bool   `json:"active"`
}

// ServerConfig holds the Server's collaborators. Status and Metrics are
// optional.
type ServerConfig struct {
	Checkpoints adharvest.CheckpointStore
	Status      func() Status
	Metrics     http.Handler
	Logger      *zap.Logger
}

// Server exposes crawl health, metrics, and checkpoint state over HTTP.
type Server struct {
	router chi.Router
	cfg    ServerConfig
	logger *zap.Logger
}

// NewServer builds the router.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{cfg: cfg, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Get("/checkpoint", s.checkpoint)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on l until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkpointResponse struct {
	adharvest.Checkpoint
	Status *Status `json:"status,omitempty"`
}

func (s *Server) checkpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := s.cfg.Checkpoints.Load(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if adharvest.ErrorCode(err) == adharvest.ENOTFOUND {
			status = http.StatusNotFound
		}
		s.writeJSON(w, status, map[string]string{
			"error": adharvest.ErrorMessage(err),
			"code":  adharvest.ErrorCode(err),
		})
		return
	}
	resp := checkpointResponse{Checkpoint: cp}
	if s.cfg.Status != nil {
		st := s.cfg.Status()
		resp.Status = &st
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}
