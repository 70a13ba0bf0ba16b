package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// Server is the HTTP admin endpoint.
type Server struct {
	httpServer *http.Server
	store      *memory.Store
	log        logger.Logger
	started    time.Time
}

// New creates an admin server bound to addr.
func New(addr string, store *memory.Store, metrics *metric.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		store:   store,
		log:     log,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("admin server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("admin server error", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"version": buildinfo.Get(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, map[string]any{
		"keys":           stats.Keys,
		"expiries":       stats.Expiries,
		"expired_total":  stats.ExpiredTotal,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
