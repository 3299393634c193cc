// Package web provides the HTTP server for previewing taxonomy imports.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/taxonomy-import/internal/config"
	"github.com/JonMunkholm/taxonomy-import/internal/core"
	"github.com/JonMunkholm/taxonomy-import/internal/snapshot"
	"github.com/JonMunkholm/taxonomy-import/internal/web/middleware"
)

// ErrSnapshotNotLoaded is returned while no snapshot has been loaded yet.
var ErrSnapshotNotLoaded = errors.New("snapshot unavailable: not loaded yet")

// Server is the HTTP server for the import preview API.
type Server struct {
	cfg     *config.Config
	source  snapshot.Source
	limiter *PreviewLimiter
	metrics *metrics
	router  *chi.Mux
	server  *http.Server

	mu       sync.RWMutex
	snap     core.Snapshot
	loaded   bool
	loadedAt time.Time
}

// NewServer creates a new Server reading existing entities from source.
// The snapshot is empty until ReloadSnapshot succeeds.
func NewServer(cfg *config.Config, source snapshot.Source) *Server {
	s := &Server{
		cfg:     cfg,
		source:  source,
		limiter: NewPreviewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		metrics: getMetrics(),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Use(s.metrics.instrument)

		// Import file templates and exports
		r.Get("/template", s.handleTemplate)
		r.Get("/export", s.handleExport)

		// Preview analysis
		r.Post("/preview", s.handlePreview)

		// Rows back to import format
		r.Post("/serialize", s.handleSerialize)

		// Snapshot refresh
		r.Post("/snapshot/reload", s.handleReloadSnapshot)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for running previews.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for previews to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("previews did not complete in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ReloadSnapshot loads a fresh snapshot from the source and swaps it in.
// On failure the previous snapshot stays in use.
func (s *Server) ReloadSnapshot(ctx context.Context) error {
	start := time.Now()
	snap, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.snapshotReloads.WithLabelValues("error").Inc()
		return err
	}

	s.mu.Lock()
	s.snap = snap
	s.loaded = true
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.metrics.snapshotReloads.WithLabelValues("ok").Inc()
	s.metrics.snapshotEntities.Set(float64(len(snap)))
	slog.Info("snapshot loaded",
		"entities", len(snap),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Snapshot returns the snapshot currently in use. Callers must not modify it.
func (s *Server) Snapshot() (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, ErrSnapshotNotLoaded
	}
	return s.snap, nil
}

// snapshotInfo reports the size and age of the current snapshot.
func (s *Server) snapshotInfo() (entities int, loadedAt time.Time, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap), s.loadedAt, s.loaded
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The API serves no markup
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
