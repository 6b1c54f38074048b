// Package api provides the HTTP server for the yield-curve viewer.
//
// It exposes the processed dataset, per-date curve snapshots, slopes,
// tenor changes, rolling vol, the cross-country spread, release
// announcements, rendered chart artifacts, and WebSocket refresh
// notifications.
package api

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/internal/pipeline"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/internal/releases"
	"github.com/curvewatch/curvewatch/internal/report"
	"github.com/curvewatch/curvewatch/web"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	registry *provider.Registry
	runner   *pipeline.Runner
	renderer *report.Renderer
	feed     *releases.Feed
	wsHub    *WSHub
	logger   *zap.Logger
	serveUI  bool

	mu      sync.RWMutex
	frame   *dataset.Frame
	frameAt time.Time // processed-file mtime the cached frame was loaded from

	refreshMu sync.Mutex // one refresh at a time
}

// NewServer creates a configured API server with all routes and
// middleware. A nil logger is replaced with a no-op one.
func NewServer(cfg *config.Config, reg *provider.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		registry: reg,
		runner:   pipeline.NewRunner(cfg, reg, logger),
		renderer: report.NewRenderer(cfg),
		feed:     releases.New(),
		wsHub:    NewWSHub(logger),
		logger:   logger,
		serveUI:  true,
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded viewer is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown on
// SIGINT/SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Processed dataset
		r.Get("/dataset", s.handleDataset)
		r.Get("/curve", s.handleCurve)
		r.Get("/slopes", s.handleSlopes)
		r.Get("/changes/{country}", s.handleChanges)
		r.Get("/vol", s.handleVol)
		r.Get("/spread", s.handleSpread)

		// Upstream metadata
		r.Get("/providers", s.handleProviders)
		r.Get("/releases", s.handleReleases)
		r.Get("/config/keys", s.handleConfigKeys)

		// Artifacts & refresh
		r.Get("/charts/{name}", s.handleChart)
		r.Post("/refresh", s.handleRefresh)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	if s.serveUI {
		s.mountStatic(r, web.StaticFS())
	}
	return r
}

// mountStatic serves the embedded viewer, falling back to index.html.
func (s *Server) mountStatic(r chi.Router, staticFS fs.FS) {
	fileServer := http.FileServerFS(staticFS)

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		rPath := strings.TrimPrefix(req.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}
		if f, err := staticFS.Open(rPath); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, req)
			return
		}
		data, err := fs.ReadFile(staticFS, "index.html")
		if err != nil {
			http.Error(w, "viewer not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck
	})
}

// frameCached returns the processed frame, reloading from disk when the
// processed file changed.
func (s *Server) frameCached() (*dataset.Frame, error) {
	mt, err := dataset.ModTime(s.cfg.Data.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("no processed dataset, run the pipeline first: %w", err)
	}

	s.mu.RLock()
	if s.frame != nil && !mt.After(s.frameAt) {
		f := s.frame
		s.mu.RUnlock()
		return f, nil
	}
	s.mu.RUnlock()

	f, err := dataset.Load(s.cfg.Data.ProcessedDir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.frame = f
	s.frameAt = mt
	s.mu.Unlock()
	return f, nil
}
