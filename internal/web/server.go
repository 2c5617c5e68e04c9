// Package web provides the HTTP server for uploading task exports and
// reviewing import runs.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/taskimport/internal/config"
	"github.com/JonMunkholm/taskimport/internal/core"
	webmw "github.com/JonMunkholm/taskimport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// formOverhead is the multipart framing allowed on top of the file size cap.
const formOverhead = 1 << 20

// Server is the HTTP server for the importer.
type Server struct {
	service     *core.Service
	cfg         config.ServerConfig
	maxFileSize int64
	router      *chi.Mux
	server      *http.Server
}

// NewServer creates a Server that imports through service. maxFileSize caps
// uploads; zero means unlimited.
func NewServer(service *core.Service, cfg config.ServerConfig, maxFileSize int64) *Server {
	s := &Server{
		service:     service,
		cfg:         cfg,
		maxFileSize: maxFileSize,
		router:      chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/runs/{runID}", s.handleRunDetail)
	s.router.With(webmw.APIKey(s.cfg.APIKey)).Post("/import", s.handleImportForm)

	s.router.Route("/api", func(r chi.Router) {
		r.With(webmw.APIKey(s.cfg.APIKey)).Post("/import", s.handleImport)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/failed-rows", s.handleExportFailedRows)
	})
}

// Start listens on the configured address and serves until Shutdown. It
// returns nil after a graceful shutdown, including one that happened before
// Start was called.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "path", r.URL.Path, "error", err)
	}
}
