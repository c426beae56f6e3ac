// Package api serves visibility reports and catalog lookups over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/star/skytonight/internal/auth"
	"github.com/star/skytonight/internal/cache"
	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/config"
	"github.com/star/skytonight/internal/health"
	"github.com/star/skytonight/internal/httputil"
	"github.com/star/skytonight/internal/metrics"
	"github.com/star/skytonight/internal/visibility"
)

// Runner executes visibility runs.
type Runner interface {
	Run(ctx context.Context, req visibility.Request) (*visibility.Report, error)
}

// Objects answers catalog queries.
type Objects interface {
	Catalog() *catalog.Catalog
	Find(ctx context.Context, name string) (catalog.Object, error)
	Lookup(ctx context.Context, id string) (catalog.Metadata, error)
}

// ReportCache stores finished reports by request key.
type ReportCache interface {
	Enabled() bool
	Get(key string) (*visibility.Report, bool)
	Put(key string, report *visibility.Report)
	Stats() cache.Stats
}

// Deps are the services behind the HTTP handlers. Cache may be nil.
type Deps struct {
	Engine         Runner
	Objects        Objects
	Cache          ReportCache
	DefaultTargets []string
	Ready          []health.Check

	// LookupElevation reports that the engine resolves elevation per
	// location. Without it requests lacking an elevation are run at sea
	// level rather than at the configured site's elevation.
	LookupElevation bool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	deps       Deps
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a configured HTTP server.
func NewServer(cfg config.ServerConfig, authCfg auth.Config, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With("component", "api")
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(authCfg),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// routes builds the middleware chain and route table:
// metrics -> request id -> logging -> recoverer, then rate limit and auth on /api.
func (s *Server) routes(authCfg auth.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(requestID)
	r.Use(loggingMiddleware(s.logger, s.cfg.TrustProxy))
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.Middleware(authCfg))

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz(s.deps.Ready...))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit())
		r.Get("/tonight", s.handleTonight)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/catalog/{id}", s.handleCatalogObject)
		r.Get("/cache/stats", s.handleCacheStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// rateLimit limits API requests per client IP. A zero limit disables it.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.cfg.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	trustProxy := s.cfg.TrustProxy
	return httprate.Limit(
		s.cfg.RateLimit,
		s.cfg.RateWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return httputil.ClientIP(r, trustProxy), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

// Serve runs the server until ctx is cancelled, then shuts it down within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return ctx.Err()
}

// String names the server for supervisor logs.
func (s *Server) String() string {
	return "http-server"
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// requestID propagates or assigns an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r.Header.Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
				"request_id", r.Header.Get("X-Request-ID"),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
