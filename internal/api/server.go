// Package api is the HTTP surface: feed scraping, on-demand enrichment,
// ad-hoc text analysis and read access to stored records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/news"
	"github.com/deusflow/newsrisk/internal/ratelimit"
	"github.com/deusflow/newsrisk/internal/rss"
)

// Fetcher reads a feed into items.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, maxItems int, fast bool) ([]news.Item, error)
}

// Enricher runs the analyze, score, persist and alert pipeline over a batch.
type Enricher interface {
	Enrich(ctx context.Context, items []news.Item) news.Batch
}

// Store is the part of storage the handlers need.
type Store interface {
	news.RecordStore
	SaveSubscriberEmail(ctx context.Context, email string) (bool, error)
	SaveStar(ctx context.Context, email string, newsID int64) error
}

var (
	_ Fetcher  = (*rss.Fetcher)(nil)
	_ Enricher = (*news.Enricher)(nil)
)

// Deps are the collaborators of the server. Budget may be nil.
type Deps struct {
	Fetcher  Fetcher
	Registry *rss.Registry
	Enricher Enricher
	Analyzer news.Analyzer
	Store    Store
	Metrics  *metrics.Metrics
	Budget   *ratelimit.Budget
	Logger   *slog.Logger
}

type Options struct {
	DefaultMaxNews int
	DefaultFast    bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	limiter *ipLimiter
	now     func() time.Time
}

func New(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	if opts.DefaultMaxNews <= 0 {
		opts.DefaultMaxNews = 8
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}
	return &Server{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		limiter: newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst, logger),
		now:     time.Now,
	}
}

// Handler builds the routing table. Everything except health and metrics is rate limited.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	limited := func(h http.HandlerFunc) http.Handler { return s.limiter.middleware(h) }

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("GET /api/presets", limited(s.handlePresets))
	mux.Handle("GET /scrape", limited(s.handleScrape))
	mux.Handle("POST /api/analyze", limited(s.handleAnalyze))
	mux.Handle("POST /metin_analiz", limited(s.handleAnalyze))
	mux.Handle("GET /api/news", limited(s.handleNews))
	mux.Handle("GET /api/news/by-date", limited(s.handleNewsByDate))
	mux.Handle("POST /api/subscribe", limited(s.handleSubscribe))
	mux.Handle("POST /api/star", limited(s.handleStar))

	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // full-mode enrichment downloads every article
		IdleTimeout:  120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.limiter.sweep(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
