// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsrisk/internal/alert"
	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/api"
	"github.com/deusflow/newsrisk/internal/cache"
	"github.com/deusflow/newsrisk/internal/config"
	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/news"
	"github.com/deusflow/newsrisk/internal/ratelimit"
	"github.com/deusflow/newsrisk/internal/rss"
	"github.com/deusflow/newsrisk/internal/scheduler"
	"github.com/deusflow/newsrisk/internal/scraper"
	"github.com/deusflow/newsrisk/internal/storage"
	"github.com/deusflow/newsrisk/internal/telegram"
)

// dailyMaxItems is how many items the scheduled job reads from each preset.
const dailyMaxItems = 10

// App holds the wired components. Build it with New and release it with Close.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Store    storage.Store
	Analyzer *analysis.Chain
	Budget   *ratelimit.Budget
	Policy   *alert.Policy
	Registry *rss.Registry
	Fetcher  *rss.Fetcher
	Enricher *news.Enricher

	closers []func() error
}

// New builds every component from cfg. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.Global}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Store, err = storage.Open(ctx, cfg.DBURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)

	if err := a.buildAnalyzer(ctx); err != nil {
		return nil, err
	}

	a.Policy = alert.NewPolicy(cfg.AlertThreshold, a.buildChannels(), logger, a.Metrics)
	a.closers = append(a.closers, a.Policy.Close)
	logger.Info("alert policy ready", "threshold", cfg.AlertThreshold, "channels", a.Policy.Channels())

	a.Registry, err = rss.NewRegistry(cfg.FeedsConfigPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	a.Fetcher = rss.NewFetcher(logger, rss.WithExtractor(scraper.New(logger)))

	a.Enricher = news.NewEnricher(a.Analyzer, a.Store, a.Policy, logger,
		news.WithConcurrency(cfg.EnrichConcurrency),
		news.WithMetrics(a.Metrics),
	)
	return a, nil
}

// buildAnalyzer composes the provider chain: the configured remote provider
// behind the cache and request budget, then the local heuristic provider.
func (a *App) buildAnalyzer(ctx context.Context) error {
	cfg := a.Config
	var primary analysis.Provider

	switch cfg.Provider {
	case "gemini":
		g, err := analysis.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		a.closers = append(a.closers, func() error { g.Close(); return nil })
		primary = g
	case "openai":
		o, err := analysis.NewOpenAIProvider(analysis.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			return fmt.Errorf("init openai: %w", err)
		}
		primary = o
	}

	providers := []analysis.Provider{}
	if primary != nil {
		limits := map[string]int{primary.Name(): cfg.MaxProviderRequests}
		a.Budget = ratelimit.NewBudget(limits, cfg.MaxProviderRequests, a.Logger)
		wrapped := analysis.Provider(analysis.NewBudgeted(primary, a.Budget))

		if cfg.AnalysisCacheTTL > 0 {
			store := cache.New[analysis.Result](10 * time.Minute)
			a.closers = append(a.closers, func() error { store.Stop(); return nil })
			wrapped = analysis.NewCached(wrapped, store, cfg.AnalysisCacheTTL, func() {
				a.Metrics.IncrementCacheHits()
				a.Budget.RecordCacheHit()
			})
		}
		providers = append(providers, wrapped)
	}
	providers = append(providers, analysis.NewHeuristicProvider())

	a.Analyzer = analysis.NewChain(a.Logger, providers...)
	a.Analyzer.OnFallback(func(string, error) { a.Metrics.IncrementProviderFallbacks() })
	a.Logger.Info("analysis chain ready", "chain", a.Analyzer.Name())
	return nil
}

// buildChannels returns every channel; disabled ones are nil and dropped by the policy.
func (a *App) buildChannels() []alert.Channel {
	cfg := a.Config

	var tg alert.Channel
	if cfg.TelegramToken != "" {
		tg = alert.NewTelegramChannel(telegram.NewClient(cfg.TelegramToken, a.Logger), cfg.TelegramChatID)
	}
	return []alert.Channel{
		alert.NewEmailChannel(alert.EmailConfig{
			To:   cfg.AlertEmailTo,
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
		}),
		alert.NewWebhookChannel(cfg.SlackWebhookURL, "slack"),
		tg,
		alert.NewKafkaChannel(cfg.KafkaBrokers, cfg.KafkaAlertTopic),
	}
}

// Server builds the HTTP API over the wired components.
func (a *App) Server() *api.Server {
	return api.New(api.Deps{
		Fetcher:  a.Fetcher,
		Registry: a.Registry,
		Enricher: a.Enricher,
		Analyzer: a.Analyzer,
		Store:    a.Store,
		Metrics:  a.Metrics,
		Budget:   a.Budget,
		Logger:   a.Logger,
	}, api.Options{
		DefaultMaxNews: a.Config.DefaultMaxNews,
		DefaultFast:    a.Config.DefaultFast,
		RateLimitRPS:   a.Config.RateLimitRPS,
		RateLimitBurst: a.Config.RateLimitBurst,
	})
}

// PresetRunner enriches presets with the given feed settings.
func (a *App) PresetRunner(maxItems int, fast bool) *scheduler.PresetRunner {
	return scheduler.NewPresetRunner(a.Registry, a.Fetcher, a.Enricher, maxItems, fast, a.Logger)
}

// Serve runs the API, the daily job and the feeds watcher until ctx is cancelled.
func (a *App) Serve(ctx context.Context, withScheduler bool) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server().ListenAndServe(gctx, ":"+strconv.Itoa(a.Config.APIPort))
	})

	if withScheduler {
		daily := scheduler.NewDaily(a.Config.CronHour, a.PresetRunner(dailyMaxItems, true).Job(), a.Logger)
		g.Go(func() error { return daily.Run(gctx) })
	}

	if a.Registry.Path() != "" {
		w, err := rss.NewWatcher(a.Registry)
		if err != nil {
			a.Logger.Warn("feeds hot reload disabled", "error", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	return g.Wait()
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
