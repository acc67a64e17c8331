package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deusflow/newsrisk/internal/news"
)

// Fetcher reads a feed into items.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, maxItems int, fast bool) ([]news.Item, error)
}

// Enricher runs the enrichment pipeline over a batch.
type Enricher interface {
	Enrich(ctx context.Context, items []news.Item) news.Batch
}

// Presets lists the feeds to process.
type Presets interface {
	Names() []string
	Lookup(name string) (string, bool)
}

// Summary counts what one pass over the presets did.
type Summary struct {
	Presets  int
	Failed   []string
	Records  int
	Alerted  int
	Failures int
}

// PresetRunner enriches every preset feed in turn.
type PresetRunner struct {
	presets  Presets
	fetcher  Fetcher
	enricher Enricher
	maxItems int
	fast     bool
	logger   *slog.Logger
}

func NewPresetRunner(presets Presets, fetcher Fetcher, enricher Enricher, maxItems int, fast bool, logger *slog.Logger) *PresetRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetRunner{
		presets:  presets,
		fetcher:  fetcher,
		enricher: enricher,
		maxItems: maxItems,
		fast:     fast,
		logger:   logger.With("component", "preset-runner"),
	}
}

// Run processes names, or every preset when names is empty. A preset that
// cannot be fetched is logged and skipped.
func (p *PresetRunner) Run(ctx context.Context, names ...string) (Summary, error) {
	if len(names) == 0 {
		names = p.presets.Names()
	}

	var sum Summary
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Presets++

		feedURL, ok := p.presets.Lookup(name)
		if !ok {
			p.logger.Warn("unknown preset", "preset", name)
			sum.Failed = append(sum.Failed, name)
			continue
		}
		items, err := p.fetcher.Fetch(ctx, feedURL, p.maxItems, p.fast)
		if err != nil {
			p.logger.Error("preset fetch failed", "preset", name, "url", feedURL, "error", err)
			sum.Failed = append(sum.Failed, name)
			continue
		}

		batch := p.enricher.Enrich(ctx, items)
		sum.Records += len(batch.Records)
		sum.Alerted += batch.Alerted
		sum.Failures += len(batch.Failures)
		p.logger.Info("preset enriched", "preset", name, "run_id", batch.RunID, "records", len(batch.Records), "alerted", batch.Alerted)
	}

	if sum.Presets > 0 && len(sum.Failed) == sum.Presets {
		return sum, errors.New("every preset failed")
	}
	if len(sum.Failed) > 0 {
		p.logger.Warn("some presets failed", "failed", fmt.Sprint(sum.Failed))
	}
	return sum, nil
}

// Job adapts the runner to the daily schedule.
func (p *PresetRunner) Job() Job {
	return func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}
}
