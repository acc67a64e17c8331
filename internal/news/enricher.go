package news

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/risk"
)

// ItemError records a per-item failure that did not stop the batch.
type ItemError struct {
	Index int
	Title string
	Stage string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d (%s) failed at %s: %v", e.Index, e.Title, e.Stage, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Batch is the outcome of one enrichment pass. Records keeps input order and
// includes records whose save failed; those have ID 0 and a matching entry in Failures.
type Batch struct {
	RunID    string
	Records  []Record
	Alerted  int
	Failures []ItemError
}

// Enricher drives analyze, score, persist and alert for each item.
type Enricher struct {
	analyzer    Analyzer
	store       RecordStore
	alerter     Alerter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

type EnricherOption func(*Enricher)

func WithConcurrency(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) EnricherOption {
	return func(e *Enricher) { e.metrics = m }
}

func WithClock(now func() time.Time) EnricherOption {
	return func(e *Enricher) { e.now = now }
}

// NewEnricher wires the pipeline. store and alerter may be nil to skip those steps.
func NewEnricher(analyzer Analyzer, store RecordStore, alerter Alerter, logger *slog.Logger, opts ...EnricherOption) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enricher{
		analyzer:    analyzer,
		store:       store,
		alerter:     alerter,
		logger:      logger.With("component", "enricher"),
		concurrency: 4,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich processes items in parallel up to the configured concurrency. Steps for
// a single item run in order; a failing item never aborts the others.
func (e *Enricher) Enrich(ctx context.Context, items []Item) Batch {
	startTime := time.Now()
	batch := Batch{RunID: uuid.NewString(), Records: make([]Record, len(items))}
	logger := e.logger.With("run_id", batch.RunID)
	logger.Info("enrichment started", "items", len(items))

	var (
		mu      sync.Mutex
		alerted int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, item := range items {
		g.Go(func() error {
			rec, fired, err := e.process(gctx, logger, item)
			batch.Records[i] = rec

			mu.Lock()
			defer mu.Unlock()
			if fired {
				alerted++
			}
			if err != nil {
				batch.Failures = append(batch.Failures, ItemError{Index: i, Title: item.Title, Stage: "save", Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batch.Failures, func(a, b int) bool { return batch.Failures[a].Index < batch.Failures[b].Index })
	batch.Alerted = alerted

	e.metrics.RecordProcessingTime(time.Since(startTime))
	if len(batch.Failures) > 0 {
		e.metrics.SetError(batch.Failures[0].Error())
	} else {
		e.metrics.SetLastRun()
	}
	logger.Info("enrichment finished", "records", len(batch.Records), "alerted", batch.Alerted, "failures", len(batch.Failures))
	return batch
}

// process runs one item through the pipeline. The returned error is a storage
// failure; the record is still returned and still offered to the alerter.
func (e *Enricher) process(ctx context.Context, logger *slog.Logger, item Item) (Record, bool, error) {
	e.metrics.IncrementItemsProcessed()

	text := AnalysisText(item)
	a := e.analyzer.AnalyzeOrDefault(ctx, text)
	assess := risk.Compute(text, a)
	rec := Assemble(item, a, assess, e.now())

	var saveErr error
	if e.store != nil {
		if err := e.store.Save(ctx, &rec); err != nil {
			saveErr = err
			e.metrics.IncrementSaveFailures()
			logger.Error("failed to save record", "title", item.Title, "error", err)
		} else {
			e.metrics.IncrementRecordsSaved()
		}
	}

	fired := false
	if e.alerter != nil {
		fired = e.alerter.Alert(ctx, rec)
	}
	logger.Debug("item enriched", "title", item.Title, "risk_point", rec.RiskPoint, "category", rec.Category, "alerted", fired)
	return rec, fired, saveErr
}
