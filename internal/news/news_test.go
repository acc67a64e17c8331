package news

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/logger"
	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/risk"
)

type fakeAnalyzer struct {
	byText map[string]analysis.Result
}

func (f fakeAnalyzer) AnalyzeOrDefault(_ context.Context, text string) analysis.Result {
	if r, ok := f.byText[text]; ok {
		return r
	}
	return analysis.Neutral()
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []Record
	failFor string
	nextID  int64
}

func (s *fakeStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor != "" && strings.Contains(rec.Title, s.failFor) {
		return errors.New("db down")
	}
	s.nextID++
	rec.ID = s.nextID
	s.saved = append(s.saved, *rec)
	return nil
}

func (s *fakeStore) FetchByDate(context.Context, time.Time) ([]Record, error) { return nil, nil }

type fakeAlerter struct {
	mu        sync.Mutex
	threshold int
	seen      []string
}

func (a *fakeAlerter) Alert(_ context.Context, rec Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, rec.Title)
	return rec.RiskPoint >= a.threshold
}

func TestAssembleCopiesFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	item := Item{Title: "T", Source: "https://x", Datetime: "yesterday", Content: "c"}
	a := analysis.Result{Category: "Foo", Sentiment: analysis.SentimentNegative, Toxicity: 1.5,
		Keywords: []string{"k"}, Entities: []analysis.Entity{{Text: "Ankara"}}}
	assess := risk.Assessment{Point: 4, Hits: []string{"h"}}

	rec := Assemble(item, a, assess, now)
	want := Record{Title: "T", Source: "https://x", Datetime: "yesterday", Category: "Foo", Sentiment: "Negative",
		Toxicity: 1.5, Keywords: []string{"k"}, Entities: []analysis.Entity{{Text: "Ankara"}},
		RiskPoint: 4, RuleHits: []string{"h"}, CreatedAt: now}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("got %+v\nwant %+v", rec, want)
	}
}

func TestAnalysisTextPrefersContent(t *testing.T) {
	t.Parallel()

	if got := AnalysisText(Item{Title: "title", Content: "  body "}); got != "body" {
		t.Fatalf("expected content, got %q", got)
	}
	if got := AnalysisText(Item{Title: " title ", Content: "   "}); got != "title" {
		t.Fatalf("expected title fallback, got %q", got)
	}
}

func TestEnrichScoresSavesAndAlerts(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Title: "quiet", Content: "sakin bir gün"},
		{Title: "quake", Content: "büyük deprem ve tsunami"},
	}
	analyzer := fakeAnalyzer{byText: map[string]analysis.Result{
		"büyük deprem ve tsunami": {Category: analysis.CategoryDisaster, Sentiment: analysis.SentimentNegative, Toxicity: 0.2},
	}}
	store := &fakeStore{}
	alerter := &fakeAlerter{threshold: 7}
	m := metrics.New()

	e := NewEnricher(analyzer, store, alerter, logger.Discard(), WithConcurrency(2), WithMetrics(m))
	batch := e.Enrich(context.Background(), items)

	if batch.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if len(batch.Records) != 2 || batch.Records[0].Title != "quiet" || batch.Records[1].Title != "quake" {
		t.Fatalf("records must keep input order: %+v", batch.Records)
	}
	// deprem 50 + tsunami 40 + Disaster 20 + toxicity 2 + Negative 5 = 117
	if batch.Records[1].RiskPoint != 10 {
		t.Fatalf("expected risk 10, got %d", batch.Records[1].RiskPoint)
	}
	if batch.Records[0].RiskPoint != 0 || batch.Records[0].Category != "Other" {
		t.Fatalf("expected neutral record, got %+v", batch.Records[0])
	}
	if batch.Alerted != 1 {
		t.Fatalf("expected one alert, got %d", batch.Alerted)
	}
	if len(store.saved) != 2 || len(batch.Failures) != 0 {
		t.Fatalf("expected 2 saved without failures, got %d / %v", len(store.saved), batch.Failures)
	}
	if m.GetStats()["items_processed"] != int64(2) {
		t.Fatalf("metrics not updated: %v", m.GetStats())
	}
}

func TestEnrichIsolatesSaveFailures(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Title: "ok-1", Content: "bomba"},
		{Title: "broken", Content: "rehine krizi"},
		{Title: "ok-2", Content: "yangın"},
	}
	store := &fakeStore{failFor: "broken"}
	alerter := &fakeAlerter{threshold: 0}

	e := NewEnricher(fakeAnalyzer{}, store, alerter, logger.Discard(), WithConcurrency(1))
	batch := e.Enrich(context.Background(), items)

	if len(batch.Records) != 3 {
		t.Fatalf("expected all records back, got %d", len(batch.Records))
	}
	if len(batch.Failures) != 1 || batch.Failures[0].Index != 1 || batch.Failures[0].Stage != "save" {
		t.Fatalf("unexpected failures: %+v", batch.Failures)
	}
	if batch.Records[1].ID != 0 || batch.Records[1].RiskPoint != 4 {
		t.Fatalf("failed record should be returned unsaved and scored: %+v", batch.Records[1])
	}
	if len(alerter.seen) != 3 {
		t.Fatalf("alerting must still run for every item, saw %v", alerter.seen)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(store.saved))
	}
}

func TestEnrichWithoutStoreOrAlerter(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewEnricher(fakeAnalyzer{}, nil, nil, nil, WithClock(func() time.Time { return fixed }))
	batch := e.Enrich(context.Background(), []Item{{Title: "sel baskını"}})
	if len(batch.Records) != 1 || !batch.Records[0].CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.Records[0].RiskPoint != 2 {
		t.Fatalf("expected title-only scoring to hit sel, got %d", batch.Records[0].RiskPoint)
	}
}

func TestEnrichEmptyBatch(t *testing.T) {
	t.Parallel()

	batch := NewEnricher(fakeAnalyzer{}, nil, nil, logger.Discard()).Enrich(context.Background(), nil)
	if len(batch.Records) != 0 || len(batch.Failures) != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}
