package news

import (
	"context"
	"strings"
	"time"

	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/risk"
)

// Item is one article as delivered by a feed or the scraper.
type Item struct {
	Title    string `json:"title"`
	Source   string `json:"source"`   // article URL
	Datetime string `json:"datetime"` // as given by the feed
	Content  string `json:"content"`
}

// Record is the unit of persistence: feed fields, analysis and risk in one value.
type Record struct {
	ID        int64             `json:"id,omitempty"`
	Title     string            `json:"title"`
	Source    string            `json:"source"`
	Datetime  string            `json:"datetime"`
	Category  string            `json:"category"`
	Sentiment string            `json:"sentiment"`
	Toxicity  float64           `json:"toxicity"`
	Keywords  []string          `json:"keywords"`
	Entities  []analysis.Entity `json:"entities"`
	RiskPoint int               `json:"risk_point"`
	RuleHits  []string          `json:"rule_hits"`
	CreatedAt time.Time         `json:"created_at"`
}

// Assemble copies the item, analysis and assessment fields into a Record
// stamped with the ingestion time. It neither validates nor clamps.
func Assemble(item Item, a analysis.Result, assess risk.Assessment, now time.Time) Record {
	return Record{
		Title:     item.Title,
		Source:    item.Source,
		Datetime:  item.Datetime,
		Category:  string(a.Category),
		Sentiment: string(a.Sentiment),
		Toxicity:  a.Toxicity,
		Keywords:  a.Keywords,
		Entities:  a.Entities,
		RiskPoint: assess.Point,
		RuleHits:  assess.Hits,
		CreatedAt: now,
	}
}

// AnalysisText is the text an item is analyzed and scored on: its content,
// or its title when the content is empty.
func AnalysisText(item Item) string {
	if c := strings.TrimSpace(item.Content); c != "" {
		return c
	}
	return strings.TrimSpace(item.Title)
}

// RecordStore persists records and reads them back by ingestion day.
type RecordStore interface {
	Save(ctx context.Context, rec *Record) error
	FetchByDate(ctx context.Context, day time.Time) ([]Record, error)
}

// Alerter decides whether a record warrants a notification and sends it.
// It reports whether the alert fired; delivery failures are its own concern.
type Alerter interface {
	Alert(ctx context.Context, rec Record) bool
}

// Analyzer never fails: implementations fall back to a neutral result.
type Analyzer interface {
	AnalyzeOrDefault(ctx context.Context, text string) analysis.Result
}
