// Package rss fetches news items from RSS/Atom feeds and keeps the registry
// of preset feeds and blocked sources.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsrisk/internal/news"
	"github.com/deusflow/newsrisk/internal/scraper"
)

// ArticleExtractor downloads the full text of an article page.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (*scraper.Article, error)
}

var _ ArticleExtractor = (*scraper.Extractor)(nil)

// Fetcher turns a feed URL into news items. In full mode it replaces each
// item's summary with the extracted article text when extraction succeeds.
type Fetcher struct {
	client        *http.Client
	extractor     ArticleExtractor
	logger        *slog.Logger
	now           func() time.Time
	fullModeLimit int
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithExtractor sets the extractor used when fast is false. Without one,
// full mode behaves like fast mode.
func WithExtractor(e ArticleExtractor) Option {
	return func(f *Fetcher) { f.extractor = e }
}

func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client:        &http.Client{Timeout: 20 * time.Second},
		logger:        logger.With("component", "rss"),
		now:           time.Now,
		fullModeLimit: 4,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads feedURL and returns at most maxItems items in feed order.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, maxItems int, fast bool) ([]news.Item, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	entries := feed.Items
	if maxItems >= 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	items := make([]news.Item, len(entries))
	for i, entry := range entries {
		items[i] = f.toItem(entry)
	}
	f.logger.Info("feed loaded", "url", feedURL, "items", len(items), "fast", fast)

	if !fast && f.extractor != nil {
		f.fillContent(ctx, items)
	}
	return items, nil
}

func (f *Fetcher) toItem(entry *gofeed.Item) news.Item {
	datetime := strings.TrimSpace(entry.Published)
	if datetime == "" {
		datetime = f.now().UTC().Format(time.RFC3339)
	}
	return news.Item{
		Title:    strings.TrimSpace(entry.Title),
		Source:   entry.Link,
		Datetime: datetime,
		Content:  strings.TrimSpace(entry.Description),
	}
}

// fillContent extracts full articles in parallel. A failed extraction keeps
// the feed summary.
func (f *Fetcher) fillContent(ctx context.Context, items []news.Item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fullModeLimit)

	for i := range items {
		if items[i].Source == "" {
			continue
		}
		g.Go(func() error {
			art, err := f.extractor.Extract(gctx, items[i].Source)
			if err != nil {
				f.logger.Warn("article extraction failed, keeping summary", "url", items[i].Source, "error", err)
				return nil
			}
			if text := strings.TrimSpace(art.Content); text != "" {
				items[i].Content = text
			}
			return nil
		})
	}
	_ = g.Wait()
}
