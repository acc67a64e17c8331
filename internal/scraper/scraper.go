// Package scraper downloads a news article page and extracts its readable text.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoContent is returned when a page parses but yields no article text.
var ErrNoContent = errors.New("no article content")

// Article is the extracted article.
type Article struct {
	Title   string
	Content string
	URL     string
}

// Extractor fetches pages and pulls out their body paragraphs.
type Extractor struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
}

type Option func(*Extractor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

func WithUserAgent(ua string) Option {
	return func(e *Extractor) { e.userAgent = ua }
}

func New(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With("component", "scraper"),
		userAgent: "Mozilla/5.0 (compatible; newsrisk/1.0)",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract gets the full text of the article at rawURL.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractContent(doc, hostOf(rawURL)))
	if content == "" {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNoContent)
	}
	e.logger.Debug("article extracted", "url", rawURL, "chars", len(content))

	return &Article{
		Title:   extractTitle(doc),
		Content: content,
		URL:     rawURL,
	}, nil
}

// Site-specific body selectors, tried before the generic ones.
var siteSelectors = map[string][]string{
	"trthaber.com": {".news-content p", ".detay-icerik p"},
	"ntv.com.tr":   {".content-news-tag-selector p", ".category-detail-content p"},
	"sozcu.com.tr": {".article-body p", ".news-content p"},
	"hurriyet.com": {".news-content p", ".rhd-all-article-detail p"},
	"cnnturk.com":  {".detail-content p", ".news-detail-text p"},
	"milliyet.com": {".news-content p", ".article__content p"},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	".text p",
	"p",
}

func extractContent(doc *goquery.Document, host string) string {
	for suffix, selectors := range siteSelectors {
		if strings.HasSuffix(host, suffix) {
			if content := collectParagraphs(doc, selectors, 10, 1); content != "" {
				return content
			}
			break
		}
	}
	return collectParagraphs(doc, genericSelectors, 20, 3)
}

// collectParagraphs walks selectors in order and stops once enough paragraphs
// longer than minLen have been gathered.
func collectParagraphs(doc *goquery.Document, selectors []string, minLen, enough int) string {
	var paragraphs []string
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > minLen {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= enough {
			break
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"meta[property='og:title']",
		"title",
		".article-title",
		".headline",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = strings.TrimSpace(sel.AttrOr("content", ""))
		}
		if title != "" {
			return title
		}
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var junkIndicators = []string{
	"çerez", "cookie", "kvkk", "reklam", "abone ol",
	"ilginizi çekebilir", "haberin devamı", "bizi takip edin",
	"tüm hakları saklıdır", "yorum yap",
}

const (
	maxContentLen    = 1800
	targetContentLen = 1600
)

// cleanContent drops junk lines, rebuilds paragraphs and caps the length at
// paragraph boundaries.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	var cleanLines []string
	var current strings.Builder
	flush := func() {
		if p := strings.TrimSpace(current.String()); len(p) > 30 {
			cleanLines = append(cleanLines, p)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) < 8 {
			flush()
			continue
		}
		if isJunk(line) {
			continue
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	flush()

	result := strings.Join(cleanLines, "\n\n")
	if len(result) <= maxContentLen {
		return result
	}

	var selected []string
	total := 0
	for _, p := range cleanLines {
		if total+len(p) >= targetContentLen {
			break
		}
		selected = append(selected, p)
		total += len(p) + 2
	}
	if len(selected) == 0 {
		return result
	}
	return strings.Join(selected, "\n\n")
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
