package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/logger"
	"github.com/deusflow/newsrisk/internal/metrics"
	"github.com/deusflow/newsrisk/internal/news"
	"github.com/deusflow/newsrisk/internal/rss"
	"github.com/deusflow/newsrisk/internal/storage"
)

type fakeFetcher struct {
	items   []news.Item
	err     error
	gotURL  string
	gotMax  int
	gotFast bool
}

func (f *fakeFetcher) Fetch(_ context.Context, feedURL string, maxItems int, fast bool) ([]news.Item, error) {
	f.gotURL, f.gotMax, f.gotFast = feedURL, maxItems, fast
	if f.err != nil {
		return nil, f.err
	}
	if maxItems < len(f.items) {
		return f.items[:maxItems], nil
	}
	return f.items, nil
}

type testEnv struct {
	srv     *httptest.Server
	fetcher *fakeFetcher
	store   *storage.MemoryStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	fetcher := &fakeFetcher{items: []news.Item{
		{Title: "Deprem", Source: "https://example.com/1", Datetime: "2025-01-01", Content: "Büyük deprem ve tsunami uyarısı"},
		{Title: "Maç", Source: "https://example.com/2", Datetime: "2025-01-01", Content: "Takım maçı kazandı"},
	}}
	store := storage.NewMemoryStore()
	chain := analysis.NewChain(logger.Discard(), analysis.NewHeuristicProvider())
	m := metrics.New()

	s := New(Deps{
		Fetcher:  fetcher,
		Registry: rss.NewStaticRegistry(rss.DefaultFeeds()),
		Enricher: news.NewEnricher(chain, store, nil, logger.Discard(), news.WithMetrics(m)),
		Analyzer: chain,
		Store:    store,
		Metrics:  m,
		Logger:   logger.Discard(),
	}, opts)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, fetcher: fetcher, store: store}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthAndPresets(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})

	resp, body := env.get(t, "/health")
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Fatalf("unexpected health response %d %v", resp.StatusCode, body)
	}

	_, body = env.get(t, "/api/presets")
	presets, _ := body["presets"].([]any)
	if len(presets) == 0 || presets[0] != "TRT_Manset" {
		t.Fatalf("unexpected presets %v", body)
	}
}

func TestScrape(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{DefaultMaxNews: 8, DefaultFast: true})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"missing url", "/scrape", http.StatusBadRequest},
		{"blocked host", "/scrape?url=https://www.haberturk.com/rss", http.StatusForbidden},
		{"blocked path", "/scrape?url=https://www.aa.com.tr/tr/teyithatti/rss", http.StatusForbidden},
		{"bad max_news", "/scrape?url=https://example.com/rss&max_news=x", http.StatusBadRequest},
		{"ok", "/scrape?url=https://example.com/rss&max_news=1&fast=0", http.StatusOK},
	}
	for _, tt := range tests {
		resp, _ := env.get(t, tt.path)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.status, resp.StatusCode)
		}
	}
	if env.fetcher.gotMax != 1 || env.fetcher.gotFast {
		t.Fatalf("query params not forwarded: max=%d fast=%v", env.fetcher.gotMax, env.fetcher.gotFast)
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})

	resp, body := env.post(t, "/api/analyze", map[string]string{"metin": "Deprem sonrası tsunami uyarısı"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body["category"] != "Disaster" || body["risk_point"] != float64(10) {
		t.Fatalf("unexpected analysis %v", body)
	}
	if hits, _ := body["rule_hits"].([]any); len(hits) == 0 {
		t.Fatalf("expected rule hits, got %v", body["rule_hits"])
	}

	resp, body = env.post(t, "/metin_analiz", map[string]string{"text": "Ekonomi büyüdü"})
	if resp.StatusCode != http.StatusOK || body["category"] == nil {
		t.Fatalf("text alias not accepted: %d %v", resp.StatusCode, body)
	}

	resp, _ = env.post(t, "/api/analyze", map[string]string{"metin": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", resp.StatusCode)
	}
}

func TestNewsEnrichesAndStores(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{DefaultMaxNews: 8, DefaultFast: true})

	resp, _ := env.get(t, "/api/news?preset=Unknown")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown preset, got %d", resp.StatusCode)
	}
	resp, _ = env.get(t, "/api/news")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without preset or url, got %d", resp.StatusCode)
	}
	resp, _ = env.get(t, "/api/news?url=https://haberturk.com/rss")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp, body := env.get(t, "/api/news?preset=TRT_Manset")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %v", resp.StatusCode, body)
	}
	if env.fetcher.gotURL != "https://www.trthaber.com/manset.rss" {
		t.Fatalf("preset not resolved, fetched %q", env.fetcher.gotURL)
	}
	data, _ := body["data"].([]any)
	if len(data) != 2 || body["run_id"] == "" {
		t.Fatalf("unexpected enrichment response %v", body)
	}
	first := data[0].(map[string]any)
	if first["risk_point"] != float64(10) || first["title"] != "Deprem" {
		t.Fatalf("records must keep feed order and carry risk: %v", first)
	}

	created := first["created_at"].(string)
	resp, body = env.get(t, "/api/news/by-date?date="+created[:10])
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	stored, _ := body["data"].([]any)
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored records, got %d", len(stored))
	}
	if stored[0].(map[string]any)["risk_point"] != float64(10) {
		t.Fatalf("by-date must order by risk desc: %v", stored[0])
	}
}

func TestNewsFeedFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})
	env.fetcher.err = errors.New("timeout")

	resp, _ := env.get(t, "/api/news?url=https://example.com/rss")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestNewsByDateValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})

	resp, _ := env.get(t, "/api/news/by-date?date=01-02-2025")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp, body := env.get(t, "/api/news/by-date?date=1999-01-01")
	if data, ok := body["data"].([]any); resp.StatusCode != http.StatusOK || !ok || len(data) != 0 {
		t.Fatalf("empty day must return an empty list: %d %v", resp.StatusCode, body)
	}
}

func TestSubscribeAndStar(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})

	_, body := env.post(t, "/api/subscribe", map[string]string{"email": "Reader@Example.com"})
	if body["created"] != true {
		t.Fatalf("first subscribe must create: %v", body)
	}
	_, body = env.post(t, "/api/subscribe", map[string]string{"email": "reader@example.com"})
	if body["created"] != false || !strings.Contains(body["message"].(string), "already") {
		t.Fatalf("second subscribe must be idempotent: %v", body)
	}
	resp, _ := env.post(t, "/api/subscribe", map[string]string{"email": "not-an-email"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, _ = env.post(t, "/api/star", map[string]any{"email": "new@example.com", "news_id": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without news_id, got %d", resp.StatusCode)
	}
	resp, _ = env.post(t, "/api/star", map[string]any{"email": "new@example.com", "news_id": 3})
	if resp.StatusCode != http.StatusOK || env.store.Stars(3) != 1 {
		t.Fatalf("star not saved: %d", resp.StatusCode)
	}
	_, body = env.post(t, "/api/subscribe", map[string]string{"email": "new@example.com"})
	if body["created"] != false {
		t.Fatalf("starring must register the e-mail")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	resp, _ := env.get(t, "/api/presets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request must pass, got %d", resp.StatusCode)
	}
	resp, _ = env.get(t, "/api/presets")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request must be limited, got %d", resp.StatusCode)
	}
	resp, _ = env.get(t, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health is not rate limited, got %d", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, Options{})
	env.get(t, "/api/news?url=https://example.com/rss")

	_, body := env.get(t, "/metrics")
	if body["items_processed"] != float64(2) || body["records_saved"] != float64(2) {
		t.Fatalf("unexpected metrics %v", body)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Errorf("unexpected ip %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.5" {
		t.Errorf("unexpected forwarded ip %q", got)
	}
}
