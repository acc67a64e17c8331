package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/newsrisk/internal/analysis"
	"github.com/deusflow/newsrisk/internal/news"
	"github.com/deusflow/newsrisk/internal/risk"
	"github.com/deusflow/newsrisk/internal/storage"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"ok":   true,
		"time": s.now().UTC().Format(time.RFC3339),
	}
	if s.deps.Metrics != nil {
		stats := s.deps.Metrics.GetStats()
		resp["last_run"] = stats["last_run_time"]
		resp["last_error"] = stats["last_error"]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}
	if s.deps.Metrics != nil {
		for k, v := range s.deps.Metrics.GetStats() {
			stats[k] = v
		}
	}
	if s.deps.Budget != nil {
		stats["provider_budget"] = s.deps.Budget.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.deps.Registry.Names()})
}

// feedParams reads max_news and fast, falling back to the configured defaults.
func (s *Server) feedParams(r *http.Request) (int, bool, error) {
	maxNews, fast := s.opts.DefaultMaxNews, s.opts.DefaultFast
	q := r.URL.Query()
	if v := q.Get("max_news"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, false, fmt.Errorf("invalid max_news %q", v)
		}
		maxNews = n
	}
	if v := q.Get("fast"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return 0, false, fmt.Errorf("invalid fast %q", v)
		}
		fast = b
	}
	return maxNews, fast, nil
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	feedURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if feedURL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	if s.deps.Registry.Blocked(feedURL) {
		writeError(w, http.StatusForbidden, "scraping not permitted for this source")
		return
	}
	maxNews, fast, err := s.feedParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.deps.Fetcher.Fetch(r.Context(), feedURL, maxNews, fast)
	if err != nil {
		s.logger.Error("feed fetch failed", "url", feedURL, "error", err)
		writeError(w, http.StatusBadGateway, "could not read feed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

type analyzeRequest struct {
	Metin string `json:"metin"`
	Text  string `json:"text"`
}

type analyzeResponse struct {
	analysis.Result
	RiskPoint int      `json:"risk_point"`
	RuleHits  []string `json:"rule_hits"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.Metin)
	if text == "" {
		text = strings.TrimSpace(req.Text)
	}
	if text == "" {
		writeError(w, http.StatusBadRequest, "missing 'metin'")
		return
	}

	result := s.deps.Analyzer.AnalyzeOrDefault(r.Context(), text)
	assess := risk.Compute(text, result)
	writeJSON(w, http.StatusOK, analyzeResponse{Result: result, RiskPoint: assess.Point, RuleHits: assess.Hits})
}

type newsResponse struct {
	RunID   string        `json:"run_id"`
	Data    []news.Record `json:"data"`
	Alerted int           `json:"alerted"`
	Errors  []string      `json:"errors,omitempty"`
}

// handleNews fetches a feed and enriches it. Items whose save failed are
// still returned, with the failure listed under errors.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	feedURL := strings.TrimSpace(q.Get("url"))
	if preset := q.Get("preset"); preset != "" {
		u, ok := s.deps.Registry.Lookup(preset)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown preset '%s'", preset))
			return
		}
		feedURL = u
	}
	if feedURL == "" {
		writeError(w, http.StatusBadRequest, "provide 'preset' or 'url'")
		return
	}
	if s.deps.Registry.Blocked(feedURL) {
		writeError(w, http.StatusForbidden, "scraping not permitted for this source")
		return
	}
	maxNews, fast, err := s.feedParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.deps.Fetcher.Fetch(r.Context(), feedURL, maxNews, fast)
	if err != nil {
		s.logger.Error("feed fetch failed", "url", feedURL, "error", err)
		writeError(w, http.StatusBadGateway, "could not read feed")
		return
	}

	batch := s.deps.Enricher.Enrich(r.Context(), items)
	resp := newsResponse{RunID: batch.RunID, Data: batch.Records, Alerted: batch.Alerted}
	if resp.Data == nil {
		resp.Data = []news.Record{}
	}
	for _, f := range batch.Failures {
		resp.Errors = append(resp.Errors, f.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNewsByDate(w http.ResponseWriter, r *http.Request) {
	day := s.now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}

	records, err := s.deps.Store.FetchByDate(r.Context(), day)
	if err != nil {
		s.storeError(w, "fetch by date", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": day.Format(time.DateOnly), "data": records})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email, ok := validEmail(req.Email)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing email")
		return
	}

	created, err := s.deps.Store.SaveSubscriberEmail(r.Context(), email)
	if err != nil {
		s.storeError(w, "save subscriber", err)
		return
	}
	msg := "Email registered successfully!"
	if !created {
		msg = "You are already subscribed."
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "created": created})
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		NewsID int64  `json:"news_id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email, ok := validEmail(req.Email)
	if !ok || req.NewsID <= 0 {
		writeError(w, http.StatusBadRequest, "email and news_id are required")
		return
	}

	if err := s.deps.Store.SaveStar(r.Context(), email, req.NewsID); err != nil {
		s.storeError(w, "save star", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "starred", "news_id": req.NewsID})
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("storage request failed", "op", op, "error", err)
	if errors.Is(err, storage.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func validEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}
