package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Budget caps daily requests per analysis provider and across all of them.
// A limit of 0 means unlimited.
type Budget struct {
	mu          sync.Mutex
	limits      map[string]int
	used        map[string]int
	maxTotal    int
	totalCount  int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
	now         func() time.Time
	logger      *slog.Logger
}

// NewBudget creates a budget with per-provider limits and an overall cap.
func NewBudget(limits map[string]int, maxTotal int, logger *slog.Logger) *Budget {
	if logger == nil {
		logger = slog.Default()
	}
	copied := make(map[string]int, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	b := &Budget{
		limits:   copied,
		used:     map[string]int{},
		maxTotal: maxTotal,
		now:      time.Now,
		logger:   logger.With("component", "ratelimit"),
	}
	b.resetTime = b.now().Add(24 * time.Hour) // Reset daily
	return b
}

// CanUse checks whether another request to provider fits the budget.
func (b *Budget) CanUse(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.check(provider) == nil
}

// Use records one request to provider or returns an error when the budget is spent.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if err := b.check(provider); err != nil {
		b.logger.Warn("request budget reached", "provider", provider, "used", b.used[provider], "total", b.totalCount)
		return err
	}

	b.used[provider]++
	b.totalCount++
	b.cacheMisses++
	b.logger.Debug("provider request", "provider", provider, "used", b.used[provider], "limit", b.limits[provider], "total", b.totalCount, "total_limit", b.maxTotal)
	return nil
}

// RecordCacheHit records a request served from the analysis cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) check(provider string) error {
	if limit := b.limits[provider]; limit > 0 && b.used[provider] >= limit {
		return fmt.Errorf("%s rate limit exceeded", provider)
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		return fmt.Errorf("total provider rate limit exceeded")
	}
	return nil
}

// cacheHitRate must be called with mu held.
func (b *Budget) cacheHitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// GetStats returns current budget statistics
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     b.totalCount,
		"total_limit":    b.maxTotal,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": b.cacheHitRate(),
		"reset_time":     b.resetTime,
	}
	for name, limit := range b.limits {
		stats[name+"_used"] = b.used[name]
		stats[name+"_limit"] = limit
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (b *Budget) checkReset() {
	now := b.now()
	if !now.After(b.resetTime) {
		return
	}
	b.logger.Info("resetting provider request budget", "total_used", b.totalCount, "cache_hits", b.cacheHits)

	b.used = map[string]int{}
	b.totalCount = 0
	b.cacheHits = 0
	b.cacheMisses = 0
	b.resetTime = now.Add(24 * time.Hour)
}
