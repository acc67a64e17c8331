package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsProcessed    int64
	RecordsSaved      int64
	SaveFailures      int64
	ProviderFallbacks int64
	AlertsTriggered   int64
	ChannelFailures   int64
	CacheHits         int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

func (m *Metrics) IncrementItemsProcessed() {
	if m != nil {
		m.add(&m.ItemsProcessed)
	}
}

func (m *Metrics) IncrementRecordsSaved() {
	if m != nil {
		m.add(&m.RecordsSaved)
	}
}

func (m *Metrics) IncrementSaveFailures() {
	if m != nil {
		m.add(&m.SaveFailures)
	}
}

func (m *Metrics) IncrementProviderFallbacks() {
	if m != nil {
		m.add(&m.ProviderFallbacks)
	}
}

func (m *Metrics) IncrementAlertsTriggered() {
	if m != nil {
		m.add(&m.AlertsTriggered)
	}
}

func (m *Metrics) IncrementChannelFailures() {
	if m != nil {
		m.add(&m.ChannelFailures)
	}
}

func (m *Metrics) IncrementCacheHits() {
	if m != nil {
		m.add(&m.CacheHits)
	}
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"items_processed":            m.ItemsProcessed,
		"records_saved":              m.RecordsSaved,
		"save_failures":              m.SaveFailures,
		"provider_fallbacks":         m.ProviderFallbacks,
		"alerts_triggered":           m.AlertsTriggered,
		"channel_failures":           m.ChannelFailures,
		"analysis_cache_hits":        m.CacheHits,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
