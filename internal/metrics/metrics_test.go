package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestCountersAndStats(t *testing.T) {
	m := New()
	m.IncrementItemsProcessed()
	m.IncrementItemsProcessed()
	m.IncrementAlertsTriggered()
	m.RecordProcessingTime(2 * time.Second)
	m.RecordProcessingTime(4 * time.Second)

	stats := m.GetStats()
	if stats["items_processed"] != int64(2) {
		t.Fatalf("expected 2 items, got %v", stats["items_processed"])
	}
	if stats["alerts_triggered"] != int64(1) {
		t.Fatalf("expected 1 alert, got %v", stats["alerts_triggered"])
	}
	if stats["average_processing_time_ms"] != int64(3000) {
		t.Fatalf("expected 3000ms average, got %v", stats["average_processing_time_ms"])
	}
}

func TestErrorFlipsHealth(t *testing.T) {
	m := New()
	m.SetError(errors.New("db down").Error())
	if m.GetStats()["is_healthy"] != false {
		t.Fatalf("expected unhealthy after error")
	}
	m.SetLastRun()
	if m.GetStats()["is_healthy"] != true {
		t.Fatalf("expected healthy after a run")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncrementRecordsSaved()
	m.SetError("x")
	m.RecordProcessingTime(time.Second)
}
