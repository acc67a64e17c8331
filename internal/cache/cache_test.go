package cache

import (
	"testing"
	"time"
)

func TestSetGetAndExpiry(t *testing.T) {
	c := New[int](time.Hour)
	defer c.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 42, time.Minute)
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Fatalf("expected 42, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New[string](time.Hour)
	defer c.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("old", "x", time.Second)
	c.Set("new", "y", time.Hour)

	now = now.Add(time.Minute)
	c.cleanup()
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after cleanup, got %d", c.Len())
	}
}

func TestKeyIsStableAndSeparated(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatalf("keys for different part splits must differ")
	}
	if Key("x") != Key("x") {
		t.Fatalf("key must be deterministic")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New[int](time.Millisecond)
	c.Stop()
	c.Stop()
}
