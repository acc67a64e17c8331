package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/newsrisk/internal/news"
)

type star struct {
	emailID   int64
	newsID    int64
	starredAt time.Time
}

// MemoryStore is an in-process Store for tests and DB_URL=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []news.Record
	emails  map[string]int64
	stars   []star
	nextID  int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{emails: map[string]int64{}}
}

func (m *MemoryStore) Save(_ context.Context, rec *news.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, cloneRecord(*rec))
	return nil
}

func (m *MemoryStore) FetchByDate(_ context.Context, day time.Time) ([]news.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	out := []news.Record{}
	for _, r := range m.records {
		t := r.CreatedAt.UTC()
		if !t.Before(start) && t.Before(end) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskPoint != out[j].RiskPoint {
			return out[i].RiskPoint > out[j].RiskPoint
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) SaveSubscriberEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addEmail(email), nil
}

func (m *MemoryStore) addEmail(email string) bool {
	if _, ok := m.emails[email]; ok {
		return false
	}
	m.emails[email] = int64(len(m.emails) + 1)
	return true
}

func (m *MemoryStore) SaveStar(_ context.Context, email string, newsID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addEmail(email)
	m.stars = append(m.stars, star{emailID: m.emails[email], newsID: newsID, starredAt: time.Now().UTC()})
	return nil
}

// Stars reports how many stars newsID has.
func (m *MemoryStore) Stars(newsID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.stars {
		if s.newsID == newsID {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Stats(ctx context.Context, day time.Time) (map[string]int, error) {
	recs, err := m.FetchByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	stats := map[string]int{"total_items": len(recs)}
	for _, r := range recs {
		stats[fmt.Sprintf("category_%s", r.Category)]++
	}
	return stats, nil
}

func (m *MemoryStore) Close() error { return nil }

func cloneRecord(r news.Record) news.Record {
	r.Keywords = slices.Clone(r.Keywords)
	r.Entities = slices.Clone(r.Entities)
	r.RuleHits = slices.Clone(r.RuleHits)
	return r
}
