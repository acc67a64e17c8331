// Package storage persists enriched news records and subscriber data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/newsrisk/internal/news"
)

// ErrUnavailable wraps driver failures: the store could not be reached or refused the write.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the full persistence surface used by the service.
type Store interface {
	news.RecordStore
	SaveSubscriberEmail(ctx context.Context, email string) (bool, error)
	SaveStar(ctx context.Context, email string, newsID int64) error
	Stats(ctx context.Context, day time.Time) (map[string]int, error)
	Close() error
}

// Open picks a backend from url: "postgres://..." or "postgresql://...",
// "sqlite://path", or "memory".
func Open(ctx context.Context, url string, logger *slog.Logger) (Store, error) {
	switch {
	case url == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgresStore(ctx, url, logger)
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite url %q has no path", url)
		}
		return NewSQLiteStore(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unsupported DB_URL %q", url)
	}
}
