package rss

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads a Registry when its feeds file changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	file     string
}

// NewWatcher watches the directory of the registry's file, so editors that
// replace the file on save are still seen.
func NewWatcher(r *Registry) (*Watcher, error) {
	if r.Path() == "" {
		return nil, fmt.Errorf("registry has no backing file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	file, err := filepath.Abs(r.Path())
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(file)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(file), err)
	}
	return &Watcher{watcher: w, registry: r, file: file}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					if err := w.registry.Reload(); err != nil {
						w.registry.logger.Error("feeds reload failed", "path", w.file, "error", err)
					}
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.registry.logger.Warn("file watcher error", "error", err)
		}
	}
}
