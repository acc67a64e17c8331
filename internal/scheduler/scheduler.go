// Package scheduler runs the daily preset enrichment.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Daily fires a job once a day at a fixed UTC hour.
type Daily struct {
	hour   int
	job    Job
	logger *slog.Logger
	now    func() time.Time
}

func NewDaily(hour int, job Job, logger *slog.Logger) *Daily {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daily{
		hour:   hour,
		job:    job,
		logger: logger.With("component", "scheduler"),
		now:    time.Now,
	}
}

// NextRun returns the first time at hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled. A failing run is logged and the schedule continues.
func (d *Daily) Run(ctx context.Context) error {
	for {
		next := NextRun(d.now(), d.hour)
		d.logger.Info("next scheduled run", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		start := time.Now()
		if err := d.job(ctx); err != nil {
			d.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
			continue
		}
		d.logger.Info("scheduled run finished", "duration", time.Since(start))
	}
}
