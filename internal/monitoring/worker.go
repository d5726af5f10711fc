package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger removes stale data as part of the daily run.
type Purger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

// ParseTimeOfDay parses "HH:MM" into an offset from midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// NextRun returns the first instant after now that falls at offset past a
// UTC midnight.
func NextRun(now time.Time, offset time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(offset)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// StartDailyWorker runs the monitoring pass once a day at offset past UTC
// midnight, followed by the purge when purger is non-nil.
func StartDailyWorker(ctx context.Context, svc *Service, offset time.Duration, purger Purger, retention time.Duration) {
	go func() {
		slog.Info("Daily monitoring worker started", "run_at", offset.String())
		for {
			next := NextRun(svc.now(), offset)
			timer := time.NewTimer(time.Until(next))

			select {
			case <-timer.C:
				runDaily(ctx, svc, purger, retention)
			case <-ctx.Done():
				timer.Stop()
				slog.Info("Daily monitoring worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func runDaily(ctx context.Context, svc *Service, purger Purger, retention time.Duration) {
	if _, err := svc.RunDailyMonitoringPass(ctx); err != nil {
		slog.Error("Daily monitoring pass failed", "error", err)
	}

	if purger == nil || ctx.Err() != nil {
		return
	}
	if deleted, err := purger.PurgeRead(ctx, retention); err != nil {
		slog.Error("Notification cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("Notification cleanup completed", "deleted", deleted)
	}
}
