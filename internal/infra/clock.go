package infra

import (
	"context"
	"log/slog"
	"time"
)

// UTCDateString formats t as a UTC calendar day, the canonical form for
// daily-reset and streak comparisons.
func UTCDateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// YesterdayUTC returns the UTC day string for the day before t.
func YesterdayUTC(t time.Time) string {
	return UTCDateString(t.UTC().AddDate(0, 0, -1))
}

// PreviousDay returns the day string before the given UTC day string. An
// unparseable input falls back to yesterday relative to now.
func PreviousDay(day string) string {
	t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		return YesterdayUTC(time.Now())
	}
	return UTCDateString(t.AddDate(0, 0, -1))
}

// DayBoundaryWatcher fires a callback exactly once per UTC-day crossing. It
// compares day values on a polling interval instead of scheduling an exact
// midnight timer, so a host that sleeps through midnight still fires the
// callback on wake.
type DayBoundaryWatcher struct {
	interval time.Duration
	logger   *slog.Logger
	lastDay  string
	now      func() time.Time
}

// NewDayBoundaryWatcher creates a watcher polling at the given interval.
func NewDayBoundaryWatcher(interval time.Duration, logger *slog.Logger) *DayBoundaryWatcher {
	return &DayBoundaryWatcher{
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins polling in a goroutine. onCrossing receives the new UTC day
// string. Stops when ctx is cancelled.
func (w *DayBoundaryWatcher) Start(ctx context.Context, onCrossing func(day string)) {
	w.lastDay = UTCDateString(w.now())
	w.logger.Info("day boundary watcher started", "interval", w.interval, "day", w.lastDay)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("day boundary watcher stopped")
				return
			case <-ticker.C:
				day := UTCDateString(w.now())
				if day != w.lastDay {
					w.logger.Info("utc day boundary crossed", "from", w.lastDay, "to", day)
					w.lastDay = day
					onCrossing(day)
				}
			}
		}
	}()
}
