package infra

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCDateString(t *testing.T) {
	at := time.Date(2026, 8, 29, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2026-08-29", UTCDateString(at))

	// A local time east of UTC can land on the previous UTC day.
	loc := time.FixedZone("UTC+9", 9*3600)
	late := time.Date(2026, 8, 30, 5, 0, 0, 0, loc)
	assert.Equal(t, "2026-08-29", UTCDateString(late))
}

func TestYesterdayUTC(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-28", YesterdayUTC(at))
}

func TestPreviousDay(t *testing.T) {
	assert.Equal(t, "2026-02-28", PreviousDay("2026-03-01"))
	assert.Equal(t, "2025-12-31", PreviousDay("2026-01-01"))
}

func TestDayBoundaryWatcher_FiresOncePerCrossing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewDayBoundaryWatcher(5*time.Millisecond, logger)

	// Stub clock: start on one day, cross at a controlled moment.
	var crossed atomic.Bool
	base := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	w.now = func() time.Time {
		if crossed.Load() {
			return base.Add(2 * time.Hour)
		}
		return base
	}

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx, func(day string) {
		assert.Equal(t, "2026-08-30", day)
		fired.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load(), "no crossing yet")

	crossed.Store(true)
	require.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// Several more polls on the same day must not re-fire.
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}
