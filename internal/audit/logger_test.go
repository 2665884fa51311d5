package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
}

func (p *fakePublisher) Publish(_ context.Context, _ string, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.messages = append(p.messages, value)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func newTestLogger(cfg Config) (*Logger, *repository.MemoryEventRepository, *fakePublisher) {
	events := repository.NewMemoryEventRepository()
	publisher := &fakePublisher{}
	l := NewLogger(events, nil, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	return l, events, publisher
}

func entry(userID uuid.UUID, severity domain.IssueSeverity) domain.AuditEntry {
	return domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     userID,
		EventType:  domain.EventProfileUpdated,
		Severity:   severity,
		Message:    "test entry",
		OccurredAt: time.Now().UTC(),
	}
}

func TestRecord_BuffersWithoutFlushing(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()

	l.Record(ctx, entry(uuid.New(), domain.SeverityLow))
	l.Record(ctx, entry(uuid.New(), domain.SeverityLow))

	assert.Equal(t, 2, l.Pending())
	assert.Empty(t, events.Entries())
}

func TestFlush_PersistsAndPublishes(t *testing.T) {
	l, events, publisher := newTestLogger(Config{})
	ctx := context.Background()

	l.Record(ctx, entry(uuid.New(), domain.SeverityLow))
	l.Flush(ctx)

	assert.Equal(t, 0, l.Pending())
	assert.Len(t, events.Entries(), 1)
	assert.Equal(t, 1, publisher.count())
}

func TestFlush_EmptyBufferIsNoOp(t *testing.T) {
	l, events, publisher := newTestLogger(Config{})

	l.Flush(context.Background())
	assert.Empty(t, events.Entries())
	assert.Equal(t, 0, publisher.count())
}

func TestRecord_FullBufferFlushesInline(t *testing.T) {
	l, events, _ := newTestLogger(Config{MaxBuffer: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Record(ctx, entry(uuid.New(), domain.SeverityLow))
	}

	assert.Equal(t, 0, l.Pending())
	assert.Len(t, events.Entries(), 3)
}

func TestRecord_ExploitFrequencyRaisesAlert(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		l.Record(ctx, entry(userID, domain.SeverityCritical))
	}
	l.Flush(ctx)

	var alerts []domain.AuditEntry
	for _, e := range events.Entries() {
		if e.EventType == domain.EventAlertRaised {
			alerts = append(alerts, e)
		}
	}
	require.Len(t, alerts, 1, "exactly one alert per window")
	assert.Equal(t, userID, alerts[0].UserID)
	assert.Equal(t, "repeated exploit activity", alerts[0].Message)
}

func TestRecord_AlertNotRepeatedInsideWindow(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 8; i++ {
		l.Record(ctx, entry(userID, domain.SeverityCritical))
	}
	l.Flush(ctx)

	alertCount := 0
	for _, e := range events.Entries() {
		if e.EventType == domain.EventAlertRaised {
			alertCount++
		}
	}
	assert.Equal(t, 1, alertCount)
}

func TestRecord_ExploitCountsArePerUser(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Record(ctx, entry(uuid.New(), domain.SeverityCritical))
	}
	l.Flush(ctx)

	for _, e := range events.Entries() {
		assert.NotEqual(t, domain.EventAlertRaised, e.EventType)
	}
}

func TestFlush_RequeuesBatchOnPersistFailure(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()

	events.FailAppends = 1
	l.Record(ctx, entry(uuid.New(), domain.SeverityLow))

	l.Flush(ctx)
	assert.Equal(t, 1, l.Pending(), "batch kept for retry")

	l.Flush(ctx)
	assert.Equal(t, 0, l.Pending())
	assert.Len(t, events.Entries(), 1)
}

func TestPublishFailureDoesNotBlockPersistence(t *testing.T) {
	l, events, publisher := newTestLogger(Config{})
	ctx := context.Background()

	publisher.fail = true
	l.Record(ctx, entry(uuid.New(), domain.SeverityLow))
	l.Flush(ctx)

	assert.Len(t, events.Entries(), 1)
	assert.Equal(t, 0, publisher.count())
}

func TestRecentAlerts(t *testing.T) {
	l, events, _ := newTestLogger(Config{})
	ctx := context.Background()

	require.NoError(t, events.Append(ctx, nil, &domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		EventType:  domain.EventAlertRaised,
		Severity:   domain.SeverityCritical,
		OccurredAt: time.Now().UTC(),
	}))

	alerts, err := l.RecentAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}
