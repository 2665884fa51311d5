// Package audit buffers gamification activity records and raises alerts on
// abuse patterns. Records are flushed to the event log and the broker on an
// interval instead of per write.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/guard"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
)

const (
	// AuditTopic is the Kafka topic audit records are mirrored to.
	AuditTopic = "hub.audit.activity"

	exploitAlertThreshold = 5
	exploitAlertWindow    = 10 * time.Minute
)

// Publisher sends raw messages to the broker. *infra.KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Config tunes the logger. Zero values fall back to defaults.
type Config struct {
	MaxBuffer     int
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxBuffer == 0 {
		c.MaxBuffer = 500
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Minute
	}
	return c
}

// Logger is the buffered activity recorder. It satisfies the validation
// middleware's Monitor interface.
type Logger struct {
	cfg       Config
	events    repository.EventRepository
	db        repository.DBTX
	publisher Publisher
	breaker   *guard.CircuitBreaker
	logger    *slog.Logger

	mu       sync.Mutex
	buffer   []domain.AuditEntry
	exploits map[uuid.UUID][]time.Time
	alerted  map[uuid.UUID]time.Time
}

// NewLogger creates the audit logger. publisher may be nil.
func NewLogger(events repository.EventRepository, db repository.DBTX, publisher Publisher, logger *slog.Logger, cfg Config) *Logger {
	return &Logger{
		cfg:       cfg.withDefaults(),
		events:    events,
		db:        db,
		publisher: publisher,
		breaker:   guard.NewCircuitBreaker(5, 30*time.Second),
		logger:    logger,
		exploits:  make(map[uuid.UUID][]time.Time),
		alerted:   make(map[uuid.UUID]time.Time),
	}
}

// Record buffers one entry. Critical entries feed the exploit-frequency rule;
// a full buffer flushes inline.
func (l *Logger) Record(ctx context.Context, entry domain.AuditEntry) {
	l.mu.Lock()
	l.buffer = append(l.buffer, entry)

	if entry.Severity == domain.SeverityCritical {
		if alert := l.trackExploitLocked(entry); alert != nil {
			l.buffer = append(l.buffer, *alert)
			l.logger.Error("exploit frequency alert",
				"user_id", entry.UserID, "threshold", exploitAlertThreshold, "window", exploitAlertWindow)
		}
	}

	full := len(l.buffer) >= l.cfg.MaxBuffer
	l.mu.Unlock()

	if full {
		l.Flush(ctx)
	}
}

// trackExploitLocked applies the frequency rule and returns a synthesized
// alert entry when the user crosses the threshold. One alert per window.
func (l *Logger) trackExploitLocked(entry domain.AuditEntry) *domain.AuditEntry {
	now := time.Now()
	cutoff := now.Add(-exploitAlertWindow)

	times := l.exploits[entry.UserID]
	valid := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	valid = append(valid, now)
	l.exploits[entry.UserID] = valid

	if len(valid) < exploitAlertThreshold {
		return nil
	}
	if last, ok := l.alerted[entry.UserID]; ok && now.Sub(last) < exploitAlertWindow {
		return nil
	}
	l.alerted[entry.UserID] = now

	payload, _ := json.Marshal(map[string]interface{}{
		"exploit_count": len(valid),
		"window":        exploitAlertWindow.String(),
	})
	return &domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     entry.UserID,
		EventType:  domain.EventAlertRaised,
		Severity:   domain.SeverityCritical,
		Message:    "repeated exploit activity",
		Payload:    payload,
		OccurredAt: now.UTC(),
	}
}

// Flush persists and publishes the buffered entries. Persistence failures
// put the batch back so the next flush retries it.
func (l *Logger) Flush(ctx context.Context) {
	l.mu.Lock()
	batch := l.buffer
	l.buffer = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := l.events.AppendBatch(ctx, l.db, batch); err != nil {
		l.logger.Error("audit flush failed", "entries", len(batch), "error", err)
		l.mu.Lock()
		l.buffer = append(batch, l.buffer...)
		l.mu.Unlock()
		return
	}

	l.publishBatch(ctx, batch)
	l.logger.Debug("audit flush complete", "entries", len(batch))
}

func (l *Logger) publishBatch(ctx context.Context, batch []domain.AuditEntry) {
	if l.publisher == nil {
		return
	}
	for _, entry := range batch {
		if result := l.breaker.Check(ctx, AuditTopic); !result.Allowed {
			return
		}
		msg, _ := json.Marshal(entry)
		if err := l.publisher.Publish(ctx, AuditTopic, []byte(entry.UserID.String()), msg); err != nil {
			l.breaker.RecordFailure(AuditTopic)
			l.logger.Error("audit publish failed", "entry_id", entry.ID, "error", err)
			continue
		}
		l.breaker.RecordSuccess(AuditTopic)
	}
}

// Start runs the flush loop until ctx is cancelled, with a final flush on
// shutdown.
func (l *Logger) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.cfg.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				l.Flush(context.WithoutCancel(ctx))
				return
			case <-ticker.C:
				l.Flush(ctx)
			}
		}
	}()
}

// RecentAlerts returns the newest alert records.
func (l *Logger) RecentAlerts(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return l.events.ListAlerts(ctx, l.db, limit)
}

// Pending returns the number of buffered entries, for health reporting.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}
