package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

type eventRepo struct{}

// NewEventRepository returns a pgx-backed EventRepository.
func NewEventRepository() EventRepository {
	return &eventRepo{}
}

func (r *eventRepo) Append(ctx context.Context, db DBTX, e *domain.AuditEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO activity_events (id, user_id, event_type, severity, message, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.EventType, e.Severity, e.Message, e.Payload, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendBatch(ctx context.Context, db DBTX, entries []domain.AuditEntry) error {
	for i := range entries {
		if err := r.Append(ctx, db, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *eventRepo) ListAlerts(ctx context.Context, db DBTX, limit int) ([]domain.AuditEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, event_type, severity, message, payload, occurred_at
		FROM activity_events
		WHERE event_type = $1
		ORDER BY occurred_at DESC
		LIMIT $2`,
		domain.EventAlertRaised, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Severity, &e.Message, &e.Payload, &e.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *eventRepo) PruneOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	tag, err := db.Exec(ctx,
		`DELETE FROM activity_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}
