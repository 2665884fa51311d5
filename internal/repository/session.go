package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
)

type sessionRepo struct{}

// NewSessionRepository returns a pgx-backed SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepo{}
}

func (r *sessionRepo) Save(ctx context.Context, db DBTX, s *domain.UserSession) error {
	activities, err := json.Marshal(s.Activities)
	if err != nil {
		return fmt.Errorf("marshal session activities: %w", err)
	}
	issues, err := json.Marshal(s.Validation.Issues)
	if err != nil {
		return fmt.Errorf("marshal session issues: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO user_sessions
			(id, user_id, status, start_time, last_activity, ended_at, activities, risk_score, is_valid, issues)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			last_activity = EXCLUDED.last_activity,
			ended_at = EXCLUDED.ended_at,
			activities = EXCLUDED.activities,
			risk_score = EXCLUDED.risk_score,
			is_valid = EXCLUDED.is_valid,
			issues = EXCLUDED.issues`,
		s.ID, s.UserID, s.Status, s.StartTime, s.LastActivity, s.EndedAt,
		activities, s.RiskScore, s.Validation.IsValid, issues)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.UserSession, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, status, start_time, last_activity, ended_at, activities, risk_score, is_valid, issues
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.UserSession
	for rows.Next() {
		var s domain.UserSession
		var activities, issues []byte
		err := rows.Scan(&s.ID, &s.UserID, &s.Status, &s.StartTime, &s.LastActivity,
			&s.EndedAt, &activities, &s.RiskScore, &s.Validation.IsValid, &issues)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if len(activities) > 0 {
			if err := json.Unmarshal(activities, &s.Activities); err != nil {
				return nil, fmt.Errorf("unmarshal session activities: %w", err)
			}
		}
		if len(issues) > 0 {
			if err := json.Unmarshal(issues, &s.Validation.Issues); err != nil {
				return nil, fmt.Errorf("unmarshal session issues: %w", err)
			}
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionRepo) PruneOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM user_sessions
		WHERE status <> $1 AND last_activity < $2`,
		domain.SessionActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
