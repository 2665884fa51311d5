package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type activityRepo struct{}

// NewActivityRepository returns a pgx-backed ActivityRepository.
func NewActivityRepository() ActivityRepository {
	return &activityRepo{}
}

func (r *activityRepo) FindCompletion(ctx context.Context, db DBTX, userID uuid.UUID, activityType domain.ActivityType, naturalKey string) (*domain.ActivityCompletion, error) {
	row := db.QueryRow(ctx, `
		SELECT id, user_id, activity_type, natural_key, coins_awarded, xp_awarded, completed_at
		FROM activity_completions
		WHERE user_id = $1 AND activity_type = $2 AND natural_key = $3`,
		userID, activityType, naturalKey)

	var c domain.ActivityCompletion
	err := row.Scan(&c.ID, &c.UserID, &c.ActivityType, &c.NaturalKey,
		&c.CoinsAwarded, &c.XPAwarded, &c.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan completion: %w", err)
	}
	return &c, nil
}

func (r *activityRepo) RecordCompletion(ctx context.Context, db DBTX, c *domain.ActivityCompletion) error {
	_, err := db.Exec(ctx, `
		INSERT INTO activity_completions
			(id, user_id, activity_type, natural_key, coins_awarded, xp_awarded, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.ActivityType, c.NaturalKey, c.CoinsAwarded, c.XPAwarded, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *activityRepo) CountByType(ctx context.Context, db DBTX, userID uuid.UUID, activityType domain.ActivityType) (int, error) {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM activity_completions
		WHERE user_id = $1 AND activity_type = $2`,
		userID, activityType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return count, nil
}
