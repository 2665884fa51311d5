package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type challengeRepo struct{}

// NewChallengeRepository returns a pgx-backed ChallengeRepository.
func NewChallengeRepository() ChallengeRepository {
	return &challengeRepo{}
}

const challengeColumns = `
	id, user_id, challenge_type, title, progress, target,
	is_completed, curriculum, expires_at, created_at, updated_at`

func (r *challengeRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.DailyChallenge, error) {
	row := db.QueryRow(ctx,
		`SELECT `+challengeColumns+` FROM daily_challenges WHERE id = $1`, id)
	return scanChallenge(row)
}

func (r *challengeRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.DailyChallenge, error) {
	rows, err := db.Query(ctx,
		`SELECT `+challengeColumns+` FROM daily_challenges
		 WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []domain.DailyChallenge
	for rows.Next() {
		c, err := scanChallengeRow(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

func (r *challengeRepo) Create(ctx context.Context, db DBTX, c *domain.DailyChallenge) error {
	_, err := db.Exec(ctx, `
		INSERT INTO daily_challenges (`+challengeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.ChallengeType, c.Title, c.Progress, c.Target,
		c.IsCompleted, c.Curriculum, c.ExpiresAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (r *challengeRepo) Save(ctx context.Context, db DBTX, c *domain.DailyChallenge) error {
	tag, err := db.Exec(ctx, `
		UPDATE daily_challenges SET
			progress = $2, target = $3, is_completed = $4,
			expires_at = $5, updated_at = now()
		WHERE id = $1`,
		c.ID, c.Progress, c.Target, c.IsCompleted, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("challenge", c.ID.String())
	}
	return nil
}

func (r *challengeRepo) ResetExpired(ctx context.Context, db DBTX, now time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE daily_challenges SET
			progress = 0, is_completed = false,
			expires_at = $1, updated_at = now()
		WHERE expires_at < $2`,
		now.Add(domain.ChallengeWindow), now)
	if err != nil {
		return 0, fmt.Errorf("reset expired challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanChallenge(row pgx.Row) (*domain.DailyChallenge, error) {
	c, err := scanChallengeRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func scanChallengeRow(row pgx.Row) (*domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	err := row.Scan(&c.ID, &c.UserID, &c.ChallengeType, &c.Title, &c.Progress, &c.Target,
		&c.IsCompleted, &c.Curriculum, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
