package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type profileRepo struct{}

// NewProfileRepository returns a pgx-backed ProfileRepository.
func NewProfileRepository() ProfileRepository {
	return &profileRepo{}
}

const profileColumns = `
	user_id, coins, experience_points, level,
	daily_coins_earned, daily_coin_limit, last_daily_reset,
	current_streak, longest_streak, last_activity_date,
	total_quizzes, total_games, perfect_quiz_run, total_challenges,
	achievements, badges,
	curriculum_enabled, curriculum_start_date, curriculum_day_completed, curriculum_topics_completed,
	version, created_at, updated_at`

func (r *profileRepo) FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.UserProfile, error) {
	row := db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (r *profileRepo) Create(ctx context.Context, db DBTX, p *domain.UserProfile) error {
	achievements, badges, err := marshalCollections(p)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO user_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		p.UserID, p.Coins, p.ExperiencePoints, p.Level,
		p.DailyCoinsEarned, p.DailyCoinLimit, p.LastDailyReset,
		p.CurrentStreak, p.LongestStreak, p.LastActivityDate,
		p.TotalQuizzes, p.TotalGames, p.PerfectQuizRun, p.TotalChallenges,
		achievements, badges,
		p.CurriculumEnabled, p.CurriculumStartDate, p.CurriculumDayCompleted, p.CurriculumTopicsCompleted,
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Save enforces the optimistic lock: the row is only written when its stored
// version still matches expectedVersion.
func (r *profileRepo) Save(ctx context.Context, db DBTX, p *domain.UserProfile, expectedVersion int64) error {
	achievements, badges, err := marshalCollections(p)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE user_profiles SET
			coins = $2, experience_points = $3, level = $4,
			daily_coins_earned = $5, daily_coin_limit = $6, last_daily_reset = $7,
			current_streak = $8, longest_streak = $9, last_activity_date = $10,
			total_quizzes = $11, total_games = $12, perfect_quiz_run = $13, total_challenges = $14,
			achievements = $15, badges = $16,
			curriculum_enabled = $17, curriculum_start_date = $18,
			curriculum_day_completed = $19, curriculum_topics_completed = $20,
			version = $21, updated_at = now()
		WHERE user_id = $1 AND version = $22`,
		p.UserID, p.Coins, p.ExperiencePoints, p.Level,
		p.DailyCoinsEarned, p.DailyCoinLimit, p.LastDailyReset,
		p.CurrentStreak, p.LongestStreak, p.LastActivityDate,
		p.TotalQuizzes, p.TotalGames, p.PerfectQuizRun, p.TotalChallenges,
		achievements, badges,
		p.CurriculumEnabled, p.CurriculumStartDate, p.CurriculumDayCompleted, p.CurriculumTopicsCompleted,
		p.Version, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, findErr := r.FindByUserID(ctx, db, p.UserID)
		if findErr == nil && current != nil {
			return domain.ErrVersionConflict(expectedVersion, current.Version)
		}
		return domain.ErrNotFound("profile", p.UserID.String())
	}
	return nil
}

func (r *profileRepo) ListStaleDaily(ctx context.Context, db DBTX, today string) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx,
		`SELECT user_id FROM user_profiles WHERE last_daily_reset <> $1`, today)
	if err != nil {
		return nil, fmt.Errorf("list stale profiles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale profile id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalCollections(p *domain.UserProfile) ([]byte, []byte, error) {
	achievements, err := json.Marshal(p.Achievements)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal achievements: %w", err)
	}
	badges, err := json.Marshal(p.Badges)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal badges: %w", err)
	}
	return achievements, badges, nil
}

func scanProfile(row pgx.Row) (*domain.UserProfile, error) {
	var p domain.UserProfile
	var achievements, badges []byte
	err := row.Scan(
		&p.UserID, &p.Coins, &p.ExperiencePoints, &p.Level,
		&p.DailyCoinsEarned, &p.DailyCoinLimit, &p.LastDailyReset,
		&p.CurrentStreak, &p.LongestStreak, &p.LastActivityDate,
		&p.TotalQuizzes, &p.TotalGames, &p.PerfectQuizRun, &p.TotalChallenges,
		&achievements, &badges,
		&p.CurriculumEnabled, &p.CurriculumStartDate, &p.CurriculumDayCompleted, &p.CurriculumTopicsCompleted,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if len(achievements) > 0 {
		if err := json.Unmarshal(achievements, &p.Achievements); err != nil {
			return nil, fmt.Errorf("unmarshal achievements: %w", err)
		}
	}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &p.Badges); err != nil {
			return nil, fmt.Errorf("unmarshal badges: %w", err)
		}
	}
	return &p, nil
}
