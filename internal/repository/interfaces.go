package repository

import (
	"context"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
// The in-memory implementations ignore it.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ProfileRepository provides access to learner profiles.
type ProfileRepository interface {
	// FindByUserID returns a profile, or nil if none exists.
	FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.UserProfile, error)

	// Create inserts a new profile.
	Create(ctx context.Context, db DBTX, profile *domain.UserProfile) error

	// Save writes the profile if its stored version still equals
	// expectedVersion, returning domain.ErrVersionConflict otherwise.
	// The caller must set profile.Version to expectedVersion+1.
	Save(ctx context.Context, db DBTX, profile *domain.UserProfile, expectedVersion int64) error

	// ListStaleDaily returns user ids whose last daily reset is not today.
	ListStaleDaily(ctx context.Context, db DBTX, today string) ([]uuid.UUID, error)
}

// ActivityRepository persists rewarded activity completions. The
// (user, activity type, natural key) tuple is unique and backs the
// duplicate-prevention check.
type ActivityRepository interface {
	// FindCompletion returns the completion for the natural key, or nil.
	FindCompletion(ctx context.Context, db DBTX, userID uuid.UUID, activityType domain.ActivityType, naturalKey string) (*domain.ActivityCompletion, error)

	// RecordCompletion inserts a completion record.
	RecordCompletion(ctx context.Context, db DBTX, completion *domain.ActivityCompletion) error

	// CountByType returns how many completions of the type the user has.
	CountByType(ctx context.Context, db DBTX, userID uuid.UUID, activityType domain.ActivityType) (int, error)
}

// ChallengeRepository provides access to daily challenges.
type ChallengeRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.DailyChallenge, error)
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.DailyChallenge, error)
	Create(ctx context.Context, db DBTX, challenge *domain.DailyChallenge) error
	Save(ctx context.Context, db DBTX, challenge *domain.DailyChallenge) error

	// ResetExpired reopens every challenge whose window closed before now:
	// progress zeroed, completion cleared, fresh 24h expiry. Returns the
	// number of challenges reset.
	ResetExpired(ctx context.Context, db DBTX, now time.Time) (int64, error)
}

// EventRepository is the append-only activity event log.
type EventRepository interface {
	Append(ctx context.Context, db DBTX, entry *domain.AuditEntry) error
	AppendBatch(ctx context.Context, db DBTX, entries []domain.AuditEntry) error

	// ListAlerts returns the most recent alert entries, newest first.
	ListAlerts(ctx context.Context, db DBTX, limit int) ([]domain.AuditEntry, error)

	// PruneOlderThan deletes entries that occurred before the cutoff and
	// returns the number removed.
	PruneOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error)
}

// SessionRepository persists learner sessions once they reach a terminal
// state; active sessions live only in the session manager's memory.
type SessionRepository interface {
	Save(ctx context.Context, db DBTX, session *domain.UserSession) error
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.UserSession, error)
	PruneOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the caller's transaction when
	// atomicity with a state change is required).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, []int64, error)

	// MarkPublished removes published events by their sequence ids.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// AuthUserRepository provides access to auth_users.
type AuthUserRepository interface {
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.AuthUser, error)
	Create(ctx context.Context, db DBTX, user *domain.AuthUser) error
}
