package reset

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/state"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc        *Service
	profiles   *repository.MemoryProfileRepository
	challenges *repository.MemoryChallengeRepository
	events     *repository.MemoryEventRepository
	sessions   *repository.MemorySessionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	profiles := repository.NewMemoryProfileRepository()
	challenges := repository.NewMemoryChallengeRepository()
	events := repository.NewMemoryEventRepository()
	sessions := repository.NewMemorySessionRepository()

	mgr := state.NewManager(profiles, nil, nil, logger, state.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mgr.Start(ctx)

	svc := NewService(profiles, challenges, events, sessions, nil, mgr, logger, time.Minute)
	return &fixture{svc: svc, profiles: profiles, challenges: challenges, events: events, sessions: sessions}
}

func TestRun_ResetsStaleProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	p := domain.NewUserProfile(userID, "2026-08-28")
	p.DailyCoinsEarned = 350
	require.NoError(t, f.profiles.Create(ctx, nil, p))

	report, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProfilesReset)
	assert.Equal(t, 0, report.ProfilesFailed)

	got, err := f.profiles.FindByUserID(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DailyCoinsEarned)
	assert.Equal(t, "2026-08-29", got.LastDailyReset)
}

func TestRun_SecondRunSameDayIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.profiles.Create(ctx, nil, domain.NewUserProfile(uuid.New(), "2026-08-28")))

	first, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProfilesReset)

	second, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProfilesReset, "profile already on today's reset day")
}

func TestRun_BreaksStaleStreaks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	p := domain.NewUserProfile(userID, "2026-08-25")
	p.CurrentStreak = 6
	p.LongestStreak = 6
	p.LastActivityDate = "2026-08-25"
	require.NoError(t, f.profiles.Create(ctx, nil, p))

	_, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)

	got, err := f.profiles.FindByUserID(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentStreak)
	assert.Equal(t, 6, got.LongestStreak, "longest streak survives the break")
}

func TestRun_PreservesYesterdayStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	p := domain.NewUserProfile(userID, "2026-08-28")
	p.CurrentStreak = 3
	p.LongestStreak = 3
	p.LastActivityDate = "2026-08-28"
	require.NoError(t, f.profiles.Create(ctx, nil, p))

	_, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)

	got, err := f.profiles.FindByUserID(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentStreak)
}

func TestRun_ReopensExpiredChallenges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := &domain.DailyChallenge{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ChallengeType: "daily_quiz",
		Progress:      3,
		Target:        5,
		IsCompleted:   true,
		ExpiresAt:     time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, f.challenges.Create(ctx, nil, expired))

	report, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ChallengesReset)

	got, err := f.challenges.FindByID(ctx, nil, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
	assert.False(t, got.IsCompleted)
	assert.True(t, got.ExpiresAt.After(time.Now()))
}

func TestRun_PrunesOldRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.events.Append(ctx, nil, &domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		EventType:  domain.EventProfileUpdated,
		OccurredAt: time.Now().Add(-40 * 24 * time.Hour),
	}))
	require.NoError(t, f.events.Append(ctx, nil, &domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		EventType:  domain.EventProfileUpdated,
		OccurredAt: time.Now(),
	}))

	old := domain.NewUserSession(uuid.New(), time.Now().Add(-45*24*time.Hour))
	old.Status = domain.SessionEnded
	require.NoError(t, f.sessions.Save(ctx, nil, old))

	report, err := f.svc.Run(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.EventsPruned)
	assert.Equal(t, int64(1), report.SessionsPruned)
	assert.Len(t, f.events.Entries(), 1)
}

func TestRun_ReentrancyGuard(t *testing.T) {
	f := newFixture(t)

	f.svc.isResetting.Store(true)
	report, err := f.svc.Run(context.Background(), "2026-08-29")
	require.NoError(t, err)
	assert.True(t, report.AlreadyInFlight)
	assert.Equal(t, 0, report.ProfilesReset)
}

func TestResetProfileNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := uuid.New()
	p := domain.NewUserProfile(userID, "2026-08-20")
	p.DailyCoinsEarned = 120
	require.NoError(t, f.profiles.Create(ctx, nil, p))

	got, err := f.svc.ResetProfileNow(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.DailyCoinsEarned)
}
