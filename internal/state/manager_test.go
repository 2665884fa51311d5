package state

import (
	"container/heap"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *repository.MemoryProfileRepository, uuid.UUID) {
	t.Helper()
	profiles := repository.NewMemoryProfileRepository()
	userID := uuid.New()
	require.NoError(t, profiles.Create(context.Background(), nil,
		domain.NewUserProfile(userID, "2026-08-29")))

	mgr := NewManager(profiles, nil, nil, testLogger(), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mgr.Start(ctx)
	return mgr, profiles, userID
}

func TestSubmit_RewardCreditsCoinsAndXP(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	p, err := mgr.Submit(ctx, Reward(userID, 50, 100, CounterDeltas{Quizzes: 1}, "quiz reward"))
	require.NoError(t, err)
	assert.Equal(t, 50, p.Coins)
	assert.Equal(t, 50, p.DailyCoinsEarned)
	assert.Equal(t, 100, p.ExperiencePoints)
	assert.Equal(t, 1, p.TotalQuizzes)
	assert.Equal(t, int64(1), p.Version)
}

func TestSubmit_LevelRecalculatedOnLargeXPDelta(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	p, err := mgr.Submit(ctx, Reward(userID, 10, 120, CounterDeltas{}, "xp grant"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level) // 120 XP crosses the 100 threshold
}

func TestSubmit_DailyCapClampedOnWrite(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	p, err := mgr.Submit(ctx, Reward(userID, 700, 10, CounterDeltas{}, "over cap"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDailyCoinLimit, p.DailyCoinsEarned)
}

func TestSubmit_AchievementUnlockIdempotent(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	ach := domain.NewUnlockedAchievement(domain.AchievementCatalog["first_quiz"], time.Now())

	p1, err := mgr.Submit(ctx, UnlockAchievement(userID, ach))
	require.NoError(t, err)
	require.Len(t, p1.Achievements, 1)
	coinsAfterFirst := p1.Coins

	p2, err := mgr.Submit(ctx, UnlockAchievement(userID, ach))
	require.NoError(t, err)
	assert.Len(t, p2.Achievements, 1, "second unlock is a silent no-op")
	assert.Equal(t, coinsAfterFirst, p2.Coins, "reward coins not granted twice")
}

func TestSubmit_AchievementCoinsCountAgainstDailyWindow(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	ach := domain.NewUnlockedAchievement(domain.AchievementCatalog["first_quiz"], time.Now())

	p, err := mgr.Submit(ctx, UnlockAchievement(userID, ach))
	require.NoError(t, err)
	assert.Equal(t, ach.RewardCoins, p.Coins)
	assert.Equal(t, ach.RewardCoins, p.DailyCoinsEarned)
	assert.Equal(t, p.DailyCoinLimit-ach.RewardCoins, p.RemainingDailyCoins())
}

func TestSubmit_BadgeEarnIdempotent(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	badge := domain.BadgeCatalog["badge_scholar"]
	badge.EarnedAt = time.Now()

	p1, err := mgr.Submit(ctx, EarnBadge(userID, badge))
	require.NoError(t, err)
	require.Len(t, p1.Badges, 1)

	p2, err := mgr.Submit(ctx, EarnBadge(userID, badge))
	require.NoError(t, err)
	assert.Len(t, p2.Badges, 1)
}

func TestSubmit_StreakUpdate(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	// First activity ever: streak starts at 1.
	p, err := mgr.Submit(ctx, UpdateStreak(userID, "2026-08-29", "2026-08-28"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)

	// Same day again: no-op.
	p, err = mgr.Submit(ctx, UpdateStreak(userID, "2026-08-29", "2026-08-28"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStreak)

	// Next day: increments.
	p, err = mgr.Submit(ctx, UpdateStreak(userID, "2026-08-30", "2026-08-29"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)

	// Gap: restarts at 1, longest preserved.
	p, err = mgr.Submit(ctx, UpdateStreak(userID, "2026-09-05", "2026-09-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestSubmit_DailyResetZeroesCounterAndBreaksStaleStreak(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := mgr.Submit(ctx, Reward(userID, 300, 10, CounterDeltas{}, "earn"))
	require.NoError(t, err)
	_, err = mgr.Submit(ctx, UpdateStreak(userID, "2026-08-25", "2026-08-24"))
	require.NoError(t, err)

	p, err := mgr.Submit(ctx, DailyReset(userID, "2026-08-30", "2026-08-29"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.DailyCoinsEarned)
	assert.Equal(t, "2026-08-30", p.LastDailyReset)
	assert.Equal(t, 0, p.CurrentStreak, "last activity older than yesterday breaks the streak")
}

func TestSubmit_DailyResetPreservesYesterdayStreak(t *testing.T) {
	mgr, _, userID := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := mgr.Submit(ctx, UpdateStreak(userID, "2026-08-29", "2026-08-28"))
	require.NoError(t, err)

	p, err := mgr.Submit(ctx, DailyReset(userID, "2026-08-30", "2026-08-29"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStreak, "yesterday's activity keeps the streak pending today's")
}

func TestSubmit_UnknownProfileFails(t *testing.T) {
	mgr, _, _ := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := mgr.Submit(ctx, Reward(uuid.New(), 10, 20, CounterDeltas{}, "no profile"))
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSubmit_RetriesTransientSaveFailure(t *testing.T) {
	mgr, profiles, userID := newTestManager(t, Config{RetryDelay: 5 * time.Millisecond})
	ctx := context.Background()

	profiles.FailSaves = 2 // fails twice, succeeds on the third attempt

	p, err := mgr.Submit(ctx, Reward(userID, 10, 20, CounterDeltas{}, "flaky store"))
	require.NoError(t, err)
	assert.Equal(t, 10, p.Coins)
}

func TestSubmit_RetryExhaustionDropsOperation(t *testing.T) {
	mgr, profiles, userID := newTestManager(t, Config{
		MaxRetries: 2,
		RetryDelay: 2 * time.Millisecond,
	})
	ctx := context.Background()

	profiles.FailSaves = 10
	profiles.FailSaveErr = errors.New("store down")

	_, err := mgr.Submit(ctx, Reward(userID, 10, 20, CounterDeltas{}, "doomed"))
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RETRY_EXHAUSTED", appErr.Code)
}

func TestSubmit_WaitTimeout(t *testing.T) {
	profiles := repository.NewMemoryProfileRepository()
	userID := uuid.New()
	require.NoError(t, profiles.Create(context.Background(), nil,
		domain.NewUserProfile(userID, "2026-08-29")))

	// Never started: the queue has no consumer, so the wait must expire.
	mgr := NewManager(profiles, nil, nil, testLogger(),
		Config{WaitTimeout: 30 * time.Millisecond})

	_, err := mgr.Submit(context.Background(), Reward(userID, 1, 2, CounterDeltas{}, "stuck"))
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "OPERATION_TIMEOUT", appErr.Code)
}

func TestOpQueue_PriorityOrderWithFIFOTies(t *testing.T) {
	var q opQueue
	push := func(p Priority, seq uint64) *Operation {
		op := &Operation{Priority: p, seq: seq}
		q = append(q, op)
		return op
	}
	low := push(PriorityLow, 1)
	critical := push(PriorityCritical, 2)
	normalA := push(PriorityNormal, 3)
	normalB := push(PriorityNormal, 4)
	high := push(PriorityHigh, 5)

	order := []*Operation{critical, high, normalA, normalB, low}

	// Heapify then drain.
	sorted := make([]*Operation, 0, len(q))
	h := make(opQueue, len(q))
	copy(h, q)
	heap.Init(&h)
	for h.Len() > 0 {
		sorted = append(sorted, heap.Pop(&h).(*Operation))
	}
	require.Equal(t, len(order), len(sorted))
	for i := range order {
		assert.Same(t, order[i], sorted[i], "position %d", i)
	}
}

func TestAwardWithDailyLimit(t *testing.T) {
	p := domain.NewUserProfile(uuid.New(), "2026-08-29")

	assert.Equal(t, 100, AwardWithDailyLimit(p, 100))
	assert.Equal(t, 0, AwardWithDailyLimit(p, 0))
	assert.Equal(t, 0, AwardWithDailyLimit(p, -10))

	p.DailyCoinsEarned = 480
	assert.Equal(t, 20, AwardWithDailyLimit(p, 100), "exact-limit edge awards only the remainder")

	p.DailyCoinsEarned = 500
	assert.Equal(t, 0, AwardWithDailyLimit(p, 50))
}
