package session

import (
	"context"
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

func newTestManager(cfg Config) (*Manager, *repository.MemorySessionRepository) {
	store := repository.NewMemorySessionRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, nil, logger, cfg), store
}

func TestCreateSession_EnforcesCeiling(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := m.CreateSession(ctx, userID)
		require.NoError(t, err, "session %d", i+1)
	}

	_, err := m.CreateSession(ctx, userID)
	require.Error(t, err)
	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SESSION_BLOCKED", appErr.Code)
	assert.Equal(t, 3, m.ActiveCount(userID))
}

func TestCreateSession_CeilingIsPerUser(t *testing.T) {
	m, _ := newTestManager(Config{MaxActivePerUser: 1})
	ctx := context.Background()

	_, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)
	_, err = m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)
}

func TestRecordActivity_RiskScoreDeltas(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeDuplicateBlocked)
	assert.Equal(t, 5, m.Get(s.ID).RiskScore)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeExploitDetected)
	assert.Equal(t, 20, m.Get(s.ID).RiskScore)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeFailed)
	assert.Equal(t, 22, m.Get(s.ID).RiskScore)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeSuccess)
	assert.Equal(t, 21, m.Get(s.ID).RiskScore)
}

func TestRecordActivity_RiskScoreFloorsAtZero(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeSuccess)
	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeSuccess)

	assert.Equal(t, 0, m.Get(s.ID).RiskScore)
}

func TestValidateSession_CleanSessionIsValid(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeSuccess)

	state := m.ValidateSession(ctx, s.ID)
	assert.True(t, state.IsValid)
	assert.Empty(t, state.Issues)
}

func TestValidateSession_SuspiciousPatternOnRepeatedFailures(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		m.RecordActivity(ctx, s.ID, domain.ActivityQuizCompletion, domain.OutcomeFailed)
	}

	state := m.ValidateSession(ctx, s.ID)
	assert.False(t, state.IsValid)
	require.Len(t, state.Issues, 1)
	assert.Equal(t, "suspicious_pattern", state.Issues[0].Code)
	assert.Equal(t, domain.SeverityMedium, state.Issues[0].Severity)
}

func TestValidateSession_ExploitForceEndsSession(t *testing.T) {
	m, store := newTestManager(Config{})
	ctx := context.Background()
	userID := uuid.New()
	s, err := m.CreateSession(ctx, userID)
	require.NoError(t, err)

	m.RecordActivity(ctx, s.ID, domain.ActivityCoinAward, domain.OutcomeExploitDetected)

	state := m.ValidateSession(ctx, s.ID)
	assert.False(t, state.IsValid)
	assert.True(t, state.HasCritical())

	assert.Nil(t, m.Get(s.ID), "session removed from active set")
	assert.Equal(t, 0, m.ActiveCount(userID))

	saved, err := store.ListByUser(ctx, nil, userID, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.SessionEnded, saved[0].Status)
}

func TestValidateSession_UnknownSessionInvalid(t *testing.T) {
	m, _ := newTestManager(Config{})

	state := m.ValidateSession(context.Background(), uuid.New())
	assert.False(t, state.IsValid)
}

func TestIsActivityAllowed_CleanSession(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	result := m.IsActivityAllowed(ctx, s.ID, domain.ActivityQuizCompletion)
	assert.True(t, result.Allowed)
}

func TestIsActivityAllowed_HonorsBlockList(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	m.BlockActivity(s.ID, domain.ActivityQuizCompletion, time.Minute)

	blocked := m.IsActivityAllowed(ctx, s.ID, domain.ActivityQuizCompletion)
	assert.False(t, blocked.Allowed)
	assert.Equal(t, "session", blocked.Guard)

	other := m.IsActivityAllowed(ctx, s.ID, domain.ActivityGameCompletion)
	assert.True(t, other.Allowed, "block is per activity type")
}

func TestIsActivityAllowed_BlockExpires(t *testing.T) {
	m, _ := newTestManager(Config{})
	ctx := context.Background()
	s, err := m.CreateSession(ctx, uuid.New())
	require.NoError(t, err)

	m.BlockActivity(s.ID, domain.ActivityQuizCompletion, 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	result := m.IsActivityAllowed(ctx, s.ID, domain.ActivityQuizCompletion)
	assert.True(t, result.Allowed)
}

func TestIsActivityAllowed_UnknownSessionDenied(t *testing.T) {
	m, _ := newTestManager(Config{})

	result := m.IsActivityAllowed(context.Background(), uuid.New(), domain.ActivityQuizCompletion)
	assert.False(t, result.Allowed)
	assert.Equal(t, "session", result.Guard)
}

func TestEndSession_PersistsTerminalState(t *testing.T) {
	m, store := newTestManager(Config{})
	ctx := context.Background()
	userID := uuid.New()
	s, err := m.CreateSession(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, m.EndSession(ctx, s.ID))
	assert.Nil(t, m.Get(s.ID))

	saved, err := store.ListByUser(ctx, nil, userID, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.SessionEnded, saved[0].Status)
	assert.NotNil(t, saved[0].EndedAt)
}

func TestEndSession_UnknownSessionError(t *testing.T) {
	m, _ := newTestManager(Config{})

	err := m.EndSession(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestSweepIdle_TimesOutStaleSessions(t *testing.T) {
	m, store := newTestManager(Config{IdleTimeout: time.Millisecond})
	ctx := context.Background()
	userID := uuid.New()
	s, err := m.CreateSession(ctx, userID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	closed := m.SweepIdle(ctx)
	assert.Equal(t, 1, closed)
	assert.Nil(t, m.Get(s.ID))

	saved, err := store.ListByUser(ctx, nil, userID, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, domain.SessionTimedOut, saved[0].Status)
}

func TestEvaluate_RapidFire(t *testing.T) {
	s := domain.NewUserSession(uuid.New(), time.Now())
	now := time.Now()
	for i := 0; i < 101; i++ {
		s.Activities = append(s.Activities, domain.SessionActivity{
			Type:    domain.ActivityQuizCompletion,
			Outcome: domain.OutcomeSuccess,
			At:      now,
		})
	}

	state := Evaluate(s, now)
	assert.False(t, state.IsValid)
	require.Len(t, state.Issues, 1)
	assert.Equal(t, "rapid_fire", state.Issues[0].Code)
	assert.Equal(t, domain.SeverityHigh, state.Issues[0].Severity)
}

func TestEvaluate_TimeAnomaly(t *testing.T) {
	now := time.Now()
	s := domain.NewUserSession(uuid.New(), now.Add(-5*time.Hour))

	state := Evaluate(s, now)
	assert.False(t, state.IsValid)
	require.Len(t, state.Issues, 1)
	assert.Equal(t, "time_anomaly", state.Issues[0].Code)
}

func TestRiskDelta(t *testing.T) {
	assert.Equal(t, 5, RiskDelta(domain.OutcomeDuplicateBlocked))
	assert.Equal(t, 15, RiskDelta(domain.OutcomeExploitDetected))
	assert.Equal(t, 2, RiskDelta(domain.OutcomeFailed))
	assert.Equal(t, -1, RiskDelta(domain.OutcomeSuccess))
}
