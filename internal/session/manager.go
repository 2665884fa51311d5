package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
)

// Config tunes the session manager. Zero values fall back to defaults.
type Config struct {
	MaxActivePerUser int
	IdleTimeout      time.Duration
	MaxLogEntries    int
}

func (c Config) withDefaults() Config {
	if c.MaxActivePerUser == 0 {
		c.MaxActivePerUser = 3
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.MaxLogEntries == 0 {
		c.MaxLogEntries = 1000
	}
	return c
}

type activityBlock struct {
	activityType domain.ActivityType
	expiresAt    time.Time
}

// Manager owns all active sessions. Sessions live in memory while active and
// are persisted when they reach a terminal state.
type Manager struct {
	cfg      Config
	sessions repository.SessionRepository
	db       repository.DBTX
	logger   *slog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]*domain.UserSession
	byUser map[uuid.UUID]map[uuid.UUID]struct{}
	blocks map[uuid.UUID][]activityBlock
}

// NewManager creates a session manager.
func NewManager(sessions repository.SessionRepository, db repository.DBTX, logger *slog.Logger, cfg Config) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		db:       db,
		logger:   logger,
		active:   make(map[uuid.UUID]*domain.UserSession),
		byUser:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		blocks:   make(map[uuid.UUID][]activityBlock),
	}
}

// CreateSession starts a new session for the user, enforcing the per-user
// active-session ceiling.
func (m *Manager) CreateSession(_ context.Context, userID uuid.UUID) (*domain.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.byUser[userID]) >= m.cfg.MaxActivePerUser {
		return nil, domain.ErrSessionBlocked(
			fmt.Sprintf("user already has %d active sessions", m.cfg.MaxActivePerUser))
	}

	s := domain.NewUserSession(userID, time.Now())
	m.active[s.ID] = s
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[uuid.UUID]struct{})
	}
	m.byUser[userID][s.ID] = struct{}{}

	m.logger.Info("session started", "session_id", s.ID, "user_id", userID)
	return snapshot(s), nil
}

// Get returns a copy of the session, or nil if it is not active.
func (m *Manager) Get(sessionID uuid.UUID) *domain.UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return nil
	}
	return snapshot(s)
}

// RecordActivity appends an activity to the session log and adjusts the risk
// score. Unknown or terminal sessions are ignored.
func (m *Manager) RecordActivity(_ context.Context, sessionID uuid.UUID, activityType domain.ActivityType, outcome domain.ActivityOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return
	}

	now := time.Now()
	s.Activities = append(s.Activities, domain.SessionActivity{
		Type:    activityType,
		Outcome: outcome,
		At:      now,
	})
	if len(s.Activities) > m.cfg.MaxLogEntries {
		s.Activities = s.Activities[len(s.Activities)-m.cfg.MaxLogEntries:]
	}
	s.LastActivity = now

	s.RiskScore += RiskDelta(outcome)
	if s.RiskScore < 0 {
		s.RiskScore = 0
	}
}

// ValidateSession recomputes the session's validation state. A session with a
// critical issue is force-ended; the returned state reflects the findings
// either way.
func (m *Manager) ValidateSession(ctx context.Context, sessionID uuid.UUID) domain.ValidationState {
	m.mu.Lock()
	s, ok := m.active[sessionID]
	if !ok {
		m.mu.Unlock()
		return domain.ValidationState{IsValid: false, Issues: []domain.SessionIssue{{
			Code:     "unknown_session",
			Severity: domain.SeverityHigh,
			Detail:   "session is not active",
		}}}
	}

	state := Evaluate(s, time.Now())
	s.Validation = state

	if state.HasCritical() {
		m.endLocked(s, domain.SessionEnded)
		m.mu.Unlock()
		m.logger.Warn("session force-ended on critical issue",
			"session_id", sessionID, "user_id", s.UserID, "risk_score", s.RiskScore)
		m.persist(ctx, s)
		return state
	}

	m.mu.Unlock()
	return state
}

// IsActivityAllowed gates the reward path: it denies when the activity type
// is temporarily blocked for the session or the session has unresolved
// critical issues.
func (m *Manager) IsActivityAllowed(_ context.Context, sessionID uuid.UUID, activityType domain.ActivityType) domain.GuardResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[sessionID]
	if !ok {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "session is not active",
			Guard:   "session",
		}
	}
	if s.Validation.HasCritical() {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "session has unresolved critical issues",
			Guard:   "session",
		}
	}

	now := time.Now()
	kept := m.blocks[sessionID][:0]
	var blocked bool
	for _, b := range m.blocks[sessionID] {
		if b.expiresAt.Before(now) {
			continue
		}
		kept = append(kept, b)
		if b.activityType == activityType {
			blocked = true
		}
	}
	m.blocks[sessionID] = kept

	if blocked {
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("activity type %s temporarily blocked", activityType),
			Guard:   "session",
		}
	}
	return domain.GuardResult{Allowed: true}
}

// BlockActivity blocks an activity type for the session until the given
// duration elapses.
func (m *Manager) BlockActivity(sessionID uuid.UUID, activityType domain.ActivityType, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[sessionID] = append(m.blocks[sessionID], activityBlock{
		activityType: activityType,
		expiresAt:    time.Now().Add(d),
	})
}

// EndSession moves the session to the ended state and persists it.
func (m *Manager) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.active[sessionID]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotFound("session", sessionID.String())
	}
	m.endLocked(s, domain.SessionEnded)
	m.mu.Unlock()

	m.persist(ctx, s)
	m.logger.Info("session ended", "session_id", sessionID, "user_id", s.UserID)
	return nil
}

// ActiveCount returns the number of active sessions for the user.
func (m *Manager) ActiveCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser[userID])
}

// SweepIdle times out sessions idle longer than the configured timeout and
// returns how many were closed.
func (m *Manager) SweepIdle(ctx context.Context) int {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var expired []*domain.UserSession
	for _, s := range m.active {
		if s.LastActivity.Before(cutoff) {
			expired = append(expired, s)
		}
	}
	for _, s := range expired {
		m.endLocked(s, domain.SessionTimedOut)
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.persist(ctx, s)
		m.logger.Info("session timed out", "session_id", s.ID, "user_id", s.UserID)
	}
	return len(expired)
}

// StartSweep runs SweepIdle on the given interval until ctx is cancelled.
func (m *Manager) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SweepIdle(ctx)
			}
		}
	}()
}

func (m *Manager) endLocked(s *domain.UserSession, status domain.SessionStatus) {
	now := time.Now()
	s.Status = status
	s.EndedAt = &now
	delete(m.active, s.ID)
	delete(m.blocks, s.ID)
	if ids, ok := m.byUser[s.UserID]; ok {
		delete(ids, s.ID)
		if len(ids) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
}

func (m *Manager) persist(ctx context.Context, s *domain.UserSession) {
	if m.sessions == nil {
		return
	}
	if err := m.sessions.Save(ctx, m.db, s); err != nil {
		m.logger.Error("session persist failed", "session_id", s.ID, "error", err)
	}
}

func snapshot(s *domain.UserSession) *domain.UserSession {
	out := *s
	out.Activities = append([]domain.SessionActivity(nil), s.Activities...)
	out.Validation.Issues = append([]domain.SessionIssue(nil), s.Validation.Issues...)
	return &out
}
