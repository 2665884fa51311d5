// Package reset rolls daily state over at UTC midnight: daily coin counters,
// expired challenges, streak continuity, and old-record pruning.
package reset

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/infra"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/state"
	"github.com/google/uuid"
)

// RetentionWindow is how long event and session records are kept.
const RetentionWindow = 30 * 24 * time.Hour

// Report summarizes one reset run.
type Report struct {
	Day             string `json:"day"`
	ProfilesReset   int    `json:"profiles_reset"`
	ProfilesFailed  int    `json:"profiles_failed"`
	ChallengesReset int64  `json:"challenges_reset"`
	EventsPruned    int64  `json:"events_pruned"`
	SessionsPruned  int64  `json:"sessions_pruned"`
	AlreadyInFlight bool   `json:"already_in_flight,omitempty"`
}

// Service drives the daily rollover. All profile mutations go through the
// state manager's serialized path; the service itself only orchestrates.
type Service struct {
	profiles   repository.ProfileRepository
	challenges repository.ChallengeRepository
	events     repository.EventRepository
	sessions   repository.SessionRepository
	db         repository.DBTX
	manager    *state.Manager
	logger     *slog.Logger

	interval    time.Duration
	isResetting atomic.Bool
	now         func() time.Time
}

// NewService creates the daily reset service. interval controls the
// day-boundary polling cadence; zero means 60s.
func NewService(
	profiles repository.ProfileRepository,
	challenges repository.ChallengeRepository,
	events repository.EventRepository,
	sessions repository.SessionRepository,
	db repository.DBTX,
	manager *state.Manager,
	logger *slog.Logger,
	interval time.Duration,
) *Service {
	if interval == 0 {
		interval = 60 * time.Second
	}
	return &Service{
		profiles:   profiles,
		challenges: challenges,
		events:     events,
		sessions:   sessions,
		db:         db,
		manager:    manager,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
	}
}

// Start catches up a missed rollover, then watches for day crossings until
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	today := infra.UTCDateString(s.now())
	if _, err := s.Run(ctx, today); err != nil {
		s.logger.Error("startup daily reset failed", "day", today, "error", err)
	}

	watcher := infra.NewDayBoundaryWatcher(s.interval, s.logger)
	watcher.Start(ctx, func(day string) {
		if _, err := s.Run(ctx, day); err != nil {
			s.logger.Error("daily reset failed", "day", day, "error", err)
		}
	})
}

// Run performs one rollover for the given UTC day. A second call while one is
// in flight returns immediately with an in-flight report and no error.
func (s *Service) Run(ctx context.Context, day string) (Report, error) {
	if !s.isResetting.CompareAndSwap(false, true) {
		s.logger.Warn("daily reset already running, skipping", "day", day)
		return Report{Day: day, AlreadyInFlight: true}, nil
	}
	defer s.isResetting.Store(false)

	report := Report{Day: day}
	started := s.now()
	yesterday := infra.PreviousDay(day)

	stale, err := s.profiles.ListStaleDaily(ctx, s.db, day)
	if err != nil {
		return report, err
	}
	for _, userID := range stale {
		if _, err := s.manager.Submit(ctx, state.DailyReset(userID, day, yesterday)); err != nil {
			report.ProfilesFailed++
			s.logger.Error("profile daily reset failed", "user_id", userID, "error", err)
			continue
		}
		report.ProfilesReset++
	}

	if n, err := s.challenges.ResetExpired(ctx, s.db, started); err != nil {
		s.logger.Error("challenge reset failed", "error", err)
	} else {
		report.ChallengesReset = n
	}

	cutoff := started.Add(-RetentionWindow)
	if n, err := s.events.PruneOlderThan(ctx, s.db, cutoff); err != nil {
		s.logger.Error("event prune failed", "error", err)
	} else {
		report.EventsPruned = n
	}
	if n, err := s.sessions.PruneOlderThan(ctx, s.db, cutoff); err != nil {
		s.logger.Error("session prune failed", "error", err)
	} else {
		report.SessionsPruned = n
	}

	s.logger.Info("daily reset complete",
		"day", day,
		"profiles_reset", report.ProfilesReset,
		"profiles_failed", report.ProfilesFailed,
		"challenges_reset", report.ChallengesReset,
		"events_pruned", report.EventsPruned,
		"sessions_pruned", report.SessionsPruned,
		"took", s.now().Sub(started))
	return report, nil
}

// ResetProfileNow runs the profile portion of the rollover for a single user,
// used by the admin endpoint. It bypasses the in-flight guard because it
// serializes through the state manager anyway.
func (s *Service) ResetProfileNow(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	now := s.now()
	return s.manager.Submit(ctx, state.DailyReset(userID, infra.UTCDateString(now), infra.YesterdayUTC(now)))
}
