// Package engine orchestrates the reward path: validation, point
// calculation, daily-cap clamping, serialized profile updates, and
// achievement evaluation.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/infra"
	"github.com/constitutionhub/platform/internal/middleware"
	"github.com/constitutionhub/platform/internal/points"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/constitutionhub/platform/internal/state"
	"github.com/google/uuid"
)

// Engine wires the reward pipeline together. All profile writes flow through
// the state manager; the engine never mutates a profile directly.
type Engine struct {
	validator  *middleware.Validator
	manager    *state.Manager
	profiles   repository.ProfileRepository
	activities repository.ActivityRepository
	challenges repository.ChallengeRepository
	outbox     repository.OutboxRepository
	db         repository.DBTX
	logger     *slog.Logger
	now        func() time.Time
}

// New creates the gamification engine. outbox may be nil in tests.
func New(
	validator *middleware.Validator,
	manager *state.Manager,
	profiles repository.ProfileRepository,
	activities repository.ActivityRepository,
	challenges repository.ChallengeRepository,
	outbox repository.OutboxRepository,
	db repository.DBTX,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		validator:  validator,
		manager:    manager,
		profiles:   profiles,
		activities: activities,
		challenges: challenges,
		outbox:     outbox,
		db:         db,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessQuizCompletion runs the full reward path for a finished quiz.
func (e *Engine) ProcessQuizCompletion(ctx context.Context, quiz domain.QuizCompleted) (*domain.RewardSummary, error) {
	if err := domain.ValidateQuizCompleted(quiz); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if summary, blocked := e.gate(ctx, quiz); blocked {
		return summary, nil
	}

	profile, err := e.prepareProfile(ctx, quiz)
	if err != nil {
		e.validator.Release(quiz)
		return nil, err
	}

	reward := points.CalculateQuizReward(quiz, profile.ExperiencePoints, profile.CurrentStreak)
	counters := state.CounterDeltas{Quizzes: 1, ResetPerfectRun: !quiz.PerfectScore}
	if quiz.PerfectScore {
		counters = state.CounterDeltas{Quizzes: 1, PerfectRun: 1}
	}

	summary, updated, err := e.grant(ctx, quiz, profile, reward, counters, "quiz completion: "+quiz.QuizSessionID)
	if err != nil {
		return nil, err
	}

	e.unlock(ctx, updated, summary, append(quizAchievements(updated, quiz), streakAchievements(updated)...))
	e.finish(ctx, quiz, summary)
	return summary, nil
}

// ProcessGameCompletion runs the reward path for a finished mini-game.
func (e *Engine) ProcessGameCompletion(ctx context.Context, game domain.GameCompleted) (*domain.RewardSummary, error) {
	if err := domain.ValidateGameCompleted(game); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if summary, blocked := e.gate(ctx, game); blocked {
		return summary, nil
	}

	profile, err := e.prepareProfile(ctx, game)
	if err != nil {
		e.validator.Release(game)
		return nil, err
	}

	reward := points.CalculateGameReward(game, profile.ExperiencePoints, profile.CurrentStreak)
	summary, updated, err := e.grant(ctx, game, profile, reward,
		state.CounterDeltas{Games: 1}, "game completion: "+game.GameSessionID)
	if err != nil {
		return nil, err
	}

	e.unlock(ctx, updated, summary, append(gameAchievements(updated, game), streakAchievements(updated)...))
	e.finish(ctx, game, summary)
	return summary, nil
}

// ProcessChallengeCompletion rewards a completed daily challenge and marks
// the challenge record done.
func (e *Engine) ProcessChallengeCompletion(ctx context.Context, challenge domain.ChallengeCompleted) (*domain.RewardSummary, error) {
	if challenge.ChallengeID == "" {
		return nil, domain.ErrValidation("challenge id is required")
	}
	if summary, blocked := e.gate(ctx, challenge); blocked {
		return summary, nil
	}

	profile, err := e.prepareProfile(ctx, challenge)
	if err != nil {
		e.validator.Release(challenge)
		return nil, err
	}

	reward := points.CalculateChallengeReward(challenge.ChallengeType, challenge.Curriculum, profile.ExperiencePoints)
	summary, updated, err := e.grant(ctx, challenge, profile, reward,
		state.CounterDeltas{Challenges: 1}, "challenge completion: "+challenge.ChallengeID)
	if err != nil {
		return nil, err
	}

	e.completeChallenge(ctx, challenge)
	e.unlock(ctx, updated, summary, append(challengeAchievements(updated), streakAchievements(updated)...))
	e.finish(ctx, challenge, summary)
	return summary, nil
}

// ProcessCoinAward credits a direct coin grant, subject to the daily cap.
func (e *Engine) ProcessCoinAward(ctx context.Context, award domain.CoinAward) (*domain.RewardSummary, error) {
	if err := domain.ValidateCoinAward(award); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if summary, blocked := e.gate(ctx, award); blocked {
		return summary, nil
	}

	profile, err := e.prepareProfile(ctx, award)
	if err != nil {
		e.validator.Release(award)
		return nil, err
	}

	reward := domain.Reward{CoinsEarned: award.Amount}
	summary, _, err := e.grant(ctx, award, profile, reward,
		state.CounterDeltas{}, "coin award: "+award.Reason)
	if err != nil {
		return nil, err
	}

	e.finish(ctx, award, summary)
	return summary, nil
}

// ProcessAchievementUnlock routes an explicit unlock request through the
// idempotent unlock path.
func (e *Engine) ProcessAchievementUnlock(ctx context.Context, unlock domain.AchievementUnlock) (*domain.RewardSummary, error) {
	if _, ok := domain.AchievementCatalog[unlock.AchievementID]; !ok {
		return nil, domain.ErrNotFound("achievement", unlock.AchievementID)
	}
	if summary, blocked := e.gate(ctx, unlock); blocked {
		return summary, nil
	}

	profile, err := e.profiles.FindByUserID(ctx, e.db, unlock.UserID)
	if err != nil {
		e.validator.Release(unlock)
		return nil, err
	}
	if profile == nil {
		e.validator.Release(unlock)
		return nil, domain.ErrNotFound("profile", unlock.UserID.String())
	}

	summary := &domain.RewardSummary{
		AchievementsUnlocked: []domain.Achievement{},
		BadgesEarned:         []domain.Badge{},
	}
	if !profile.HasAchievement(unlock.AchievementID) {
		e.unlock(ctx, profile, summary, []string{unlock.AchievementID})
	}
	e.finish(ctx, unlock, summary)
	return summary, nil
}

// gate runs the validation façade and converts a denial into a blocked
// summary with a published block event.
func (e *Engine) gate(ctx context.Context, event domain.GamificationEvent) (*domain.RewardSummary, bool) {
	outcome := e.validator.ValidateGamificationEvent(ctx, event)
	if outcome.IsValid {
		return nil, false
	}

	e.publish(ctx, domain.NewRewardBlockedEvent(event.User(), event.Kind(), outcome.Result))
	return &domain.RewardSummary{
		AchievementsUnlocked: []domain.Achievement{},
		BadgesEarned:         []domain.Badge{},
		Blocked:              true,
		BlockReason:          outcome.Result.Reason,
	}, true
}

// prepareProfile loads the profile, catches up a missed daily rollover, and
// applies today's streak update so the reward calculation sees the streak
// that includes this activity.
func (e *Engine) prepareProfile(ctx context.Context, event domain.GamificationEvent) (*domain.UserProfile, error) {
	profile, err := e.profiles.FindByUserID(ctx, e.db, event.User())
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrNotFound("profile", event.User().String())
	}

	now := e.now()
	today := infra.UTCDateString(now)
	yesterday := infra.YesterdayUTC(now)

	if state.EnsureDailyWindow(profile, today) {
		if profile, err = e.manager.Submit(ctx, state.DailyReset(event.User(), today, yesterday)); err != nil {
			return nil, err
		}
	}
	return e.manager.Submit(ctx, state.UpdateStreak(event.User(), today, yesterday))
}

// grant clamps the coin request to the daily cap and applies the reward.
func (e *Engine) grant(
	ctx context.Context,
	event domain.GamificationEvent,
	profile *domain.UserProfile,
	reward domain.Reward,
	counters state.CounterDeltas,
	reason string,
) (*domain.RewardSummary, *domain.UserProfile, error) {
	granted := state.AwardWithDailyLimit(profile, reward.CoinsEarned)
	levelBefore := profile.Level

	updated, err := e.manager.Submit(ctx, state.Reward(event.User(), granted, reward.ExperienceGained, counters, reason))
	if err != nil {
		e.validator.Release(event)
		e.validator.RecordFailure(ctx, event)
		e.logger.Error("reward apply failed",
			"user_id", event.User(), "activity_type", event.Kind(), "error", err)
		return nil, nil, err
	}

	return &domain.RewardSummary{
		CoinsEarned:          granted,
		ExperienceGained:     reward.ExperienceGained,
		AchievementsUnlocked: []domain.Achievement{},
		BadgesEarned:         []domain.Badge{},
		LevelUp:              updated.Level > levelBefore,
	}, updated, nil
}

// unlock routes each newly earned achievement (and linked badge) through the
// idempotent unlock path. A dropped unlock marks the summary as partial
// rather than failing the whole reward.
func (e *Engine) unlock(ctx context.Context, profile *domain.UserProfile, summary *domain.RewardSummary, ids []string) {
	at := e.now().UTC()
	for _, id := range ids {
		ach, badge, ok := achievementFromCatalog(id, at)
		if !ok {
			continue
		}

		if _, err := e.manager.Submit(ctx, state.UnlockAchievement(profile.UserID, ach)); err != nil {
			summary.PartialFailure = true
			e.logger.Error("achievement unlock dropped",
				"user_id", profile.UserID, "achievement_id", id, "error", err)
			continue
		}
		summary.AchievementsUnlocked = append(summary.AchievementsUnlocked, ach)

		if badge == nil {
			continue
		}
		if _, err := e.manager.Submit(ctx, state.EarnBadge(profile.UserID, *badge)); err != nil {
			summary.PartialFailure = true
			e.logger.Error("badge earn dropped",
				"user_id", profile.UserID, "badge_id", badge.ID, "error", err)
			continue
		}
		summary.BadgesEarned = append(summary.BadgesEarned, *badge)
	}
}

// finish records the completion for the duplicate check and publishes the
// granted event.
func (e *Engine) finish(ctx context.Context, event domain.GamificationEvent, summary *domain.RewardSummary) {
	completion := &domain.ActivityCompletion{
		ID:           uuid.New(),
		UserID:       event.User(),
		ActivityType: event.Kind(),
		NaturalKey:   event.NaturalKey(),
		CoinsAwarded: summary.CoinsEarned,
		XPAwarded:    summary.ExperienceGained,
		CompletedAt:  e.now().UTC(),
	}
	if err := e.activities.RecordCompletion(ctx, e.db, completion); err != nil {
		// The in-memory guard still covers the near term; surface the gap.
		summary.PartialFailure = true
		e.logger.Error("completion record failed",
			"user_id", event.User(), "natural_key", event.NaturalKey(), "error", err)
	}

	e.publish(ctx, domain.NewRewardGrantedEvent(event.User(), event.Kind(), summary))
}

// completeChallenge marks the persisted challenge record done. Records that
// are missing or not uuid-keyed only cost a log line.
func (e *Engine) completeChallenge(ctx context.Context, event domain.ChallengeCompleted) {
	id, err := uuid.Parse(event.ChallengeID)
	if err != nil {
		return
	}

	challenge, err := e.challenges.FindByID(ctx, e.db, id)
	if err != nil || challenge == nil {
		if err != nil {
			e.logger.Error("challenge lookup failed", "challenge_id", id, "error", err)
		}
		return
	}

	challenge.Progress = challenge.Target
	challenge.IsCompleted = true
	challenge.UpdatedAt = e.now().UTC()
	if err := e.challenges.Save(ctx, e.db, challenge); err != nil {
		e.logger.Error("challenge save failed", "challenge_id", id, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, draft domain.OutboxDraft) {
	if e.outbox == nil {
		return
	}
	if err := e.outbox.Insert(ctx, e.db, draft); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error("outbox insert failed", "event_type", draft.EventType, "error", err)
	}
}
