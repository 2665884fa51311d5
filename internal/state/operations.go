package state

import (
	"fmt"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
)

// Reward credits coins and XP in one operation. The coin amount must already
// be clamped to the daily cap by the caller; the manager's clamp still
// guarantees the cap as a final invariant. Activity counters move with it.
func Reward(userID uuid.UUID, coins, xp int, counters CounterDeltas, reason string) *Operation {
	return &Operation{
		Type:     OpReward,
		UserID:   userID,
		Priority: PriorityHigh,
		Reason:   reason,
		Apply: func(p *domain.UserProfile) error {
			if coins < 0 || xp < 0 {
				return domain.ErrValidation(fmt.Sprintf("negative reward: coins=%d xp=%d", coins, xp))
			}
			p.Coins += coins
			p.DailyCoinsEarned += coins
			p.ExperiencePoints += xp
			p.TotalQuizzes += counters.Quizzes
			p.TotalGames += counters.Games
			p.TotalChallenges += counters.Challenges
			if counters.ResetPerfectRun {
				p.PerfectQuizRun = 0
			} else {
				p.PerfectQuizRun += counters.PerfectRun
			}
			return nil
		},
	}
}

// CounterDeltas moves the profile's lifetime activity counters alongside a
// reward apply.
type CounterDeltas struct {
	Quizzes    int
	Games      int
	Challenges int
	// PerfectRun increments the consecutive perfect-quiz counter;
	// ResetPerfectRun zeroes it instead (a non-perfect quiz).
	PerfectRun      int
	ResetPerfectRun bool
}

// UnlockAchievement appends the achievement if not already present.
// Duplicate unlocks are a silent no-op, keeping the path idempotent.
func UnlockAchievement(userID uuid.UUID, achievement domain.Achievement) *Operation {
	return &Operation{
		Type:     OpAchievementUnlock,
		UserID:   userID,
		Priority: PriorityNormal,
		Reason:   "achievement unlock: " + achievement.ID,
		Apply: func(p *domain.UserProfile) error {
			if p.HasAchievement(achievement.ID) {
				return nil
			}
			p.Achievements = append(p.Achievements, achievement)
			p.Coins += achievement.RewardCoins
			p.DailyCoinsEarned += achievement.RewardCoins
			return nil
		},
	}
}

// EarnBadge appends the badge if not already present. Idempotent.
func EarnBadge(userID uuid.UUID, badge domain.Badge) *Operation {
	return &Operation{
		Type:     OpBadgeEarn,
		UserID:   userID,
		Priority: PriorityNormal,
		Reason:   "badge earn: " + badge.ID,
		Apply: func(p *domain.UserProfile) error {
			if p.HasBadge(badge.ID) {
				return nil
			}
			p.Badges = append(p.Badges, badge)
			return nil
		},
	}
}

// UpdateStreak advances the daily streak for an activity on the given UTC
// day. Same-day repeats are no-ops; a gap larger than one day restarts the
// streak at 1.
func UpdateStreak(userID uuid.UUID, today, yesterday string) *Operation {
	return &Operation{
		Type:     OpStreakUpdate,
		UserID:   userID,
		Priority: PriorityHigh,
		Reason:   "streak update for " + today,
		Apply: func(p *domain.UserProfile) error {
			if p.LastActivityDate == today {
				return nil
			}
			if p.LastActivityDate == yesterday {
				p.CurrentStreak++
			} else {
				p.CurrentStreak = 1
			}
			if p.CurrentStreak > p.LongestStreak {
				p.LongestStreak = p.CurrentStreak
			}
			p.LastActivityDate = today
			return nil
		},
	}
}

// DailyReset zeroes the daily coin counter for the given UTC day and applies
// streak continuity: a last activity on neither today nor yesterday breaks
// the streak; exactly yesterday preserves it pending the next activity.
func DailyReset(userID uuid.UUID, today, yesterday string) *Operation {
	return &Operation{
		Type:     OpDailyReset,
		UserID:   userID,
		Priority: PriorityCritical,
		Reason:   "daily reset for " + today,
		Apply: func(p *domain.UserProfile) error {
			if p.LastDailyReset == today {
				return nil
			}
			p.DailyCoinsEarned = 0
			p.LastDailyReset = today
			if p.LastActivityDate != today && p.LastActivityDate != yesterday {
				p.CurrentStreak = 0
			}
			return nil
		},
	}
}

// Patch applies an arbitrary mutation at normal priority. Used by the admin
// surface and curriculum toggles.
func Patch(userID uuid.UUID, reason string, fn Mutation) *Operation {
	return &Operation{
		Type:     OpProfilePatch,
		UserID:   userID,
		Priority: PriorityNormal,
		Reason:   reason,
		Apply:    fn,
	}
}

// AwardWithDailyLimit returns the portion of a requested coin amount that
// fits under the profile's daily cap. Non-positive requests award zero.
func AwardWithDailyLimit(p *domain.UserProfile, requested int) int {
	if requested <= 0 {
		return 0
	}
	remaining := p.RemainingDailyCoins()
	if requested > remaining {
		return remaining
	}
	return requested
}

// EnsureDailyWindow reports whether the profile's daily counters are stale
// for the given UTC day and need a reset before awarding.
func EnsureDailyWindow(p *domain.UserProfile, today string) bool {
	return p.LastDailyReset != today
}
