// Package points converts quiz, game and challenge performance into coin and
// XP rewards. Everything here is pure: no I/O, no clocks, no stored state.
package points

import (
	"github.com/constitutionhub/platform/internal/domain"
)

const (
	coinsPerCorrectAnswer = 5
	xpPerCorrectAnswer    = 10

	// speedBonusThresholdMs is the response time under which a quiz earns
	// the 10% speed bonus.
	speedBonusThresholdMs = 3000

	minCoins = 1
	minXP    = 5

	gameBaseFloor = 25

	// xpPerCoin is a floor: total XP never drops below coins*2.
	xpPerCoin = 2

	curriculumBonus = 1.5
)

// StreakMultiplier returns the reward multiplier for a daily streak.
// The bonus tops out at 1.3 from streak 4 onward.
func StreakMultiplier(currentStreak int) float64 {
	switch {
	case currentStreak < 2:
		return 1.0
	case currentStreak == 2:
		return 1.1
	case currentStreak == 3:
		return 1.2
	default:
		return 1.3
	}
}

// CalculateQuizReward computes the reward for a completed quiz given the
// profile's lifetime XP and current streak.
func CalculateQuizReward(perf domain.QuizCompleted, lifetimeXP, currentStreak int) domain.Reward {
	coins := perf.CorrectAnswers * coinsPerCorrectAnswer
	xp := perf.CorrectAnswers * xpPerCorrectAnswer

	mult := StreakMultiplier(currentStreak)
	coins = int(float64(coins) * mult)
	xp = int(float64(xp) * mult)

	if perf.ResponseTimeMs <= speedBonusThresholdMs {
		speedBonus := coins / 10
		coins += speedBonus
		xp += speedBonus * 2
	}

	// Perfect bonus applies to the coin total after the speed bonus.
	if perf.PerfectScore {
		perfectBonus := coins / 2
		coins += perfectBonus
		xp += perfectBonus * 2
	}

	if xp < coins*xpPerCoin {
		xp = coins * xpPerCoin
	}

	return finalize(coins, xp, lifetimeXP)
}

// CalculateGameReward computes the reward for a completed mini-game.
func CalculateGameReward(perf domain.GameCompleted, lifetimeXP, currentStreak int) domain.Reward {
	coins := perf.Score * 3 / 4
	if coins < gameBaseFloor {
		coins = gameBaseFloor
	}

	coins = int(float64(coins) * domain.DifficultyMultiplier(perf.Difficulty))
	coins = int(float64(coins) * StreakMultiplier(currentStreak))

	if perf.PerfectGame {
		coins += coins / 2
	}

	xp := coins * xpPerCoin

	return finalize(coins, xp, lifetimeXP)
}

// challengeRewards holds the fixed base reward per challenge type.
var challengeRewards = map[string]domain.Reward{
	"daily_quiz":     {CoinsEarned: 50, ExperienceGained: 100},
	"reading":        {CoinsEarned: 30, ExperienceGained: 60},
	"mini_game":      {CoinsEarned: 40, ExperienceGained: 80},
	"amendment_match": {CoinsEarned: 35, ExperienceGained: 70},
}

// defaultChallengeReward is used for challenge types not in the table.
var defaultChallengeReward = domain.Reward{CoinsEarned: 25, ExperienceGained: 50}

// CalculateChallengeReward computes the reward for a completed daily
// challenge. Curriculum-mode challenges pay a 50% bonus over the equivalent
// traditional challenge.
func CalculateChallengeReward(challengeType string, curriculum bool, lifetimeXP int) domain.Reward {
	base, ok := challengeRewards[challengeType]
	if !ok {
		base = defaultChallengeReward
	}

	coins := base.CoinsEarned
	xp := base.ExperienceGained
	if curriculum {
		coins = int(float64(coins) * curriculumBonus)
		xp = int(float64(xp) * curriculumBonus)
	}

	return finalize(coins, xp, lifetimeXP)
}

// finalize applies the global minimums and computes the level-up flag.
func finalize(coins, xp, lifetimeXP int) domain.Reward {
	if coins < minCoins {
		coins = minCoins
	}
	if xp < minXP {
		xp = minXP
	}
	return domain.Reward{
		CoinsEarned:      coins,
		ExperienceGained: xp,
		LevelUp:          domain.LevelForXP(lifetimeXP+xp) > domain.LevelForXP(lifetimeXP),
	}
}
