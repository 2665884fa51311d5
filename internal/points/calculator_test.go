package points

import (
	"testing"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/stretchr/testify/assert"
)

func quiz(correct, total int) domain.QuizCompleted {
	return domain.QuizCompleted{
		QuizSessionID:  "qs-1",
		TotalQuestions: total,
		CorrectAnswers: correct,
		ResponseTimeMs: 60_000, // outside the speed bonus window
	}
}

func TestCalculateQuizReward_BaseFormula(t *testing.T) {
	for _, correct := range []int{1, 3, 7, 10} {
		r := CalculateQuizReward(quiz(correct, 10), 0, 0)
		assert.Equal(t, correct*5, r.CoinsEarned, "coins for %d correct", correct)
		assert.Equal(t, correct*10, r.ExperienceGained, "xp for %d correct", correct)
	}
}

func TestCalculateQuizReward_ZeroCorrectGetsMinimums(t *testing.T) {
	r := CalculateQuizReward(quiz(0, 10), 0, 0)
	assert.Equal(t, 1, r.CoinsEarned)
	assert.Equal(t, 5, r.ExperienceGained)
}

func TestCalculateQuizReward_PerfectBonusAfterSpeedBonus(t *testing.T) {
	// c=1, no streak, slow response, perfect score:
	// coins = 5 + floor(5*0.5) = 7, xp = max(10+2*2, 7*2) = 14
	perf := quiz(1, 1)
	perf.PerfectScore = true
	r := CalculateQuizReward(perf, 0, 0)
	assert.Equal(t, 7, r.CoinsEarned)
	assert.Equal(t, 14, r.ExperienceGained)
}

func TestCalculateQuizReward_StreakTable(t *testing.T) {
	cases := []struct {
		streak int
		coins  int
		xp     int
	}{
		{0, 5, 10},
		{1, 5, 10},
		{2, 5, 11},  // floor(5*1.1)=5, floor(10*1.1)=11
		{3, 6, 12},  // floor(5*1.2)=6, floor(10*1.2)=12
		{4, 6, 13},  // floor(5*1.3)=6, floor(10*1.3)=13
		{5, 6, 13},  // table caps at 1.3
		{50, 6, 13}, // bonus never grows past 1.3
	}
	for _, tc := range cases {
		r := CalculateQuizReward(quiz(1, 5), 0, tc.streak)
		assert.Equal(t, tc.coins, r.CoinsEarned, "coins at streak %d", tc.streak)
		assert.Equal(t, tc.xp, r.ExperienceGained, "xp at streak %d", tc.streak)
	}
}

func TestCalculateQuizReward_SpeedBonus(t *testing.T) {
	perf := quiz(10, 10)
	perf.ResponseTimeMs = 2500
	r := CalculateQuizReward(perf, 0, 0)
	// base 50 coins + floor(50*0.1)=5, base 100 xp + 5*2=10
	assert.Equal(t, 55, r.CoinsEarned)
	assert.Equal(t, 110, r.ExperienceGained)
}

func TestCalculateQuizReward_XPFlooredToTwiceCoins(t *testing.T) {
	perf := quiz(1, 1)
	perf.ResponseTimeMs = 1000
	perf.PerfectScore = true
	r := CalculateQuizReward(perf, 0, 0)
	assert.GreaterOrEqual(t, r.ExperienceGained, r.CoinsEarned*2)
}

func TestCalculateQuizReward_LevelUp(t *testing.T) {
	// 95 XP + 10 correct answers crosses the 100 XP threshold.
	r := CalculateQuizReward(quiz(10, 10), 95, 0)
	assert.True(t, r.LevelUp)

	r = CalculateQuizReward(quiz(1, 10), 0, 0)
	assert.False(t, r.LevelUp)
}

func TestCalculateGameReward_BaseClamp(t *testing.T) {
	perf := domain.GameCompleted{GameSessionID: "gs-1", GameType: "memory", Score: 10, Difficulty: domain.DifficultyMedium}
	r := CalculateGameReward(perf, 0, 0)
	// floor(10*0.75)=7 clamps up to the 25-coin floor
	assert.Equal(t, 25, r.CoinsEarned)
	assert.Equal(t, 50, r.ExperienceGained)
}

func TestCalculateGameReward_DifficultyMultiplier(t *testing.T) {
	perf := domain.GameCompleted{GameSessionID: "gs-1", GameType: "memory", Score: 100}

	perf.Difficulty = domain.DifficultyEasy
	assert.Equal(t, 60, CalculateGameReward(perf, 0, 0).CoinsEarned) // floor(75*0.8)

	perf.Difficulty = domain.DifficultyMedium
	assert.Equal(t, 75, CalculateGameReward(perf, 0, 0).CoinsEarned)

	perf.Difficulty = domain.DifficultyHard
	assert.Equal(t, 90, CalculateGameReward(perf, 0, 0).CoinsEarned) // floor(75*1.2)

	perf.Difficulty = domain.DifficultyAdaptive
	assert.Equal(t, 75, CalculateGameReward(perf, 0, 0).CoinsEarned)
}

func TestCalculateGameReward_PerfectGameAndXPRatio(t *testing.T) {
	perf := domain.GameCompleted{
		GameSessionID: "gs-1", GameType: "memory", Score: 80,
		Difficulty: domain.DifficultyMedium, PerfectGame: true,
	}
	r := CalculateGameReward(perf, 0, 0)
	// floor(80*0.75)=60, +floor(60*0.5)=30 -> 90 coins, xp = 180
	assert.Equal(t, 90, r.CoinsEarned)
	assert.Equal(t, r.CoinsEarned*2, r.ExperienceGained)
}

func TestCalculateChallengeReward_CurriculumBonus(t *testing.T) {
	traditional := CalculateChallengeReward("daily_quiz", false, 0)
	curriculum := CalculateChallengeReward("daily_quiz", true, 0)

	assert.Equal(t, 50, traditional.CoinsEarned)
	assert.Equal(t, 75, curriculum.CoinsEarned)
	assert.Equal(t, 150, curriculum.ExperienceGained)
}

func TestCalculateChallengeReward_UnknownTypeUsesDefault(t *testing.T) {
	r := CalculateChallengeReward("does_not_exist", false, 0)
	assert.Equal(t, 25, r.CoinsEarned)
	assert.Equal(t, 50, r.ExperienceGained)
}

func TestLevelForXP_ThresholdTable(t *testing.T) {
	cases := map[int]int{
		0:     0,
		99:    0,
		100:   1,
		249:   1,
		250:   2,
		500:   3,
		1000:  4,
		1750:  5,
		2750:  6,
		4000:  7,
		5500:  8,
		7500:  9,
		10000: 10,
		99999: 10,
	}
	for xp, level := range cases {
		assert.Equal(t, level, domain.LevelForXP(xp), "level for %d xp", xp)
	}
}

func TestStreakMultiplier_Table(t *testing.T) {
	assert.Equal(t, 1.0, StreakMultiplier(0))
	assert.Equal(t, 1.0, StreakMultiplier(1))
	assert.Equal(t, 1.1, StreakMultiplier(2))
	assert.Equal(t, 1.2, StreakMultiplier(3))
	assert.Equal(t, 1.3, StreakMultiplier(4))
	assert.Equal(t, 1.3, StreakMultiplier(12))
}
