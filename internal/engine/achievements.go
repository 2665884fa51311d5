package engine

import (
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

const (
	speedDemonMaxMs    = 2 * 60 * 1000
	speedDemonMinScore = 0.9
	gameMasterScore    = 90
	scholarQuizzes     = 50
	perfectRunTarget   = 5
	devoteeChallenges  = 10
)

// streakTargets maps streak lengths to their achievement ids.
var streakTargets = map[int]string{
	3:  "streak_3",
	7:  "streak_7",
	30: "streak_30",
}

// quizAchievements returns the achievement ids the profile qualifies for
// after a quiz, excluding ones already unlocked.
func quizAchievements(p *domain.UserProfile, quiz domain.QuizCompleted) []string {
	var ids []string

	if p.TotalQuizzes >= 1 {
		ids = append(ids, "first_quiz")
	}
	if p.TotalQuizzes >= scholarQuizzes {
		ids = append(ids, "quiz_50")
	}
	if p.PerfectQuizRun >= perfectRunTarget {
		ids = append(ids, "perfect_run_5")
	}
	if quiz.TotalQuestions > 0 && quiz.ResponseTimeMs > 0 && quiz.ResponseTimeMs <= speedDemonMaxMs {
		score := float64(quiz.CorrectAnswers) / float64(quiz.TotalQuestions)
		if score >= speedDemonMinScore {
			ids = append(ids, "speed_demon")
		}
	}

	return filterUnlocked(p, ids)
}

// gameAchievements returns the ids earned by a game completion.
func gameAchievements(p *domain.UserProfile, game domain.GameCompleted) []string {
	var ids []string
	if game.Score >= gameMasterScore {
		ids = append(ids, "game_master")
	}
	return filterUnlocked(p, ids)
}

// challengeAchievements returns the ids earned by a challenge completion.
func challengeAchievements(p *domain.UserProfile) []string {
	var ids []string
	if p.TotalChallenges >= devoteeChallenges {
		ids = append(ids, "challenge_10")
	}
	return filterUnlocked(p, ids)
}

// streakAchievements returns the ids earned at the profile's current streak.
func streakAchievements(p *domain.UserProfile) []string {
	var ids []string
	for target, id := range streakTargets {
		if p.CurrentStreak >= target {
			ids = append(ids, id)
		}
	}
	return filterUnlocked(p, ids)
}

func filterUnlocked(p *domain.UserProfile, ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if !p.HasAchievement(id) {
			out = append(out, id)
		}
	}
	return out
}

// achievementFromCatalog materializes an unlocked achievement and its linked
// badge, if any.
func achievementFromCatalog(id string, at time.Time) (domain.Achievement, *domain.Badge, bool) {
	def, ok := domain.AchievementCatalog[id]
	if !ok {
		return domain.Achievement{}, nil, false
	}
	ach := domain.NewUnlockedAchievement(def, at)
	if def.BadgeID == "" {
		return ach, nil, true
	}
	badge, ok := domain.BadgeCatalog[def.BadgeID]
	if !ok {
		return ach, nil, true
	}
	badge.EarnedAt = at
	return ach, &badge, true
}
