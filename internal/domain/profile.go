package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDailyCoinLimit caps the coins a learner may earn in one UTC day.
const DefaultDailyCoinLimit = 500

// LevelThresholds maps lifetime XP to a profile level: the level is the
// highest index whose threshold the XP total has reached.
var LevelThresholds = []int{0, 100, 250, 500, 1000, 1750, 2750, 4000, 5500, 7500, 10000}

// LevelForXP returns the profile level for a lifetime XP total.
func LevelForXP(xp int) int {
	level := 0
	for i, threshold := range LevelThresholds {
		if xp < threshold {
			break
		}
		level = i
	}
	return level
}

// UserProfile is the single mutable aggregate of the gamification system.
// All writes go through the state manager's serialized update path.
type UserProfile struct {
	UserID           uuid.UUID `json:"user_id"`
	Coins            int       `json:"coins"`
	ExperiencePoints int       `json:"experience_points"`
	Level            int       `json:"level"`

	DailyCoinsEarned int    `json:"daily_coins_earned"`
	DailyCoinLimit   int    `json:"daily_coin_limit"`
	LastDailyReset   string `json:"last_daily_reset"` // UTC date, YYYY-MM-DD

	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date"` // UTC date, YYYY-MM-DD

	TotalQuizzes    int `json:"total_quizzes"`
	TotalGames      int `json:"total_games"`
	PerfectQuizRun  int `json:"perfect_quiz_run"` // consecutive perfect-score quizzes
	TotalChallenges int `json:"total_challenges"`

	Achievements []Achievement `json:"achievements"`
	Badges       []Badge       `json:"badges"`

	CurriculumEnabled         bool   `json:"curriculum_enabled"`
	CurriculumStartDate       string `json:"curriculum_start_date,omitempty"`
	CurriculumDayCompleted    int    `json:"curriculum_day_completed"`
	CurriculumTopicsCompleted int    `json:"curriculum_topics_completed"`

	// Version is a monotonic write counter used for optimistic locking.
	// Every successful save increments it.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile returns a zeroed profile valid for the given UTC day.
func NewUserProfile(userID uuid.UUID, today string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:         userID,
		DailyCoinLimit: DefaultDailyCoinLimit,
		LastDailyReset: today,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy safe to mutate independently.
func (p *UserProfile) Clone() *UserProfile {
	c := *p
	c.Achievements = append([]Achievement(nil), p.Achievements...)
	c.Badges = append([]Badge(nil), p.Badges...)
	return &c
}

// HasAchievement reports whether the achievement id is already unlocked.
func (p *UserProfile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasBadge reports whether the badge id is already earned.
func (p *UserProfile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// RemainingDailyCoins returns how many coins may still be earned today.
func (p *UserProfile) RemainingDailyCoins() int {
	remaining := p.DailyCoinLimit - p.DailyCoinsEarned
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clamp enforces the numeric invariants: counters never negative and
// the daily counter never above the daily limit.
func (p *UserProfile) Clamp() {
	if p.Coins < 0 {
		p.Coins = 0
	}
	if p.ExperiencePoints < 0 {
		p.ExperiencePoints = 0
	}
	if p.DailyCoinsEarned < 0 {
		p.DailyCoinsEarned = 0
	}
	if p.DailyCoinLimit < 1 {
		p.DailyCoinLimit = DefaultDailyCoinLimit
	}
	if p.DailyCoinsEarned > p.DailyCoinLimit {
		p.DailyCoinsEarned = p.DailyCoinLimit
	}
	if p.CurrentStreak < 0 {
		p.CurrentStreak = 0
	}
	if p.LongestStreak < p.CurrentStreak {
		p.LongestStreak = p.CurrentStreak
	}
}
