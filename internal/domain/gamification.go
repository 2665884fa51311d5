package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies a gamification activity class. Cooldown windows,
// rapid-fire ceilings and duplicate tracking are keyed per (user, type).
type ActivityType string

const (
	ActivityQuizCompletion    ActivityType = "quiz_completion"
	ActivityGameCompletion    ActivityType = "game_completion"
	ActivityDailyChallenge    ActivityType = "daily_challenge"
	ActivityAchievementUnlock ActivityType = "achievement_unlock"
	ActivityCoinAward         ActivityType = "coin_award"
)

// Difficulty scales game rewards.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyAdaptive Difficulty = "adaptive"
)

// DifficultyMultiplier returns the coin multiplier for a game difficulty.
// Unknown difficulties are treated as medium.
func DifficultyMultiplier(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return 0.8
	case DifficultyHard:
		return 1.2
	default:
		return 1.0
	}
}

// GamificationEvent is the tagged union of validated reward events. Each
// concrete event carries typed, required fields instead of a generic data bag.
type GamificationEvent interface {
	Kind() ActivityType
	User() uuid.UUID
	// NaturalKey is the duplicate-prevention key: the same key is never
	// rewarded twice for the same user and activity type.
	NaturalKey() string
	// SessionID is the learner session the event belongs to, if any.
	Session() *uuid.UUID
}

// QuizCompleted reports a finished quiz.
type QuizCompleted struct {
	UserID         uuid.UUID  `json:"user_id"`
	SessionID      *uuid.UUID `json:"session_id,omitempty"`
	QuizSessionID  string     `json:"quiz_session_id"`
	Category       string     `json:"category"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	PerfectScore   bool       `json:"perfect_score"`
	ResponseTimeMs int64      `json:"response_time_ms"`
	HintsUsed      int        `json:"hints_used"`
}

func (e QuizCompleted) Kind() ActivityType   { return ActivityQuizCompletion }
func (e QuizCompleted) User() uuid.UUID      { return e.UserID }
func (e QuizCompleted) NaturalKey() string   { return e.QuizSessionID }
func (e QuizCompleted) Session() *uuid.UUID  { return e.SessionID }

// GameCompleted reports a finished mini-game.
type GameCompleted struct {
	UserID        uuid.UUID  `json:"user_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	GameSessionID string     `json:"game_session_id"`
	GameType      string     `json:"game_type"`
	Score         int        `json:"score"` // 0-100
	Accuracy      float64    `json:"accuracy"`
	TimeSpentMs   int64      `json:"time_spent_ms"`
	PerfectGame   bool       `json:"perfect_game"`
	Difficulty    Difficulty `json:"difficulty"`
	HintsUsed     int        `json:"hints_used"`
}

func (e GameCompleted) Kind() ActivityType   { return ActivityGameCompletion }
func (e GameCompleted) User() uuid.UUID      { return e.UserID }
func (e GameCompleted) NaturalKey() string   { return e.GameSessionID }
func (e GameCompleted) Session() *uuid.UUID  { return e.SessionID }

// ChallengeCompleted reports a finished daily challenge.
type ChallengeCompleted struct {
	UserID        uuid.UUID  `json:"user_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	ChallengeID   string     `json:"challenge_id"`
	ChallengeType string     `json:"challenge_type"`
	Curriculum    bool       `json:"curriculum"`
}

func (e ChallengeCompleted) Kind() ActivityType  { return ActivityDailyChallenge }
func (e ChallengeCompleted) User() uuid.UUID     { return e.UserID }
func (e ChallengeCompleted) NaturalKey() string  { return e.ChallengeID }
func (e ChallengeCompleted) Session() *uuid.UUID { return e.SessionID }

// AchievementUnlock requests crediting of an unlocked achievement.
type AchievementUnlock struct {
	UserID        uuid.UUID  `json:"user_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	AchievementID string     `json:"achievement_id"`
}

func (e AchievementUnlock) Kind() ActivityType  { return ActivityAchievementUnlock }
func (e AchievementUnlock) User() uuid.UUID     { return e.UserID }
func (e AchievementUnlock) NaturalKey() string  { return e.AchievementID }
func (e AchievementUnlock) Session() *uuid.UUID { return e.SessionID }

// CoinAward requests a direct coin credit (achievement rewards, admin grants).
type CoinAward struct {
	UserID    uuid.UUID  `json:"user_id"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	AwardID   string     `json:"award_id"`
	Amount    int        `json:"amount"`
	Reason    string     `json:"reason"`
}

func (e CoinAward) Kind() ActivityType  { return ActivityCoinAward }
func (e CoinAward) User() uuid.UUID     { return e.UserID }
func (e CoinAward) NaturalKey() string  { return e.AwardID }
func (e CoinAward) Session() *uuid.UUID { return e.SessionID }

// GuardResult is the verdict of a duplicate-prevention or session check.
// Rejections are values, never panics or thrown errors.
type GuardResult struct {
	Allowed           bool          `json:"allowed"`
	Reason            string        `json:"reason,omitempty"`
	Guard             string        `json:"guard,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining,omitempty"`
	Exploit           bool          `json:"exploit,omitempty"`
}

// Reward is the output of the point calculator.
type Reward struct {
	CoinsEarned      int  `json:"coins_earned"`
	ExperienceGained int  `json:"experience_gained"`
	LevelUp          bool `json:"level_up"`
}

// RewardSummary is returned to the caller after a completion is processed.
type RewardSummary struct {
	CoinsEarned          int           `json:"coins_earned"`
	ExperienceGained     int           `json:"experience_gained"`
	AchievementsUnlocked []Achievement `json:"achievements_unlocked"`
	BadgesEarned         []Badge       `json:"badges_earned"`
	LevelUp              bool          `json:"level_up"`
	Blocked              bool          `json:"blocked"`
	BlockReason          string        `json:"block_reason,omitempty"`
	// PartialFailure is set when part of the reward could not be applied
	// (a queued operation exhausted its retries).
	PartialFailure bool `json:"partial_failure,omitempty"`
}

// ActivityCompletion is the persisted record of a rewarded activity. Its
// (user, type, natural key) uniqueness backs the duplicate check.
type ActivityCompletion struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	ActivityType ActivityType `json:"activity_type"`
	NaturalKey   string       `json:"natural_key"`
	CoinsAwarded int          `json:"coins_awarded"`
	XPAwarded    int          `json:"xp_awarded"`
	CompletedAt  time.Time    `json:"completed_at"`
}
