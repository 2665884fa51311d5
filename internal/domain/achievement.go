package domain

import "time"

// Rarity classifies achievements for display and reward weighting.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// Achievement is an unlocked (or in-progress) achievement on a profile.
// Once UnlockedAt is set it is never cleared or reprocessed.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Rarity      Rarity     `json:"rarity"`
	RewardCoins int        `json:"reward_coins"`
	Progress    int        `json:"progress"` // 0-100
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Badge is earned as a side effect of specific achievements.
type Badge struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Level    string    `json:"level"` // bronze, silver, gold
	EarnedAt time.Time `json:"earned_at"`
}

// AchievementDef is the immutable definition of an achievement.
type AchievementDef struct {
	ID          string
	Title       string
	Category    string
	Description string
	Rarity      Rarity
	RewardCoins int
	BadgeID     string // optional badge earned alongside
}

// AchievementCatalog maps achievement ids to their definitions.
var AchievementCatalog = map[string]AchievementDef{
	"first_quiz": {
		ID: "first_quiz", Title: "First Steps", Category: "quiz",
		Description: "Complete your first quiz", Rarity: RarityCommon, RewardCoins: 25,
	},
	"quiz_50": {
		ID: "quiz_50", Title: "Constitutional Scholar", Category: "quiz",
		Description: "Complete 50 quizzes", Rarity: RarityRare, RewardCoins: 150,
		BadgeID: "badge_scholar",
	},
	"perfect_run_5": {
		ID: "perfect_run_5", Title: "Flawless Five", Category: "quiz",
		Description: "Score perfectly on 5 quizzes in a row", Rarity: RarityRare, RewardCoins: 100,
		BadgeID: "badge_perfectionist",
	},
	"speed_demon": {
		ID: "speed_demon", Title: "Speed Reader", Category: "quiz",
		Description: "Finish a quiz under 2 minutes with at least 90%", Rarity: RarityUncommon, RewardCoins: 50,
	},
	"game_master": {
		ID: "game_master", Title: "Game Master", Category: "game",
		Description: "Score 90 or more in a mini-game", Rarity: RarityUncommon, RewardCoins: 50,
	},
	"streak_3": {
		ID: "streak_3", Title: "Getting Started", Category: "streak",
		Description: "3-day activity streak", Rarity: RarityCommon, RewardCoins: 15,
	},
	"streak_7": {
		ID: "streak_7", Title: "Week Warrior", Category: "streak",
		Description: "7-day activity streak", Rarity: RarityUncommon, RewardCoins: 40,
		BadgeID: "badge_dedicated",
	},
	"streak_30": {
		ID: "streak_30", Title: "Founding Habit", Category: "streak",
		Description: "30-day activity streak", Rarity: RarityLegendary, RewardCoins: 200,
		BadgeID: "badge_founder",
	},
	"challenge_10": {
		ID: "challenge_10", Title: "Daily Devotee", Category: "challenge",
		Description: "Complete 10 daily challenges", Rarity: RarityUncommon, RewardCoins: 60,
	},
}

// BadgeCatalog maps badge ids to their immutable shapes.
var BadgeCatalog = map[string]Badge{
	"badge_scholar":       {ID: "badge_scholar", Name: "Scholar", Category: "quiz", Level: "gold"},
	"badge_perfectionist": {ID: "badge_perfectionist", Name: "Perfectionist", Category: "quiz", Level: "silver"},
	"badge_dedicated":     {ID: "badge_dedicated", Name: "Dedicated", Category: "streak", Level: "silver"},
	"badge_founder":       {ID: "badge_founder", Name: "Founder", Category: "streak", Level: "gold"},
}

// NewUnlockedAchievement instantiates a catalog definition as an unlocked achievement.
func NewUnlockedAchievement(def AchievementDef, at time.Time) Achievement {
	return Achievement{
		ID:          def.ID,
		Title:       def.Title,
		Category:    def.Category,
		Description: def.Description,
		Rarity:      def.Rarity,
		RewardCoins: def.RewardCoins,
		Progress:    100,
		UnlockedAt:  &at,
	}
}
