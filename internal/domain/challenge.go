package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeWindow is how long a daily challenge stays valid after assignment.
const ChallengeWindow = 24 * time.Hour

// DailyChallenge is a per-learner challenge that resets every UTC day.
type DailyChallenge struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ChallengeType string    `json:"challenge_type"`
	Title         string    `json:"title"`
	Progress      int       `json:"progress"`
	Target        int       `json:"target"`
	IsCompleted   bool      `json:"is_completed"`
	Curriculum    bool      `json:"curriculum"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Expired reports whether the challenge window has closed.
func (c *DailyChallenge) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// ResetForNewDay clears progress and opens a fresh 24h window.
func (c *DailyChallenge) ResetForNewDay(now time.Time) {
	c.Progress = 0
	c.IsCompleted = false
	c.ExpiresAt = now.Add(ChallengeWindow)
	c.UpdatedAt = now
}
