package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuthUser is a login identity. The ID doubles as the profile's user id.
type AuthUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // learner, admin
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
