package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the lifecycle of a learner session.
// Active sessions transition to a terminal status exactly once.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionEnded    SessionStatus = "ended"
	SessionTimedOut SessionStatus = "timed_out"
)

// Terminal reports whether the status is final.
func (s SessionStatus) Terminal() bool { return s != SessionActive }

// ActivityOutcome classifies how a session activity resolved. Risk scoring
// uses the outcome, not the activity payload.
type ActivityOutcome string

const (
	OutcomeSuccess          ActivityOutcome = "success"
	OutcomeFailed           ActivityOutcome = "failed"
	OutcomeDuplicateBlocked ActivityOutcome = "duplicate_blocked"
	OutcomeExploitDetected  ActivityOutcome = "exploit_detected"
)

// SessionActivity is one entry in a session's bounded activity log.
type SessionActivity struct {
	Type    ActivityType    `json:"type"`
	Outcome ActivityOutcome `json:"outcome"`
	At      time.Time       `json:"at"`
}

// IssueSeverity ranks session validation issues.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// SessionIssue is one finding from session validation.
type SessionIssue struct {
	Code     string        `json:"code"` // rapid_fire, suspicious_pattern, time_anomaly
	Severity IssueSeverity `json:"severity"`
	Detail   string        `json:"detail"`
}

// ValidationState is the recomputed health of a session.
type ValidationState struct {
	IsValid bool           `json:"is_valid"`
	Issues  []SessionIssue `json:"issues,omitempty"`
}

// HasCritical reports whether any unresolved issue is critical.
func (v ValidationState) HasCritical() bool {
	for _, issue := range v.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// UserSession is a bounded sequence of activities within a time window.
// Once terminal it is immutable and moved out of the active-session map.
type UserSession struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	Status       SessionStatus     `json:"status"`
	StartTime    time.Time         `json:"start_time"`
	LastActivity time.Time         `json:"last_activity"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	Activities   []SessionActivity `json:"activities"`
	RiskScore    int               `json:"risk_score"`
	Validation   ValidationState   `json:"validation"`
}

// NewUserSession starts an active session for the user.
func NewUserSession(userID uuid.UUID, now time.Time) *UserSession {
	return &UserSession{
		ID:           uuid.New(),
		UserID:       userID,
		Status:       SessionActive,
		StartTime:    now,
		LastActivity: now,
		Validation:   ValidationState{IsValid: true},
	}
}
