package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventLearnerCreated      EventType = "hub.learner.created"
	EventProfileUpdated      EventType = "hub.profile.updated"
	EventRewardGranted       EventType = "hub.reward.granted"
	EventRewardBlocked       EventType = "hub.reward.blocked"
	EventAchievementUnlocked EventType = "hub.achievement.unlocked"
	EventBadgeEarned         EventType = "hub.badge.earned"
	EventStreakUpdated       EventType = "hub.streak.updated"
	EventDailyReset          EventType = "hub.daily.reset"
	EventSessionStarted      EventType = "hub.session.started"
	EventSessionEnded        EventType = "hub.session.ended"
	EventSessionFlagged      EventType = "hub.session.flagged"
	EventAlertRaised         EventType = "hub.alert.raised"
	EventOperationDropped    EventType = "hub.operation.dropped"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateLearner AggregateType = "learner"
	AggregateProfile AggregateType = "profile"
	AggregateReward  AggregateType = "reward"
	AggregateSession AggregateType = "session"
	AggregateAlert   AggregateType = "alert"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// AuditEntry is one structured record in the append-only activity event log.
// Entries are buffered by the audit logger and flushed in batches.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	EventType  EventType       `json:"event_type"`
	Severity   IssueSeverity   `json:"severity"`
	Message    string          `json:"message"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
