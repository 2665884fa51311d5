package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewRewardGrantedEvent creates the outbox event for a successful reward.
func NewRewardGrantedEvent(userID uuid.UUID, activityType ActivityType, summary *RewardSummary) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":       userID.String(),
		"activity_type": activityType,
		"coins":         summary.CoinsEarned,
		"xp":            summary.ExperienceGained,
		"level_up":      summary.LevelUp,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateReward,
		AggregateID:   userID.String(),
		EventType:     EventRewardGranted,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewRewardBlockedEvent creates the outbox event for a rejected reward request.
func NewRewardBlockedEvent(userID uuid.UUID, activityType ActivityType, result GuardResult) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":       userID.String(),
		"activity_type": activityType,
		"guard":         result.Guard,
		"reason":        result.Reason,
		"exploit":       result.Exploit,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateReward,
		AggregateID:   userID.String(),
		EventType:     EventRewardBlocked,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewLearnerCreatedEvent creates a learner lifecycle event.
func NewLearnerCreatedEvent(userID uuid.UUID, email string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"user_id": userID.String(),
		"email":   email,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLearner,
		AggregateID:   userID.String(),
		EventType:     EventLearnerCreated,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewDailyResetEvent creates the outbox event for a completed daily reset.
func NewDailyResetEvent(day string, profilesReset int, challengesReset int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"day":              day,
		"profiles_reset":   profilesReset,
		"challenges_reset": challengesReset,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateProfile,
		AggregateID:   day,
		EventType:     EventDailyReset,
		PartitionKey:  day,
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewAlertRaisedEvent creates the outbox event for a fired alert rule.
func NewAlertRaisedEvent(userID uuid.UUID, rule, detail string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"user_id": userID.String(),
		"rule":    rule,
		"detail":  detail,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateAlert,
		AggregateID:   userID.String(),
		EventType:     EventAlertRaised,
		PartitionKey:  userID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
