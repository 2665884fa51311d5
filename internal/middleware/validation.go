// Package middleware fronts the reward path: every gamification event passes
// through a session gate and the duplicate prevention chain before any
// points are granted.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/guard"
	"github.com/constitutionhub/platform/internal/session"
	"github.com/google/uuid"
)

// Monitor receives audit entries for validation outcomes worth keeping.
type Monitor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// ValidationOutcome is the façade's verdict for one event.
type ValidationOutcome struct {
	IsValid           bool                    `json:"is_valid"`
	Result            domain.GuardResult      `json:"result"`
	SessionValidation *domain.ValidationState `json:"session_validation,omitempty"`
}

// Stats is a snapshot of the running validation counters.
type Stats struct {
	Validated int                         `json:"validated"`
	Passed    int                         `json:"passed"`
	Blocked   int                         `json:"blocked"`
	Exploits  int                         `json:"exploits"`
	ByType    map[domain.ActivityType]int `json:"by_type"`
}

type postTask struct {
	event domain.GamificationEvent
}

// Validator chains the session gate and the duplicate prevention service and
// keeps running pass/block statistics.
type Validator struct {
	sessions   *session.Manager
	prevention *guard.Prevention
	monitor    Monitor
	logger     *slog.Logger

	mu    sync.Mutex
	stats Stats

	queue chan postTask
}

// NewValidator creates the validation façade. monitor may be nil.
func NewValidator(sessions *session.Manager, prevention *guard.Prevention, monitor Monitor, logger *slog.Logger) *Validator {
	return &Validator{
		sessions:   sessions,
		prevention: prevention,
		monitor:    monitor,
		logger:     logger,
		stats:      Stats{ByType: make(map[domain.ActivityType]int)},
		queue:      make(chan postTask, 256),
	}
}

// Start launches the async post-processing worker.
func (v *Validator) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-v.queue:
				v.postProcess(ctx, task)
			}
		}
	}()
}

// ValidateGamificationEvent runs the gate chain for one event. A session gate
// denial short-circuits before the duplicate checks.
func (v *Validator) ValidateGamificationEvent(ctx context.Context, event domain.GamificationEvent) ValidationOutcome {
	if sessionID := event.Session(); sessionID != nil {
		if result := v.sessions.IsActivityAllowed(ctx, *sessionID, event.Kind()); !result.Allowed {
			state := v.sessions.ValidateSession(ctx, *sessionID)
			v.recordOutcome(ctx, event, result)
			return ValidationOutcome{IsValid: false, Result: result, SessionValidation: &state}
		}
	}

	result := v.prevention.Validate(ctx, event)
	v.recordOutcome(ctx, event, result)
	if !result.Allowed {
		return ValidationOutcome{IsValid: false, Result: result}
	}

	select {
	case v.queue <- postTask{event: event}:
	default:
		// Queue saturation only costs a monitoring entry, never the verdict.
		v.logger.Warn("post-processing queue full, dropping task",
			"user_id", event.User(), "activity_type", event.Kind())
	}
	return ValidationOutcome{IsValid: true, Result: result}
}

// recordOutcome updates the counters and feeds blocked outcomes into the
// session risk score so repeat offenders surface in validation.
func (v *Validator) recordOutcome(ctx context.Context, event domain.GamificationEvent, result domain.GuardResult) {
	v.mu.Lock()
	v.stats.Validated++
	v.stats.ByType[event.Kind()]++
	if result.Allowed {
		v.stats.Passed++
	} else {
		v.stats.Blocked++
		if result.Exploit {
			v.stats.Exploits++
		}
	}
	v.mu.Unlock()

	if result.Allowed {
		return
	}

	if sessionID := event.Session(); sessionID != nil {
		outcome := domain.OutcomeDuplicateBlocked
		if result.Exploit {
			outcome = domain.OutcomeExploitDetected
		}
		v.sessions.RecordActivity(ctx, *sessionID, event.Kind(), outcome)
	}

	if v.monitor != nil && result.Exploit {
		payload, _ := json.Marshal(map[string]string{
			"activity_type": string(event.Kind()),
			"guard":         result.Guard,
		})
		v.monitor.Record(ctx, domain.AuditEntry{
			ID:         uuid.New(),
			UserID:     event.User(),
			EventType:  domain.EventAlertRaised,
			Severity:   domain.SeverityCritical,
			Message:    "exploit attempt blocked: " + result.Reason,
			Payload:    payload,
			OccurredAt: time.Now().UTC(),
		})
	}
}

func (v *Validator) postProcess(ctx context.Context, task postTask) {
	if sessionID := task.event.Session(); sessionID != nil {
		v.sessions.RecordActivity(ctx, *sessionID, task.event.Kind(), domain.OutcomeSuccess)
	}
	if v.monitor != nil {
		payload, _ := json.Marshal(map[string]string{
			"activity_type": string(task.event.Kind()),
		})
		v.monitor.Record(ctx, domain.AuditEntry{
			ID:         uuid.New(),
			UserID:     task.event.User(),
			EventType:  domain.EventProfileUpdated,
			Severity:   domain.SeverityLow,
			Message:    "gamification event validated",
			Payload:    payload,
			OccurredAt: time.Now().UTC(),
		})
	}
}

// Release forgets the event's duplicate-prevention key so a grant that failed
// downstream can be retried.
func (v *Validator) Release(event domain.GamificationEvent) {
	v.prevention.Release(event)
}

// RecordFailure feeds a downstream grant failure into the session risk score
// when the event carries a session id.
func (v *Validator) RecordFailure(ctx context.Context, event domain.GamificationEvent) {
	if sessionID := event.Session(); sessionID != nil {
		v.sessions.RecordActivity(ctx, *sessionID, event.Kind(), domain.OutcomeFailed)
	}
}

// Stats returns a snapshot of the running counters.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := v.stats
	out.ByType = make(map[domain.ActivityType]int, len(v.stats.ByType))
	for k, c := range v.stats.ByType {
		out.ByType[k] = c
	}
	return out
}
