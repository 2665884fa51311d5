package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
)

const (
	// WindowRetention bounds how long per-user attempt history is kept in memory.
	WindowRetention = time.Hour

	// RapidFireLimit is the max attempts per user+type per minute.
	RapidFireLimit = 10

	// MaxCoinAward is the largest single coin award accepted from any caller.
	MaxCoinAward = 1000

	// RepeatAwardLimit rejects more than this many identical-reason coin
	// awards inside RepeatAwardWindow.
	RepeatAwardLimit  = 3
	RepeatAwardWindow = 60 * time.Second
)

// Prevention layers the duplicate checks that run before any reward is
// granted: persisted natural-key lookup, recent-key cache, per-type cooldown,
// rapid-fire ceiling, and coin-award anomaly rules.
type Prevention struct {
	activities repository.ActivityRepository
	db         repository.DBTX
	recent     *IdempotencyGuard
	cooldowns  *CooldownGuard
	rapid      *RateLimiter
	logger     *slog.Logger

	mu     sync.Mutex
	awards map[string][]awardRecord
}

type awardRecord struct {
	reason string
	at     time.Time
}

// NewPrevention creates the duplicate prevention service.
func NewPrevention(activities repository.ActivityRepository, db repository.DBTX, logger *slog.Logger) *Prevention {
	return &Prevention{
		activities: activities,
		db:         db,
		recent:     NewIdempotencyGuard(WindowRetention),
		cooldowns:  NewCooldownGuard(),
		rapid:      NewRateLimiter(RapidFireLimit, time.Minute),
		logger:     logger,
		awards:     make(map[string][]awardRecord),
	}
}

// Validate runs the full check chain for the event. Order matters: a
// persisted duplicate outranks a cooldown verdict, which outranks rapid-fire.
// On pass the attempt is recorded so subsequent checks see it.
func (p *Prevention) Validate(ctx context.Context, event domain.GamificationEvent) domain.GuardResult {
	userID := event.User().String()
	activityType := event.Kind()

	if result := p.checkNaturalKey(ctx, event); !result.Allowed {
		p.logger.Warn("duplicate activity rejected",
			"user_id", userID, "activity_type", activityType, "reason", result.Reason)
		return result
	}
	if result := p.cooldowns.Check(ctx, userID, activityType); !result.Allowed {
		p.Release(event)
		return result
	}
	if result := p.rapid.Check(ctx, userID+":"+string(activityType)); !result.Allowed {
		p.logger.Warn("rapid-fire ceiling hit",
			"user_id", userID, "activity_type", activityType)
		p.Release(event)
		return result
	}
	if award, ok := event.(domain.CoinAward); ok {
		if result := p.checkCoinAward(award); !result.Allowed {
			p.logger.Warn("coin award rejected",
				"user_id", userID, "amount", award.Amount, "reason", result.Reason)
			p.Release(event)
			return result
		}
	}

	p.cooldowns.Record(userID, activityType)
	return domain.GuardResult{Allowed: true}
}

// checkNaturalKey consults the recent-key cache first, then the persisted
// completion store. A store error fails open: availability over strictness,
// the state manager's idempotent apply is the backstop.
func (p *Prevention) checkNaturalKey(ctx context.Context, event domain.GamificationEvent) domain.GuardResult {
	key := string(event.Kind()) + ":" + event.User().String() + ":" + event.NaturalKey()
	if result := p.recent.Check(ctx, key); !result.Allowed {
		return result
	}

	completion, err := p.activities.FindCompletion(ctx, p.db, event.User(), event.Kind(), event.NaturalKey())
	if err != nil {
		p.logger.Error("completion lookup failed", "error", err)
		return domain.GuardResult{Allowed: true}
	}
	if completion != nil {
		// Seen in a previous process lifetime; remember it locally too.
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("activity %s already completed", event.NaturalKey()),
			Guard:   "idempotency",
		}
	}
	return domain.GuardResult{Allowed: true}
}

func (p *Prevention) checkCoinAward(award domain.CoinAward) domain.GuardResult {
	if award.Amount > MaxCoinAward {
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("coin amount %d exceeds maximum %d", award.Amount, MaxCoinAward),
			Guard:   "coin_anomaly",
			Exploit: true,
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	userID := award.UserID.String()
	cutoff := time.Now().Add(-RepeatAwardWindow)

	records := p.awards[userID]
	valid := records[:0]
	identical := 0
	for _, r := range records {
		if r.at.After(cutoff) {
			valid = append(valid, r)
			if r.reason == award.Reason {
				identical++
			}
		}
	}

	if identical >= RepeatAwardLimit {
		p.awards[userID] = valid
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("more than %d %q awards in %s", RepeatAwardLimit, award.Reason, RepeatAwardWindow),
			Guard:   "coin_anomaly",
		}
	}

	p.awards[userID] = append(valid, awardRecord{reason: award.Reason, at: time.Now()})
	return domain.GuardResult{Allowed: true}
}

// Release forgets the event's natural key so a failed grant can be retried.
func (p *Prevention) Release(event domain.GamificationEvent) {
	p.recent.Remove(string(event.Kind()) + ":" + event.User().String() + ":" + event.NaturalKey())
}

// StartEviction prunes the in-memory windows on the given interval until ctx
// is cancelled.
func (p *Prevention) StartEviction(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.evict()
			}
		}
	}()
}

func (p *Prevention) evict() {
	p.recent.Evict()
	p.cooldowns.Evict(WindowRetention)
	p.rapid.Evict(WindowRetention)

	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().Add(-WindowRetention)
	for userID, records := range p.awards {
		valid := records[:0]
		for _, r := range records {
			if r.at.After(cutoff) {
				valid = append(valid, r)
			}
		}
		if len(valid) == 0 {
			delete(p.awards, userID)
		} else {
			p.awards[userID] = valid
		}
	}
}
