package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

// DefaultCooldowns maps each activity type to the minimum gap between
// consecutive attempts by the same user.
var DefaultCooldowns = map[domain.ActivityType]time.Duration{
	domain.ActivityQuizCompletion:    30 * time.Second,
	domain.ActivityAchievementUnlock: 5 * time.Second,
	domain.ActivityDailyChallenge:    60 * time.Second,
	domain.ActivityGameCompletion:    10 * time.Second,
	domain.ActivityCoinAward:         2 * time.Second,
}

// FallbackCooldown applies to activity types without a dedicated entry.
const FallbackCooldown = 5 * time.Second

// CooldownGuard rejects attempts that arrive before the per-type cooldown
// since the user's most recent attempt has elapsed.
type CooldownGuard struct {
	mu        sync.Mutex
	last      map[string]time.Time
	cooldowns map[domain.ActivityType]time.Duration
}

// NewCooldownGuard creates a cooldown guard with the default per-type windows.
func NewCooldownGuard() *CooldownGuard {
	return &CooldownGuard{
		last:      make(map[string]time.Time),
		cooldowns: DefaultCooldowns,
	}
}

func (cg *CooldownGuard) window(activityType domain.ActivityType) time.Duration {
	if d, ok := cg.cooldowns[activityType]; ok {
		return d
	}
	return FallbackCooldown
}

// Check returns whether the user is outside the cooldown window for the
// activity type. The verdict carries the remaining wait on rejection.
func (cg *CooldownGuard) Check(_ context.Context, userID string, activityType domain.ActivityType) domain.GuardResult {
	cg.mu.Lock()
	defer cg.mu.Unlock()

	key := userID + ":" + string(activityType)
	last, ok := cg.last[key]
	if !ok {
		return domain.GuardResult{Allowed: true}
	}

	window := cg.window(activityType)
	elapsed := time.Since(last)
	if elapsed < window {
		remaining := window - elapsed
		return domain.GuardResult{
			Allowed:           false,
			Reason:            fmt.Sprintf("cooldown active for %s: %.0fs remaining", activityType, remaining.Seconds()),
			Guard:             "cooldown",
			CooldownRemaining: remaining,
		}
	}
	return domain.GuardResult{Allowed: true}
}

// Record marks an accepted attempt for the user and activity type.
func (cg *CooldownGuard) Record(userID string, activityType domain.ActivityType) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	cg.last[userID+":"+string(activityType)] = time.Now()
}

// Evict drops entries older than maxAge so idle users don't accumulate.
func (cg *CooldownGuard) Evict(maxAge time.Duration) {
	cg.mu.Lock()
	defer cg.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, at := range cg.last {
		if at.Before(cutoff) {
			delete(cg.last, key)
		}
	}
}
