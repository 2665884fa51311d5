package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

// RateLimiter implements a sliding window rate limiter. It backs the
// rapid-fire ceiling: a user exceeding the limit is treated as an exploit
// attempt rather than a plain rejection.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Check returns a GuardResult indicating whether the key is within rate limits.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Remove expired entries
	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		return domain.GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("rapid-fire limit exceeded: %d/%s", rl.limit, rl.window),
			Guard:   "rate_limiter",
			Exploit: true,
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// Evict drops keys whose newest entry is older than maxAge.
func (rl *RateLimiter) Evict(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, entries := range rl.windows {
		if len(entries) == 0 || entries[len(entries)-1].Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}
