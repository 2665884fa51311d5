package guard

import (
	"context"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

// IdempotencyGuard deduplicates activities by natural key. Keys expire after
// a TTL so the map stays bounded to recent activity; the persisted completion
// store remains the source of truth beyond that horizon.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewIdempotencyGuard creates an in-memory idempotency guard whose entries
// expire after ttl.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Check returns whether the given key has already been processed recently.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	if at, ok := ig.seen[key]; ok && time.Since(at) < ig.ttl {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate activity: key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = time.Now()
	return domain.GuardResult{Allowed: true}
}

// Remove deletes a key from the seen set (for retry scenarios).
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

// Evict drops expired keys.
func (ig *IdempotencyGuard) Evict() {
	ig.mu.Lock()
	defer ig.mu.Unlock()

	cutoff := time.Now().Add(-ig.ttl)
	for key, at := range ig.seen {
		if at.Before(cutoff) {
			delete(ig.seen, key)
		}
	}
}
