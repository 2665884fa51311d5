package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/google/uuid"
)

// In-memory repository implementations. They ignore the DBTX argument and are
// safe for concurrent use; unit tests across the module build against these.

// MemoryProfileRepository is an in-memory ProfileRepository.
type MemoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.UserProfile

	// FailSaves makes the next N Save calls fail with the given error.
	// Used to exercise retry and exhaustion paths.
	FailSaves   int
	FailSaveErr error
}

// NewMemoryProfileRepository creates an empty in-memory profile store.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[uuid.UUID]*domain.UserProfile)}
}

func (r *MemoryProfileRepository) FindByUserID(_ context.Context, _ DBTX, userID uuid.UUID) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *MemoryProfileRepository) Create(_ context.Context, _ DBTX, profile *domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.UserID]; ok {
		return domain.ErrConflict("profile already exists")
	}
	r.profiles[profile.UserID] = profile.Clone()
	return nil
}

func (r *MemoryProfileRepository) Save(_ context.Context, _ DBTX, profile *domain.UserProfile, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSaves > 0 {
		r.FailSaves--
		if r.FailSaveErr != nil {
			return r.FailSaveErr
		}
		return domain.ErrInternal("simulated save failure", nil)
	}
	current, ok := r.profiles[profile.UserID]
	if !ok {
		return domain.ErrNotFound("profile", profile.UserID.String())
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict(expectedVersion, current.Version)
	}
	saved := profile.Clone()
	saved.UpdatedAt = time.Now().UTC()
	r.profiles[profile.UserID] = saved
	return nil
}

func (r *MemoryProfileRepository) ListStaleDaily(_ context.Context, _ DBTX, today string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.profiles {
		if p.LastDailyReset != today {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// MemoryActivityRepository is an in-memory ActivityRepository.
type MemoryActivityRepository struct {
	mu          sync.Mutex
	completions []domain.ActivityCompletion
}

// NewMemoryActivityRepository creates an empty in-memory completion store.
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{}
}

func (r *MemoryActivityRepository) FindCompletion(_ context.Context, _ DBTX, userID uuid.UUID, activityType domain.ActivityType, naturalKey string) (*domain.ActivityCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.completions {
		c := r.completions[i]
		if c.UserID == userID && c.ActivityType == activityType && c.NaturalKey == naturalKey {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *MemoryActivityRepository) RecordCompletion(_ context.Context, _ DBTX, completion *domain.ActivityCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, *completion)
	return nil
}

func (r *MemoryActivityRepository) CountByType(_ context.Context, _ DBTX, userID uuid.UUID, activityType domain.ActivityType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.completions {
		if c.UserID == userID && c.ActivityType == activityType {
			count++
		}
	}
	return count, nil
}

// MemoryChallengeRepository is an in-memory ChallengeRepository.
type MemoryChallengeRepository struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*domain.DailyChallenge
}

// NewMemoryChallengeRepository creates an empty in-memory challenge store.
func NewMemoryChallengeRepository() *MemoryChallengeRepository {
	return &MemoryChallengeRepository{challenges: make(map[uuid.UUID]*domain.DailyChallenge)}
}

func (r *MemoryChallengeRepository) FindByID(_ context.Context, _ DBTX, id uuid.UUID) (*domain.DailyChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *MemoryChallengeRepository) ListByUser(_ context.Context, _ DBTX, userID uuid.UUID) ([]domain.DailyChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DailyChallenge
	for _, c := range r.challenges {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *MemoryChallengeRepository) Create(_ context.Context, _ DBTX, challenge *domain.DailyChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *challenge
	r.challenges[challenge.ID] = &copied
	return nil
}

func (r *MemoryChallengeRepository) Save(_ context.Context, _ DBTX, challenge *domain.DailyChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[challenge.ID]; !ok {
		return domain.ErrNotFound("challenge", challenge.ID.String())
	}
	copied := *challenge
	r.challenges[challenge.ID] = &copied
	return nil
}

func (r *MemoryChallengeRepository) ResetExpired(_ context.Context, _ DBTX, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reset int64
	for _, c := range r.challenges {
		if c.Expired(now) {
			c.ResetForNewDay(now)
			reset++
		}
	}
	return reset, nil
}

// MemoryEventRepository is an in-memory EventRepository.
// FailAppends makes the next N append calls fail, for flush-retry tests.
type MemoryEventRepository struct {
	mu          sync.Mutex
	entries     []domain.AuditEntry
	FailAppends int
}

// NewMemoryEventRepository creates an empty in-memory event log.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Append(_ context.Context, _ DBTX, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppends > 0 {
		r.FailAppends--
		return errors.New("append failed")
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryEventRepository) AppendBatch(_ context.Context, _ DBTX, entries []domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppends > 0 {
		r.FailAppends--
		return errors.New("append failed")
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *MemoryEventRepository) ListAlerts(_ context.Context, _ DBTX, limit int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var alerts []domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(alerts) < limit; i-- {
		if r.entries[i].EventType == domain.EventAlertRaised {
			alerts = append(alerts, r.entries[i])
		}
	}
	return alerts, nil
}

func (r *MemoryEventRepository) PruneOlderThan(_ context.Context, _ DBTX, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	var pruned int64
	for _, e := range r.entries {
		if e.OccurredAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return pruned, nil
}

// Entries returns a snapshot of all appended entries.
func (r *MemoryEventRepository) Entries() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry(nil), r.entries...)
}

// MemorySessionRepository is an in-memory SessionRepository.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.UserSession
}

// NewMemorySessionRepository creates an empty in-memory session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[uuid.UUID]*domain.UserSession)}
}

func (r *MemorySessionRepository) Save(_ context.Context, _ DBTX, session *domain.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *MemorySessionRepository) ListByUser(_ context.Context, _ DBTX, userID uuid.UUID, limit int) ([]domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UserSession
	for _, s := range r.sessions {
		if s.UserID == userID && len(out) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *MemorySessionRepository) PruneOlderThan(_ context.Context, _ DBTX, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned int64
	for id, s := range r.sessions {
		if s.Status != domain.SessionActive && s.LastActivity.Before(cutoff) {
			delete(r.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}
