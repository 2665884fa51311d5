// Package state serializes all profile mutations through a single consumer
// loop. Producers enqueue prioritized operations; the loop applies them one
// at a time with read-modify-write over the profile repository, so the
// profile never sees interleaved writes.
package state

import (
	"container/heap"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/repository"
	"github.com/google/uuid"
)

// Priority orders queued operations. Higher runs first; FIFO within a level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// OpType names the dedicated operation kinds.
type OpType string

const (
	OpReward            OpType = "reward"
	OpAchievementUnlock OpType = "achievement_unlock"
	OpBadgeEarn         OpType = "badge_earn"
	OpStreakUpdate      OpType = "streak_update"
	OpDailyReset        OpType = "daily_reset"
	OpProfilePatch      OpType = "profile_patch"
)

// Mutation transforms a working copy of the profile. It must be
// deterministic and must not perform I/O; the manager handles persistence,
// clamping and versioning around it.
type Mutation func(p *domain.UserProfile) error

// Result is delivered on the operation's completion channel.
type Result struct {
	Profile *domain.UserProfile
	Err     error
}

// Operation is one queued unit of work. Consumed exactly once; retried with
// linear backoff on storage failure, then dropped with an error result.
type Operation struct {
	ID       uuid.UUID
	Type     OpType
	UserID   uuid.UUID
	Priority Priority
	Reason   string
	Apply    Mutation

	retryCount int
	seq        uint64
	done       chan Result
}

// Auditor receives one entry per committed or dropped operation.
// *audit.Logger satisfies this.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// Config tunes the manager. Zero values fall back to defaults.
type Config struct {
	MaxRetries  int           // default 3
	RetryDelay  time.Duration // default 200ms; backoff is RetryDelay*retryCount
	WaitTimeout time.Duration // default 5s
	// LevelRecalcXPDelta is the XP movement above which the level is
	// recomputed after an apply. Default 10.
	LevelRecalcXPDelta int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 200 * time.Millisecond
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 5 * time.Second
	}
	if c.LevelRecalcXPDelta <= 0 {
		c.LevelRecalcXPDelta = 10
	}
	return c
}

// Manager is the serialized profile writer. One instance per process; every
// mutation path (rewards, unlocks, streaks, resets) funnels through it.
type Manager struct {
	profiles repository.ProfileRepository
	db       repository.DBTX
	auditor  Auditor
	logger   *slog.Logger
	cfg      Config

	mu    sync.Mutex
	queue opQueue
	seq   uint64
	wake  chan struct{}
}

// NewManager creates a state manager. Call Start before submitting.
func NewManager(profiles repository.ProfileRepository, db repository.DBTX, auditor Auditor, logger *slog.Logger, cfg Config) *Manager {
	return &Manager{
		profiles: profiles,
		db:       db,
		auditor:  auditor,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the single consumer loop. It stops when ctx is cancelled;
// operations still queued at shutdown resolve with a timeout on the caller
// side, matching the best-effort, non-durable queue contract.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
}

// Submit enqueues the operation and blocks until the consumer resolves it or
// the bounded wait expires. The returned profile is the authoritative
// post-write state.
func (m *Manager) Submit(ctx context.Context, op *Operation) (*domain.UserProfile, error) {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	op.done = make(chan Result, 1)

	m.mu.Lock()
	m.seq++
	op.seq = m.seq
	heap.Push(&m.queue, op)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}

	select {
	case res := <-op.done:
		return res.Profile, res.Err
	case <-time.After(m.cfg.WaitTimeout):
		return nil, domain.ErrOperationTimeout()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) run(ctx context.Context) {
	m.logger.Info("state manager started")
	for {
		op := m.pop()
		if op == nil {
			select {
			case <-ctx.Done():
				m.logger.Info("state manager stopped")
				return
			case <-m.wake:
				continue
			}
		}
		m.process(ctx, op)
	}
}

func (m *Manager) pop() *Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&m.queue).(*Operation)
}

// process applies one operation. The apply function computes a full
// next-state profile before anything is written, so a failed write never
// leaves a partial update behind.
func (m *Manager) process(ctx context.Context, op *Operation) {
	current, err := m.profiles.FindByUserID(ctx, m.db, op.UserID)
	if err != nil {
		m.retry(ctx, op, err)
		return
	}
	if current == nil {
		op.done <- Result{Err: domain.ErrNotFound("profile", op.UserID.String())}
		return
	}

	next := current.Clone()
	if err := op.Apply(next); err != nil {
		// Mutation rejections are terminal; retrying cannot change them.
		op.done <- Result{Err: err}
		return
	}

	next.Clamp()
	xpDelta := next.ExperiencePoints - current.ExperiencePoints
	if xpDelta < 0 {
		xpDelta = -xpDelta
	}
	if xpDelta > m.cfg.LevelRecalcXPDelta {
		next.Level = domain.LevelForXP(next.ExperiencePoints)
	}
	next.Version = current.Version + 1

	if err := m.profiles.Save(ctx, m.db, next, current.Version); err != nil {
		m.retry(ctx, op, err)
		return
	}

	op.done <- Result{Profile: next}
	m.audit(ctx, op, next, nil)
}

// retry requeues with linear backoff, or drops the operation after
// MaxRetries and resolves the caller with a retry-exhausted error.
func (m *Manager) retry(ctx context.Context, op *Operation, cause error) {
	op.retryCount++
	if op.retryCount > m.cfg.MaxRetries {
		err := domain.ErrRetryExhausted(string(op.Type), cause)
		m.logger.Error("operation dropped after max retries",
			"op_id", op.ID, "op_type", op.Type, "user_id", op.UserID, "error", cause)
		op.done <- Result{Err: err}
		m.audit(ctx, op, nil, err)
		return
	}

	delay := m.cfg.RetryDelay * time.Duration(op.retryCount)
	m.logger.Warn("operation retry scheduled",
		"op_id", op.ID, "op_type", op.Type, "retry", op.retryCount, "delay", delay, "error", cause)

	time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.seq++
		op.seq = m.seq
		heap.Push(&m.queue, op)
		m.mu.Unlock()
		select {
		case m.wake <- struct{}{}:
		default:
		}
	})
}

func (m *Manager) audit(ctx context.Context, op *Operation, next *domain.UserProfile, opErr error) {
	if m.auditor == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:         uuid.New(),
		UserID:     op.UserID,
		EventType:  domain.EventProfileUpdated,
		Severity:   domain.SeverityLow,
		Message:    op.Reason,
		OccurredAt: time.Now().UTC(),
	}
	if opErr != nil {
		entry.EventType = domain.EventOperationDropped
		entry.Severity = domain.SeverityHigh
		entry.Message = opErr.Error()
	} else if next != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"op_type": op.Type,
			"coins":   next.Coins,
			"xp":      next.ExperiencePoints,
			"version": next.Version,
		})
		entry.Payload = payload
	}
	m.auditor.Record(ctx, entry)
}

// opQueue is a max-heap on (priority, -seq): highest priority first, FIFO
// among equals.
type opQueue []*Operation

func (q opQueue) Len() int { return len(q) }

func (q opQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q opQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *opQueue) Push(x interface{}) { *q = append(*q, x.(*Operation)) }

func (q *opQueue) Pop() interface{} {
	old := *q
	n := len(old)
	op := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return op
}
