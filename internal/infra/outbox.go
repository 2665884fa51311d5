package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/constitutionhub/platform/internal/repository"
)

// OutboxPoller drains the event_outbox table and publishes events to Kafka.
// Events are only marked published after the broker accepts them, so delivery
// is at-least-once.
type OutboxPoller struct {
	outbox    repository.OutboxRepository
	db        repository.DBTX
	producer  *KafkaProducer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(outbox repository.OutboxRepository, db repository.DBTX, producer *KafkaProducer, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		outbox:    outbox,
		db:        db,
		producer:  producer,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("outbox poller stopped")
				return
			case <-ticker.C:
				if err := p.poll(ctx); err != nil {
					p.logger.Error("outbox poll error", "error", err)
				}
			}
		}
	}()
}

func (p *OutboxPoller) poll(ctx context.Context) error {
	drafts, seqs, err := p.outbox.FetchUnpublished(ctx, p.db, p.batchSize)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}

	var published []int64
	for i, draft := range drafts {
		// EventType doubles as the topic name (hub.reward.granted, ...).
		topic := string(draft.EventType)
		key := []byte(draft.PartitionKey)

		msg, _ := json.Marshal(map[string]interface{}{
			"event_id":       draft.EventID,
			"aggregate_type": draft.AggregateType,
			"aggregate_id":   draft.AggregateID,
			"event_type":     draft.EventType,
			"payload":        draft.Payload,
			"occurred_at":    draft.OccurredAt,
		})

		if err := p.producer.Publish(ctx, topic, key, msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", draft.EventID, "error", err)
			continue
		}
		published = append(published, seqs[i])
	}

	if len(published) > 0 {
		if err := p.outbox.MarkPublished(ctx, p.db, published); err != nil {
			return err
		}
	}

	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(drafts))
	return nil
}
