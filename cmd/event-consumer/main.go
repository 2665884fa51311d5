package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/constitutionhub/platform/internal/audit"
	"github.com/constitutionhub/platform/internal/domain"
	"github.com/constitutionhub/platform/internal/infra"
)

// event-consumer tails the reward event stream and mirrors notable events to
// the process log. Downstream services (notifications, analytics) consume the
// same topics; this binary doubles as a smoke check that the outbox path works
// end to end.

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("event consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	topic := os.Getenv("CONSUMER_TOPIC")
	if topic == "" {
		topic = string(domain.EventRewardGranted)
	}
	groupID := os.Getenv("CONSUMER_GROUP")
	if groupID == "" {
		groupID = "hub-event-consumer"
	}

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, groupID, cfg.KafkaEnabled, logger)
	defer consumer.Close()

	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED must be true for the event consumer")
	}

	logger.Info("event consumer starting", "topic", topic, "group", groupID)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("event consumer shutting down")
				return nil
			}
			logger.Error("read message", "error", err)
			continue
		}

		switch topic {
		case audit.AuditTopic:
			var entry domain.AuditEntry
			if err := json.Unmarshal(msg.Value, &entry); err != nil {
				logger.Error("decode audit entry", "error", err, "offset", msg.Offset)
				continue
			}
			logger.Info("audit entry",
				"user_id", entry.UserID,
				"event_type", entry.EventType,
				"severity", entry.Severity,
				"message", entry.Message,
			)
		default:
			var draft domain.OutboxDraft
			if err := json.Unmarshal(msg.Value, &draft); err != nil {
				logger.Error("decode event", "error", err, "offset", msg.Offset)
				continue
			}
			logger.Info("hub event",
				"event_id", draft.EventID,
				"event_type", draft.EventType,
				"aggregate_type", draft.AggregateType,
				"aggregate_id", draft.AggregateID,
			)
		}
	}
}
