package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/internal/store"
	"github.com/merchkit/recsys/internal/validation"
	"github.com/merchkit/recsys/pkg/models"
)

// InteractionEvent is the wire form of one interaction on the bus.
type InteractionEvent struct {
	EventID   uuid.UUID     `json:"event_id"`
	UserID    int64         `json:"user_id"`
	ItemID    int64         `json:"item_id"`
	Action    models.Action `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source,omitempty"`
}

// Interaction converts the event into a log row.
func (e InteractionEvent) Interaction() models.Interaction {
	return models.Interaction{
		UserID:    e.UserID,
		ItemID:    e.ItemID,
		Action:    e.Action,
		Timestamp: e.Timestamp,
	}
}

// InteractionBus carries interaction events from collaborator systems into
// the interaction store. The engine itself never reads the bus: events
// only extend the log that the next full fit consumes, there is no
// interaction-by-interaction model update.
type InteractionBus struct {
	writer    *kafka.Writer
	reader    *kafka.Reader
	dlqWriter *kafka.Writer
	validator *validation.InteractionValidator
	logger    *logrus.Logger

	retryBaseDelay time.Duration
}

func NewInteractionBus(cfg *config.KafkaConfig, logger *logrus.Logger) (*InteractionBus, error) {
	validator, err := validation.NewInteractionValidator()
	if err != nil {
		return nil, err
	}

	return &InteractionBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topics.Interactions,
			Balancer:     &kafka.Hash{}, // key by user id, keeps a user's events ordered
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topics.Interactions,
			GroupID:        cfg.ConsumerGroup,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topics.InteractionsDLQ,
			RequiredAcks: kafka.RequireOne,
		},
		validator:      validator,
		logger:         logger,
		retryBaseDelay: time.Second,
	}, nil
}

// PublishInteraction puts one interaction on the bus.
func (b *InteractionBus) PublishInteraction(ctx context.Context, in models.Interaction) error {
	event := InteractionEvent{
		EventID:   uuid.New(),
		UserID:    in.UserID,
		ItemID:    in.ItemID,
		Action:    in.Action,
		Timestamp: in.Timestamp,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", in.UserID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "action", Value: []byte(in.Action)},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish interaction event")
		return fmt.Errorf("failed to write interaction event: %w", err)
	}
	return nil
}

// Consume reads events until ctx is cancelled, validating each payload
// against the interaction schema and appending valid ones to the log.
// Malformed events go straight to the DLQ; store failures are retried
// with exponential backoff first, since they are usually transient.
func (b *InteractionBus) Consume(ctx context.Context, log store.InteractionStore) error {
	for {
		msg, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).Error("Failed to read interaction event")
			continue
		}

		if err := b.validator.ValidateInteractionEvent(msg.Value); err != nil {
			b.logger.WithError(err).Warn("Rejected interaction event")
			b.sendToDLQ(ctx, msg, err)
			continue
		}

		var event InteractionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			b.logger.WithError(err).Warn("Failed to unmarshal interaction event")
			b.sendToDLQ(ctx, msg, err)
			continue
		}

		if err := b.appendWithRetry(ctx, log, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to append interaction after retries")
			b.sendToDLQ(ctx, msg, err)
			continue
		}

		b.logger.WithFields(logrus.Fields{
			"event_id": event.EventID,
			"user_id":  event.UserID,
			"item_id":  event.ItemID,
			"action":   event.Action,
		}).Debug("Ingested interaction event")
	}
}

// appendWithRetry writes one event to the interaction log, retrying store
// failures with exponential backoff before giving up.
func (b *InteractionBus) appendWithRetry(ctx context.Context, log store.InteractionStore, event InteractionEvent) error {
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		err := log.AppendInteraction(ctx, event.Interaction())
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			return fmt.Errorf("max retries exceeded: %w", err)
		}

		delay := b.retryBaseDelay * time.Duration(1<<uint(attempt))
		b.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": event.EventID,
			"attempt":  attempt + 1,
			"delay":    delay,
		}).Warn("Failed to append interaction, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (b *InteractionBus) sendToDLQ(ctx context.Context, original kafka.Message, cause error) {
	msg := kafka.Message{
		Key:   original.Key,
		Value: original.Value,
		Headers: append(original.Headers, kafka.Header{
			Key: "error", Value: []byte(cause.Error()),
		}),
	}
	if err := b.dlqWriter.WriteMessages(ctx, msg); err != nil {
		b.logger.WithError(err).Error("Failed to write interaction event to DLQ")
	}
}

func (b *InteractionBus) Close() error {
	var errs []error
	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := b.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	if err := b.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing interaction bus: %v", errs)
	}
	return nil
}
