package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"idhub/internal/platform/kafka/producer"
	"idhub/pkg/requestcontext"
)

// Publisher fans lifecycle events out to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// KafkaPublisher publishes lifecycle events to a Kafka topic, keyed by
// participant so per-tenant ordering is preserved.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaPublisher(prod *producer.Producer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: prod, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = p.producer.Produce(ctx, &producer.Message{
		Topic: p.topic,
		Key:   []byte(event.ParticipantID.String()),
		Value: payload,
	})
	if err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to publish lifecycle event",
			"type", event.Type,
			"participant_id", event.ParticipantID,
			"error", err,
		)
	}
	return err
}

// LogPublisher writes lifecycle events to the structured log. Used when no
// broker is configured and as the fallback sink in tests.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	p.logger.InfoContext(ctx, "lifecycle event",
		"type", event.Type,
		"participant_id", event.ParticipantID,
		"credential_id", event.CredentialID,
	)
	return nil
}
