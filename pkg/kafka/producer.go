// Package kafka emits merge lifecycle events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is stamped onto every published message so consumers can
// dispatch on the payload shape.
const SchemaVersion = "1.0"

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// MergeEvent describes a merge suggestion lifecycle change
type MergeEvent struct {
	EventType    string    `json:"event_type"` // suggestion.created, merge.applied, merge.rolled_back
	UserID       string    `json:"user_id"`
	SuggestionID string    `json:"suggestion_id"`
	EntityType   string    `json:"entity_type"`
	Entity1Value string    `json:"entity1_value"`
	Entity2Value string    `json:"entity2_value"`
	Confidence   float64   `json:"confidence"`
	AppliedBy    string    `json:"applied_by,omitempty"`
	Deleted      int       `json:"deleted,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublishMergeEvent publishes a merge lifecycle event to Kafka
func (p *Producer) PublishMergeEvent(ctx context.Context, event *MergeEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishMergeEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	msg, err := p.message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish merge event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":    event.EventType,
		"suggestion_id": event.SuggestionID,
		"entity_type":   event.EntityType,
	}).Debug("Published merge event")

	return nil
}

// message renders the event as a keyed, headered Kafka message.
func (p *Producer) message(event *MergeEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.SuggestionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "user_id", Value: []byte(event.UserID)},
			{Key: "entity_type", Value: []byte(event.EntityType)},
			{Key: "schema_version", Value: []byte(SchemaVersion)},
		},
	}, nil
}
