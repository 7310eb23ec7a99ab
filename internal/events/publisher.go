// Package events publishes message lifecycle events for downstream consumers
// such as notification or search services.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	MessageCreated   = "message.created"
	MessageDelivered = "message.delivered"
	MessageRead      = "message.read"
	MessageEdited    = "message.edited"
	MessageDeleted   = "message.deleted"
)

// Event is the envelope written to the event stream.
type Event struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chatId"`
	MessageID string      `json:"messageId"`
	At        time.Time   `json:"at"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Publisher emits events. Implementations may drop events; callers treat
// publishing as best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// KafkaPublisher writes events to a Kafka topic keyed by chat id, so all
// events of one chat land on the same partition in order. Writes are async;
// delivery failures are only logged.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	logger = logger.With().Str("component", "kafka").Str("topic", topic).Logger()
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func encode(ev Event) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.ChatID),
		Value: value,
		Time:  ev.At,
	}, nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
