package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nao1215/docingest/internal/model"
)

// EventTypeHeader names the Kafka header carrying the event type.
const EventTypeHeader = "event-type"

// Event types.
const (
	EventPageStored      = "page.stored"
	EventPageNotModified = "page.not_modified"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes page events to a Kafka topic.
// Messages are keyed by knowledge base and stable path so that every
// version of one page lands in the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
	}
}

// NewKafkaPublisherWithWriter builds a publisher using a custom writer (tests).
func NewKafkaPublisherWithWriter(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Close shuts down the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PageStored publishes event.
func (p *KafkaPublisher) PageStored(ctx context.Context, event model.PageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode page event: %w", err)
	}

	eventType := EventPageStored
	if event.NotModified {
		eventType = EventPageNotModified
	}

	msg := kafka.Message{
		Key:     []byte(event.KBID + "/" + event.StablePath),
		Value:   payload,
		Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte(eventType)}},
		Time:    time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish page event: %w", err)
	}
	return nil
}
