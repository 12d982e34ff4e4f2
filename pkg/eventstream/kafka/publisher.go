// Package kafka publishes judgebench events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/logger"
)

const (
	// DefaultTopic is used when Config.Topic is empty.
	DefaultTopic = "judgebench.events"

	eventTypeHeader = "event_type"
	defaultTimeout  = 10 * time.Second
)

// messageWriter is the part of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the configuration for a Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses. Required.
	Brokers []string

	// Topic receives every event (defaults to "judgebench.events").
	Topic string

	// WriteTimeout bounds each write (defaults to 10s).
	WriteTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

var _ eventstream.Publisher = (*Publisher)(nil)

// Publisher writes events as JSON messages keyed by run ID, so the events of
// one run land on one partition in order.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Publisher backed by a kafka-go Writer.
func NewPublisher(c *Config) (*Publisher, error) {
	if c == nil || len(c.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, c.Logger), nil
}

func newPublisher(w messageWriter, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{writer: w, logger: log}
}

// PublishRun writes a run event.
func (p *Publisher) PublishRun(ctx context.Context, event *eventstream.RunCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Source.RunID, event.EventType, event)
}

// PublishResult writes a result event.
func (p *Publisher) PublishResult(ctx context.Context, event *eventstream.ResultEvaluatedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.Source.RunID, event.EventType, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: eventTypeHeader, Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}

	p.logger.Debug("event published", "event_type", eventType, "run_id", key)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
