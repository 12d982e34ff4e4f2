package nop

import (
	"context"

	"github.com/papercomputeco/judgebench/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishRun validates input and otherwise does nothing.
func (p *Publisher) PublishRun(_ context.Context, event *eventstream.RunCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// PublishResult validates input and otherwise does nothing.
func (p *Publisher) PublishResult(_ context.Context, event *eventstream.ResultEvaluatedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
