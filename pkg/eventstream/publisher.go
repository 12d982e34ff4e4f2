package eventstream

import "context"

// Publisher publishes run events to an event stream backend.
type Publisher interface {
	PublishRun(ctx context.Context, event *RunCompletedEvent) error
	PublishResult(ctx context.Context, event *ResultEvaluatedEvent) error
	Close() error
}
