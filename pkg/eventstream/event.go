package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRunCompleted is emitted once a run reaches a final state.
	EventTypeRunCompleted = "judgebench.run.completed"

	// EventTypeResultEvaluated is emitted for each evaluated result.
	EventTypeResultEvaluated = "judgebench.result.evaluated"
)

// EventSource identifies the run an event belongs to.
type EventSource struct {
	RunID       string `json:"run_id"`
	TargetModel string `json:"target_model,omitempty"`
	JudgeModel  string `json:"judge_model,omitempty"`
}

// RunCompletedEvent is a transport-neutral event payload for a finished run.
type RunCompletedEvent struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	EventID       string              `json:"event_id"`
	EmittedAt     time.Time           `json:"emitted_at"`
	Source        EventSource         `json:"source"`
	Status        string              `json:"status"`
	Error         string              `json:"error,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
	CompletedAt   time.Time           `json:"completed_at"`
	DurationMs    int64               `json:"duration_ms"`
	Summary       *aggregator.Summary `json:"summary,omitempty"`
}

// ResultEvaluatedEvent is a transport-neutral event payload for one result.
type ResultEvaluatedEvent struct {
	SchemaVersion int                   `json:"schema_version"`
	EventType     string                `json:"event_type"`
	EventID       string                `json:"event_id"`
	EmittedAt     time.Time             `json:"emitted_at"`
	Source        EventSource           `json:"source"`
	Result        bench.EvaluatedResult `json:"result"`
}

// NewRunCompletedEvent builds a run event stamped with a fresh ID and the
// current time.
func NewRunCompletedEvent(source EventSource, status string, started, completed time.Time, summary *aggregator.Summary) *RunCompletedEvent {
	return &RunCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRunCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Status:        status,
		StartedAt:     started,
		CompletedAt:   completed,
		DurationMs:    completed.Sub(started).Milliseconds(),
		Summary:       summary,
	}
}

// NewResultEvaluatedEvent builds a result event stamped with a fresh ID and
// the current time.
func NewResultEvaluatedEvent(source EventSource, result bench.EvaluatedResult) *ResultEvaluatedEvent {
	return &ResultEvaluatedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeResultEvaluated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Result:        result,
	}
}
