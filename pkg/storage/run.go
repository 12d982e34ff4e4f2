package storage

import (
	"errors"
	"slices"
	"time"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Done reports whether the run reached a final state.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run is a stored benchmark run.
type Run struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TargetModel string `json:"target_model,omitempty"`
	JudgeModel  string `json:"judge_model,omitempty"`

	// Error is set for failed runs.
	Error string `json:"error,omitempty"`

	Summary *aggregator.Summary `json:"summary,omitempty"`
	Results []aggregator.Entry  `json:"results,omitempty"`
}

// Validate checks the fields every backend relies on.
func (r *Run) Validate() error {
	if r == nil {
		return errors.New("cannot store nil run")
	}
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.Status == "" {
		return errors.New("run status is required")
	}
	return nil
}

// Clone returns a copy of the run that shares no slices with r. Summary and
// result entries are treated as immutable and shared.
func (r *Run) Clone() *Run {
	out := *r
	out.Results = slices.Clone(r.Results)
	return &out
}

// WithoutResults returns a copy of the run with its results dropped.
func (r *Run) WithoutResults() *Run {
	out := *r
	out.Results = nil
	return &out
}
