// Package pipeline runs a full benchmark: execute every prompt item against
// the target model, score the answers with the judge, and aggregate the
// scored results into a summary. A run is tracked under one ID through
// storage and the event stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/eventstream/nop"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/storage"
)

// Executor produces one turn result per executed turn.
// *executor.Stage satisfies it.
type Executor interface {
	Run(ctx context.Context, items []bench.PromptItem) ([]bench.TurnResult, error)
}

// Evaluator scores turn results.
// *evaluator.Stage satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, results []bench.TurnResult) ([]bench.EvaluatedResult, error)
}

// Config is the configuration for a Pipeline.
type Config struct {
	// Executor and Evaluator are required.
	Executor  Executor
	Evaluator Evaluator

	// Storage persists each run's lifecycle. Optional.
	Storage storage.Driver

	// Publisher receives result and run events. Defaults to a no-op.
	Publisher eventstream.Publisher

	// TargetModel and JudgeModel label stored runs and events.
	TargetModel string
	JudgeModel  string

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Run is the outcome of one pipeline run.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time

	Summary aggregator.Summary

	// Results are the grouped entries: conversations first, then standalone
	// results.
	Results []aggregator.Entry

	// Evaluated is the flat, input-ordered list the summary was built from.
	Evaluated []bench.EvaluatedResult
}

// Pipeline wires the execution and evaluation stages together.
type Pipeline struct {
	executor    Executor
	evaluator   Evaluator
	storage     storage.Driver
	publisher   eventstream.Publisher
	targetModel string
	judgeModel  string
	logger      *slog.Logger
}

// New creates a Pipeline.
func New(c *Config) (*Pipeline, error) {
	if c == nil || c.Executor == nil || c.Evaluator == nil {
		return nil, errors.New("pipeline: executor and evaluator are required")
	}

	pub := c.Publisher
	if pub == nil {
		pub = nop.NewPublisher()
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Pipeline{
		executor:    c.Executor,
		evaluator:   c.Evaluator,
		storage:     c.Storage,
		publisher:   pub,
		targetModel: c.TargetModel,
		judgeModel:  c.JudgeModel,
		logger:      log,
	}, nil
}

// Run executes a benchmark under a freshly generated run ID.
func (p *Pipeline) Run(ctx context.Context, items []bench.PromptItem) (*Run, error) {
	return p.RunWithID(ctx, uuid.NewString(), items)
}

// RunWithID executes a benchmark under the given run ID. A run already
// stored under that ID (e.g. queued by the API) is moved to running and
// then to its final state.
//
// Per-item failures are data on the results. The returned error is only
// set when a stage was interrupted or the run could not be recorded; the
// stored run is then marked failed.
func (p *Pipeline) RunWithID(ctx context.Context, id string, items []bench.PromptItem) (*Run, error) {
	if id == "" {
		return nil, errors.New("pipeline: run id is required")
	}

	log := p.logger.With("run_id", id)
	started := time.Now().UTC()

	record, err := p.begin(ctx, id, started)
	if err != nil {
		return nil, err
	}

	log.Info("executing prompts", "items", len(items), "model", p.targetModel)
	executed, err := p.executor.Run(ctx, items)
	if err != nil {
		return nil, p.fail(ctx, record, started, err)
	}

	log.Info("evaluating results", "results", len(executed), "judge", p.judgeModel)
	evaluated, err := p.evaluator.Evaluate(ctx, executed)
	if err != nil {
		return nil, p.fail(ctx, record, started, err)
	}

	p.publishResults(ctx, id, evaluated)

	summary, entries := aggregator.Aggregate(evaluated)
	completed := time.Now().UTC()

	run := &Run{
		ID:          id,
		StartedAt:   started,
		CompletedAt: completed,
		Summary:     summary,
		Results:     entries,
		Evaluated:   evaluated,
	}

	p.finish(ctx, record, run)

	log.Info("run completed",
		"items", summary.OverallSummary.TotalItemsProcessed,
		"scored", summary.OverallSummary.ScoredItems,
		"errors", summary.OverallSummary.ErrorItems,
		"duration", completed.Sub(started),
	)

	return run, nil
}

// begin stores the run as running. A missing storage driver makes it a
// no-op that still returns a record to carry the lifecycle fields.
func (p *Pipeline) begin(ctx context.Context, id string, started time.Time) (*storage.Run, error) {
	record := &storage.Run{ID: id, CreatedAt: started}

	if p.storage != nil {
		existing, err := p.storage.Get(ctx, id)
		switch {
		case err == nil:
			record = existing
		case errors.As(err, &storage.NotFoundError{}):
		default:
			return nil, fmt.Errorf("loading run %s: %w", id, err)
		}
	}

	record.Status = storage.StatusRunning
	record.StartedAt = &started
	record.TargetModel = p.targetModel
	record.JudgeModel = p.judgeModel

	if err := p.put(ctx, record); err != nil {
		return nil, fmt.Errorf("storing run %s: %w", id, err)
	}

	return record, nil
}

// finish stores the completed run and emits the run event. Failures here are
// logged; the results are already in hand and are returned to the caller.
func (p *Pipeline) finish(ctx context.Context, record *storage.Run, run *Run) {
	record.Status = storage.StatusCompleted
	record.CompletedAt = &run.CompletedAt
	record.Summary = &run.Summary
	record.Results = run.Results

	if err := p.put(ctx, record); err != nil {
		p.logger.Error("could not store completed run", "run_id", run.ID, "error", err)
	}

	event := eventstream.NewRunCompletedEvent(p.source(run.ID), string(storage.StatusCompleted),
		run.StartedAt, run.CompletedAt, &run.Summary)
	if err := p.publisher.PublishRun(ctx, event); err != nil {
		p.logger.Warn("could not publish run event", "run_id", run.ID, "error", err)
	}
}

// fail marks the run failed and returns cause wrapped for the caller. The
// interrupted ctx is not used for the bookkeeping writes.
func (p *Pipeline) fail(ctx context.Context, record *storage.Run, started time.Time, cause error) error {
	ctx = context.WithoutCancel(ctx)
	completed := time.Now().UTC()

	record.Status = storage.StatusFailed
	record.CompletedAt = &completed
	record.Error = cause.Error()

	if err := p.put(ctx, record); err != nil {
		p.logger.Error("could not store failed run", "run_id", record.ID, "error", err)
	}

	event := eventstream.NewRunCompletedEvent(p.source(record.ID), string(storage.StatusFailed),
		started, completed, nil)
	event.Error = cause.Error()
	if err := p.publisher.PublishRun(ctx, event); err != nil {
		p.logger.Warn("could not publish run event", "run_id", record.ID, "error", err)
	}

	p.logger.Error("run failed", "run_id", record.ID, "error", cause)

	return fmt.Errorf("run %s failed: %w", record.ID, cause)
}

func (p *Pipeline) publishResults(ctx context.Context, id string, evaluated []bench.EvaluatedResult) {
	source := p.source(id)
	for _, r := range evaluated {
		if err := p.publisher.PublishResult(ctx, eventstream.NewResultEvaluatedEvent(source, r)); err != nil {
			p.logger.Warn("could not publish result event", "run_id", id, "result_id", r.ID, "error", err)
			return
		}
	}
}

func (p *Pipeline) put(ctx context.Context, record *storage.Run) error {
	if p.storage == nil {
		return nil
	}
	return p.storage.Put(ctx, record)
}

func (p *Pipeline) source(id string) eventstream.EventSource {
	return eventstream.EventSource{
		RunID:       id,
		TargetModel: p.targetModel,
		JudgeModel:  p.judgeModel,
	}
}
