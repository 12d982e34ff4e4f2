// Package evaluator scores turn results with a judge model.
//
// Each answer is sent to the judge with a strict two-line format
// instruction; the judge's reply is parsed into a score in [0,1] and a
// one-sentence reason. Results whose execution failed are passed through
// unscored.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

const (
	// DefaultBatchSize is the number of concurrent judge calls when none is set.
	DefaultBatchSize = 5

	skippedExecutionError = "Evaluation skipped: execution error"
	skippedNoAnswer       = "Evaluation skipped: no actual answer generated"
	errNoAnswer           = "no actual answer generated"
)

// Sender sends a message history to the judge model.
// *dispatch.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message) dispatch.Outcome
}

// Observer is called once per evaluated result. It may be called from
// several goroutines at once.
type Observer func(bench.EvaluatedResult)

// Config is the configuration for a Stage.
type Config struct {
	// Sender issues judge calls. Required.
	Sender Sender

	// BatchSize bounds concurrent judge calls (defaults to 5).
	BatchSize int

	// Observer is notified of each evaluated result. Optional.
	Observer Observer

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Stage evaluates turn results.
type Stage struct {
	sender    Sender
	batchSize int
	observer  Observer
	logger    *slog.Logger
}

// NewStage creates a Stage.
func NewStage(c *Config) (*Stage, error) {
	if c == nil || c.Sender == nil {
		return nil, fmt.Errorf("evaluator: sender is required")
	}

	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Stage{
		sender:    c.Sender,
		batchSize: size,
		observer:  c.Observer,
		logger:    log,
	}, nil
}

// Evaluate scores results and returns a new list in the same order. A judge
// failure is recorded on its item and never stops the others. The error is
// non-nil only when ctx ends before every item was evaluated.
func (s *Stage) Evaluate(ctx context.Context, results []bench.TurnResult) ([]bench.EvaluatedResult, error) {
	s.logger.Info("evaluation started",
		"items", len(results),
		"batch_size", s.batchSize,
	)

	evaluated := make([]bench.EvaluatedResult, len(results))

	g := &errgroup.Group{}
	g.SetLimit(s.batchSize)

	for i, r := range results {
		if skipped, ok := skip(r); ok {
			evaluated[i] = skipped
			s.notify(skipped)
			continue
		}

		g.Go(func() error {
			evaluated[i] = s.score(ctx, r)
			s.notify(evaluated[i])
			return nil
		})
	}

	// Tasks never return errors.
	_ = g.Wait()

	scored := 0
	for _, e := range evaluated {
		if e.Score != nil {
			scored++
		}
	}
	s.logger.Info("evaluation finished",
		"items", len(evaluated),
		"scored", scored,
	)

	if err := ctx.Err(); err != nil {
		return evaluated, fmt.Errorf("evaluation interrupted: %w", err)
	}
	return evaluated, nil
}

// EvaluateOne scores a single result.
func (s *Stage) EvaluateOne(ctx context.Context, r bench.TurnResult) bench.EvaluatedResult {
	if skipped, ok := skip(r); ok {
		return skipped
	}
	return s.score(ctx, r)
}

// skip handles results that are not sent to the judge.
func skip(r bench.TurnResult) (bench.EvaluatedResult, bool) {
	switch {
	case r.Error != nil:
		return bench.EvaluatedResult{
			TurnResult:     r,
			ScoreReasoning: utils.Ptr(skippedExecutionError),
		}, true

	case r.Actual == nil:
		return bench.EvaluatedResult{
			TurnResult:     r,
			Score:          utils.Ptr(0.0),
			ScoreReasoning: utils.Ptr(skippedNoAnswer),
			EvalError:      utils.Ptr(errNoAnswer),
		}, true

	default:
		return bench.EvaluatedResult{}, false
	}
}

func (s *Stage) score(ctx context.Context, r bench.TurnResult) bench.EvaluatedResult {
	out := s.sender.Send(ctx, BuildMessages(r.Expected, *r.Actual))
	if !out.OK() {
		s.logger.Warn("judge call failed",
			"id", r.ID,
			"kind", out.Err.Kind,
			"error", utils.Truncate(out.Err.Error(), 200),
		)
		return bench.EvaluatedResult{
			TurnResult: r,
			EvalError:  utils.Ptr(fmt.Sprintf("evaluation API error (%s): %s", out.Err.Kind, out.Err.Error())),
		}
	}

	v := ParseVerdict(out.Answer)

	e := bench.EvaluatedResult{
		TurnResult:     r,
		Score:          v.Score,
		ScoreReasoning: utils.Ptr(v.Reasoning),
	}
	if v.Error != "" {
		e.EvalError = utils.Ptr(v.Error)
		s.logger.Warn("judge flagged answer",
			"id", r.ID,
			"eval_error", utils.Truncate(v.Error, 200),
		)
	}

	s.logger.Debug("answer evaluated",
		"id", r.ID,
		"score", utils.Deref(v.Score),
		"latency", out.Latency,
	)
	return e
}

func (s *Stage) notify(e bench.EvaluatedResult) {
	if s.observer != nil {
		s.observer(e)
	}
}
