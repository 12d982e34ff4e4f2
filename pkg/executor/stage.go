// Package executor runs benchmark prompt items against the target model.
//
// Single prompts are one call each. Conversations run turn by turn, each
// turn carrying the full history so far, and stop at the first failure.
// All calls are made from a fixed set of workers, so the number of workers
// bounds how many requests are in flight for the whole run.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/utils"
	"github.com/papercomputeco/judgebench/pkg/worker"
)

// DefaultBatchSize is the number of concurrent requests when none is set.
const DefaultBatchSize uint = 5

// errQueueFull is recorded for a turn that could not be scheduled.
const errQueueFull = "execution queue rejected the turn"

// Observer is called once per produced TurnResult. It may be called from
// several goroutines at once.
type Observer func(bench.TurnResult)

// Config is the configuration for a Stage.
type Config struct {
	// Sender issues the calls. Required.
	Sender Sender

	// BatchSize is the number of workers, and so the maximum number of
	// requests in flight (defaults to 5).
	BatchSize uint

	// Observer is notified of each result as it is produced. Optional.
	Observer Observer

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Stage executes prompt items.
type Stage struct {
	sender    Sender
	batchSize uint
	observer  Observer
	logger    *slog.Logger
}

// NewStage creates a Stage.
func NewStage(c *Config) (*Stage, error) {
	if c == nil || c.Sender == nil {
		return nil, fmt.Errorf("executor: sender is required")
	}

	size := c.BatchSize
	if size == 0 {
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

// CountTurns returns how many results a fully successful run of items
// produces. Invalid items count as one.
func CountTurns(items []bench.PromptItem) int {
	n := 0
	for _, item := range items {
		if item.Validate() == nil && item.Kind == bench.KindConversation {
			n += len(item.Turns)
			continue
		}
		n++
	}
	return n
}

// Run executes items and returns the flat result list in input order, with
// the turns of each conversation contiguous and in order. A failing item
// never stops the others. The error is non-nil only when ctx ends before
// the work drains; the results gathered so far are returned with it.
func (s *Stage) Run(ctx context.Context, items []bench.PromptItem) ([]bench.TurnResult, error) {
	s.logger.Info("execution started",
		"items", len(items),
		"batch_size", s.batchSize,
	)

	// Each item has at most one task queued at a time, so a queue as long as
	// the item list never fills.
	queueSize := uint(max(len(items), 1))

	pool, err := worker.NewPool(ctx, &worker.Config{
		NumWorkers: s.batchSize,
		QueueSize:  queueSize,
		Logger:     s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("starting worker pool: %w", err)
	}

	slots := make([][]bench.TurnResult, len(items))
	convs := make(map[int]*Conversation)

	var wg sync.WaitGroup
	for i, item := range items {
		if err := item.Validate(); err != nil {
			s.logger.Warn("invalid item", "id", item.ID, "error", err)
			slots[i] = []bench.TurnResult{invalidResult(item)}
			s.notify(slots[i][0])
			continue
		}

		switch item.Kind {
		case bench.KindSingle:
			wg.Add(1)
			task := func(ctx context.Context) {
				defer wg.Done()
				slots[i] = []bench.TurnResult{s.single(ctx, item)}
				s.notify(slots[i][0])
			}
			if !pool.Enqueue(task) {
				wg.Done()
				slots[i] = []bench.TurnResult{rejectedResult(item)}
				s.notify(slots[i][0])
			}

		case bench.KindConversation:
			conv := NewConversation(item.ID, item.Turns)
			convs[i] = conv
			if conv.Done() {
				continue
			}
			wg.Add(1)
			s.schedule(pool, &wg, conv)
		}
	}

	wg.Wait()
	pool.Close()

	for i, conv := range convs {
		slots[i] = conv.Results()
	}

	results := make([]bench.TurnResult, 0, len(items))
	failed := 0
	for _, slot := range slots {
		for _, r := range slot {
			if r.Failed() {
				failed++
			}
		}
		results = append(results, slot...)
	}

	s.logger.Info("execution finished",
		"results", len(results),
		"failed", failed,
	)

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("execution interrupted: %w", err)
	}
	return results, nil
}

// schedule enqueues the next turn of conv. After the turn completes, the
// task enqueues the following one, so a conversation holds at most one
// queue slot and never occupies a worker while it waits for its turn.
func (s *Stage) schedule(pool *worker.Pool, wg *sync.WaitGroup, conv *Conversation) {
	var task worker.Task
	task = func(ctx context.Context) {
		more := conv.Step(ctx, s.sender)
		s.notify(conv.last())
		if !more {
			wg.Done()
			return
		}
		if !pool.Enqueue(task) {
			s.reject(wg, conv)
		}
	}

	if !pool.Enqueue(task) {
		s.reject(wg, conv)
	}
}

func (s *Stage) reject(wg *sync.WaitGroup, conv *Conversation) {
	s.logger.Error("conversation turn not scheduled", "conversation_id", conv.ID())
	conv.abort(errQueueFull)
	s.notify(conv.last())
	wg.Done()
}

func (s *Stage) single(ctx context.Context, item bench.PromptItem) bench.TurnResult {
	out := s.sender.Send(ctx, item.Messages)

	result := bench.TurnResult{
		ID:          item.ID,
		UserMessage: item.UserMessage(),
		Expected:    item.Expected,
		Latency:     out.Latency.Seconds(),
	}

	if out.OK() {
		result.Actual = utils.Ptr(out.Answer)
		return result
	}

	result.Error = utils.Ptr(out.Err.Error())
	s.logger.Debug("prompt failed", "id", item.ID, "kind", out.Err.Kind)
	return result
}

func (s *Stage) notify(r bench.TurnResult) {
	if s.observer != nil {
		s.observer(r)
	}
}

func invalidResult(item bench.PromptItem) bench.TurnResult {
	return bench.TurnResult{
		ID:          item.ID,
		UserMessage: item.UserMessage(),
		Expected:    item.Expected,
		Error:       utils.Ptr(bench.InvalidItemError),
	}
}

func rejectedResult(item bench.PromptItem) bench.TurnResult {
	return bench.TurnResult{
		ID:          item.ID,
		UserMessage: item.UserMessage(),
		Expected:    item.Expected,
		Error:       utils.Ptr(errQueueFull),
	}
}
