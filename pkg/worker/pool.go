// Package worker provides a bounded worker pool. A fixed number of workers
// pull ready tasks off a buffered queue, so the number of workers is the
// admission bound for everything submitted to the pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/judgebench/pkg/logger"
)

var (
	defaultNumWorkers   uint = 5
	defaultJobQueueSize uint = 256
)

// Task is a unit of work for the worker pool to execute.
// A task may enqueue follow-up tasks on the same pool.
type Task func(ctx context.Context)

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of workers in the pool (defaults to 5).
	NumWorkers uint

	// QueueSize is the capacity of the buffered task channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool runs tasks on a fixed set of workers.
type Pool struct {
	config *Config
	queue  chan Task
	wg     sync.WaitGroup
	logger *slog.Logger

	// ctx is handed to every task
	ctx context.Context

	// mu guards closed so Enqueue never sends on a closed queue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(ctx context.Context, c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Task, c.QueueSize),
		logger: c.Logger,
		ctx:    ctx,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a task for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the task being dropped.
func (p *Pool) Enqueue(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Error("task not queued, pool closed")
		return false
	}

	select {
	case p.queue <- task:
		p.logger.Debug("task queued", "queued", len(p.queue))
		return true
	default:
		p.logger.Error("task not queued, queue full, task dropped",
			"queue_size", p.config.QueueSize,
		)
		return false
	}
}

// Close signals workers to stop and waits for queued tasks to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls tasks off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for task := range p.queue {
		task(p.ctx)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}
