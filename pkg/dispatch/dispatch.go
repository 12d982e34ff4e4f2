// Package dispatch sends chat requests to a model with a per-call timeout,
// bounded retry with exponential backoff on HTTP 429, and an optional
// inter-request delay shared by every caller.
//
// A Dispatcher does not bound concurrency by itself. Callers run Send from a
// fixed set of workers (see pkg/worker) or under an errgroup limit, and that
// bound is the admission pool.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/client"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

const (
	// DefaultMaxRetries is the number of retries after an HTTP 429.
	DefaultMaxRetries uint = 3

	// DefaultBackoffBase is the wait before the first retry. Each further
	// retry doubles it.
	DefaultBackoffBase = time.Second
)

// Config is the configuration for a Dispatcher.
type Config struct {
	// Client performs the HTTP call. Required.
	Client client.Client

	// Model is sent with every request. Required.
	Model string

	// MaxRetries is how many times an HTTP 429 is retried before the call
	// fails. Zero disables retries; use DefaultMaxRetries for the default.
	MaxRetries uint

	// BackoffBase is the first backoff interval (defaults to 1s).
	BackoffBase time.Duration

	// RequestDelay spaces out consecutive attempts across all callers.
	// Zero means no delay.
	RequestDelay time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Outcome is the result of a Send. Err is nil on success.
type Outcome struct {
	// Answer is the assistant content on success.
	Answer string

	// Response is the parsed response on success.
	Response *llm.ChatResponse

	// Latency is the duration of the attempt that produced the outcome.
	Latency time.Duration

	// Attempts is the number of HTTP calls made.
	Attempts int

	Err *Failure
}

// OK reports whether the call produced an answer.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Dispatcher sends requests for one model. It is safe for concurrent use.
type Dispatcher struct {
	client      client.Client
	model       string
	maxRetries  uint
	backoffBase time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a Dispatcher. Missing required settings return an error
// wrapping ErrConfiguration.
func New(c *Config) (*Dispatcher, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil dispatcher config", ErrConfiguration)
	}
	if c.Client == nil {
		return nil, fmt.Errorf("%w: client is required", ErrConfiguration)
	}
	if c.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrConfiguration)
	}

	base := c.BackoffBase
	if base <= 0 {
		base = DefaultBackoffBase
	}

	limit := rate.Inf
	if c.RequestDelay > 0 {
		limit = rate.Every(c.RequestDelay)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Dispatcher{
		client:      c.Client,
		model:       c.Model,
		maxRetries:  c.MaxRetries,
		backoffBase: base,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      log,
	}, nil
}

// Model is the model identifier sent with every request.
func (d *Dispatcher) Model() string {
	return d.model
}

// Send issues a non-streaming chat request over a copy of messages and
// returns the outcome. Only HTTP 429 is retried.
func (d *Dispatcher) Send(ctx context.Context, messages []llm.Message) Outcome {
	req := llm.NewChatRequest(d.model, messages)
	backoff := retry.WithMaxRetries(uint64(d.maxRetries), retry.NewExponential(d.backoffBase))

	var out Outcome
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			out.Err = classify(err)
			return out.Err
		}

		out.Attempts++
		start := time.Now()
		resp, err := d.client.Complete(ctx, req)
		out.Latency = time.Since(start)

		if err == nil {
			out.Answer = resp.Message.Content
			out.Response = resp
			out.Err = nil
			return nil
		}

		out.Err = classify(err)
		if out.Err.Kind == KindRateLimited {
			d.logger.Warn("rate limited, backing off",
				"model", d.model,
				"attempt", out.Attempts,
				"max_retries", d.maxRetries,
			)
			return retry.RetryableError(out.Err)
		}

		d.logger.Debug("call failed",
			"model", d.model,
			"kind", out.Err.Kind,
			"error", utils.Truncate(out.Err.Error(), 200),
		)
		return out.Err
	})

	// Cancelled before any attempt finished.
	if err != nil && out.Err == nil {
		out.Err = classify(err)
	}

	if out.OK() {
		d.logger.Debug("call succeeded",
			"model", d.model,
			"attempts", out.Attempts,
			"latency", out.Latency,
		)
	}

	return out
}
