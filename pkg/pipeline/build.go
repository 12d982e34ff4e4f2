package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/judgebench/pkg/config"
	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/eventstream/kafka"
	"github.com/papercomputeco/judgebench/pkg/eventstream/nop"
	"github.com/papercomputeco/judgebench/pkg/evaluator"
	"github.com/papercomputeco/judgebench/pkg/executor"
	"github.com/papercomputeco/judgebench/pkg/llm/client"
	"github.com/papercomputeco/judgebench/pkg/llm/client/sdk"
	"github.com/papercomputeco/judgebench/pkg/llm/provider"
	"github.com/papercomputeco/judgebench/pkg/storage"
	"github.com/papercomputeco/judgebench/pkg/storage/inmemory"
	"github.com/papercomputeco/judgebench/pkg/storage/postgres"
	"github.com/papercomputeco/judgebench/pkg/storage/sqlite"
)

// Client transports selectable per model.
const (
	ClientHTTP = "http"
	ClientSDK  = "sdk"
)

// Storage drivers selectable through storage.driver.
const (
	StorageNone     = ""
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Event stream providers selectable through eventstream.provider.
const (
	EventStreamNone  = ""
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

// Hooks are optional per-result callbacks wired into the stages, e.g. for
// progress reporting.
type Hooks struct {
	Executed  executor.Observer
	Evaluated evaluator.Observer
}

// NewClient creates the transport for one model.
func NewClient(m config.ModelConfig) (client.Client, error) {
	timeout := time.Duration(m.TimeoutSeconds) * time.Second

	switch m.Client {
	case ClientHTTP, "":
		p, err := provider.New(m.Provider)
		if err != nil {
			return nil, err
		}
		c, err := client.NewHTTPClient(&client.HTTPConfig{
			Endpoint: m.Endpoint,
			APIKey:   m.APIKey,
			Provider: p,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil

	case ClientSDK:
		if m.Provider != "" && m.Provider != provider.OpenAI {
			return nil, fmt.Errorf("sdk client only supports the %q provider, got %q", provider.OpenAI, m.Provider)
		}
		c, err := sdk.New(&sdk.Config{
			Endpoint: m.Endpoint,
			APIKey:   m.APIKey,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown client %q (supported: %s, %s)", m.Client, ClientHTTP, ClientSDK)
	}
}

// NewDispatcher creates a dispatcher for one model. Every error it returns
// wraps dispatch.ErrConfiguration.
func NewDispatcher(m config.ModelConfig, log *slog.Logger) (*dispatch.Dispatcher, error) {
	c, err := NewClient(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dispatch.ErrConfiguration, err)
	}

	return dispatch.New(&dispatch.Config{
		Client:       c,
		Model:        m.Model,
		MaxRetries:   m.MaxRetries,
		RequestDelay: time.Duration(m.RequestDelayMs) * time.Millisecond,
		Logger:       log,
	})
}

// Build creates a Pipeline from cfg. Storage and publisher are passed in so
// callers own their lifetime.
func Build(cfg *config.Config, store storage.Driver, pub eventstream.Publisher, hooks Hooks, log *slog.Logger) (*Pipeline, error) {
	target := cfg.Target
	judge := cfg.ResolvedJudge()

	targetDispatcher, err := NewDispatcher(target, log.With("component", "target"))
	if err != nil {
		return nil, fmt.Errorf("target model: %w", err)
	}

	judgeDispatcher, err := NewDispatcher(judge, log.With("component", "judge"))
	if err != nil {
		return nil, fmt.Errorf("judge model: %w", err)
	}

	exec, err := executor.NewStage(&executor.Config{
		Sender:    targetDispatcher,
		BatchSize: target.BatchSize,
		Observer:  hooks.Executed,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	eval, err := evaluator.NewStage(&evaluator.Config{
		Sender:    judgeDispatcher,
		BatchSize: int(judge.BatchSize), //nolint:gosec // batch sizes are small
		Observer:  hooks.Evaluated,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	return New(&Config{
		Executor:    exec,
		Evaluator:   eval,
		Storage:     store,
		Publisher:   pub,
		TargetModel: target.Model,
		JudgeModel:  judge.Model,
		Logger:      log,
	})
}

// OpenStorage opens the configured storage driver. It returns nil, nil when
// storage is disabled.
func OpenStorage(ctx context.Context, c config.StorageConfig, log *slog.Logger) (storage.Driver, error) {
	switch c.Driver {
	case StorageNone:
		return nil, nil

	case StorageMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case StorageSQLite:
		driver, err := sqlite.NewSQLiteDriver(ctx, c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", c.SQLitePath)
		return driver, nil

	case StoragePostgres:
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (supported: %s, %s, %s)",
			c.Driver, StorageMemory, StorageSQLite, StoragePostgres)
	}
}

// OpenPublisher opens the configured event stream publisher.
func OpenPublisher(c config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case EventStreamNone, EventStreamNop:
		return nop.NewPublisher(), nil

	case EventStreamKafka:
		pub, err := kafka.NewPublisher(&kafka.Config{
			Brokers: c.Brokers,
			Topic:   c.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		log.Info("publishing run events to kafka", "brokers", c.Brokers, "topic", c.Topic)
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider %q (supported: %s)", c.Provider, EventStreamKafka)
	}
}
