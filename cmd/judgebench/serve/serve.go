// Package servecmder provides the serve command running the judgebench API
// server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/judgebench/api"
	"github.com/papercomputeco/judgebench/pkg/config"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/pipeline"
)

const serveLongDesc string = `Run the judgebench API server.

The server accepts prompt documents over HTTP, runs each benchmark in the
background and serves the stored runs:

  POST   /v1/runs        submit prompt items, returns 202 with the run id
  GET    /v1/runs        list runs, newest first (?limit=N)
  GET    /v1/runs/:id    run status, summary and results
  DELETE /v1/runs/:id    delete a finished run
  GET    /ping           health check

Runs are kept in memory unless --storage selects sqlite or postgres.

Logs are JSON on stdout. With --log-file, the terminal gets readable logs on
stderr and the JSON records go to the file instead.

Examples:
  judgebench serve -e http://localhost:11434/v1/chat/completions -m llama3.2
  judgebench serve --storage sqlite -s runs.sqlite --listen :9000
  judgebench serve --log-file serve.log`

const serveShortDesc string = "Run the judgebench API server"

type serveCommander struct {
	debug       bool
	configDir   string
	skipInvalid bool
	logFile     string
	logger      *slog.Logger
}

var flagKeys = func() []string {
	keys := append([]string{}, config.ModelFlags...)
	keys = append(keys, config.StorageFlags...)
	keys = append(keys, config.EventStreamFlags...)
	return append(keys, config.FlagAPIListen)
}()

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.Resolve(cmd, cmder.configDir, flagKeys)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddFlags(cmd, config.Flags, flagKeys)
	cmd.Flags().BoolVar(&cmder.skipInvalid, "skip-invalid", false, "Drop invalid prompt items instead of reporting them as errors")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Append JSON logs to this file and print readable logs to stderr")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *config.Config) error {
	log, closeLog, err := newLogger(c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	if cfg.Storage.Driver == pipeline.StorageNone {
		cfg.Storage.Driver = pipeline.StorageMemory
	}

	store, err := pipeline.OpenStorage(ctx, cfg.Storage, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, err := pipeline.OpenPublisher(cfg.EventStream, c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	p, err := pipeline.Build(cfg, store, pub, pipeline.Hooks{}, c.logger)
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:  cfg.API.Listen,
		SkipInvalid: c.skipInvalid,
	}, p, store, c.logger)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return server.Shutdown()
	}
}

// newLogger builds the server logger. Without a log file it writes JSON to
// stdout. With one, pretty records go to stderr and JSON records are appended
// to the file. Debug mode adds source locations to the JSON records.
func newLogger(debug bool, logFile string) (*slog.Logger, func() error, error) {
	if logFile == "" {
		l := logger.New(
			logger.WithJSON(true),
			logger.WithDebug(debug),
			logger.WithSource(debug),
		)
		return l, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	l := logger.Multi(
		logger.New(
			logger.WithPretty(true),
			logger.WithDebug(debug),
			logger.WithWriter(os.Stderr),
		),
		logger.New(
			logger.WithJSON(true),
			logger.WithDebug(debug),
			logger.WithSource(debug),
			logger.WithWriter(f),
		),
	)
	return l, f.Close, nil
}
