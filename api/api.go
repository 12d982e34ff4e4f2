package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/judgebench/pkg/pipeline"
	"github.com/papercomputeco/judgebench/pkg/storage"
)

// Server is the API server for running benchmarks and reading their results.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	storer   storage.Driver
	logger   *slog.Logger
	app      *fiber.App

	// runs tracks benchmark runs started by the server.
	runs   sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new API server.
// The storer must be the same driver the pipeline records runs in.
func NewServer(config Config, p *pipeline.Pipeline, storer storage.Driver, logger *slog.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("api: pipeline is required")
	}
	if storer == nil {
		return nil, errors.New("api: storage is required to track runs")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		pipeline: p,
		storer:   storer,
		logger:   logger,
		app:      app,
		ctx:      ctx,
		cancel:   cancel,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/runs", s.handleCreateRun)
	app.Get("/v1/runs", s.handleListRuns)
	app.Get("/v1/runs/:id", s.handleGetRun)
	app.Delete("/v1/runs/:id", s.handleDeleteRun)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting requests, cancels in-flight runs and waits for
// them to record their final state.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.cancel()
	s.runs.Wait()
	return err
}
