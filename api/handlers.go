package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/prompts"
	"github.com/papercomputeco/judgebench/pkg/storage"
)

// defaultListLimit caps GET /v1/runs when no limit is given.
const defaultListLimit = 50

// CreateRunResponse is returned when a run is accepted.
type CreateRunResponse struct {
	ID       string         `json:"id"`
	Status   storage.Status `json:"status"`
	Items    int            `json:"items"`
	Problems []string       `json:"problems,omitempty"`
}

// ListRunsResponse lists stored runs without their results.
type ListRunsResponse struct {
	Count int            `json:"count"`
	Runs  []*storage.Run `json:"runs"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateRun accepts a prompt document and runs it in the background.
// The body is either a list of prompt items or an object with a "prompts"
// list. YAML documents are accepted with a yaml content type.
func (s *Server) handleCreateRun(c *fiber.Ctx) error {
	data, format, err := promptDocument(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	loaded, err := prompts.Load(data, format, prompts.Options{
		SkipInvalid: s.config.SkipInvalid,
		Logger:      s.logger,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	if len(loaded.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "no prompt items to run"})
	}

	id := uuid.NewString()
	queued := &storage.Run{
		ID:        id,
		Status:    storage.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storer.Put(c.Context(), queued); err != nil {
		s.logger.Error("failed to queue run", "run_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to queue run"})
	}

	s.start(id, loaded.Items)

	resp := CreateRunResponse{
		ID:     id,
		Status: storage.StatusQueued,
		Items:  len(loaded.Items),
	}
	for _, p := range loaded.Problems {
		resp.Problems = append(resp.Problems, p.String())
	}

	c.Location("/v1/runs/" + id)
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// handleListRuns returns stored runs, newest first.
func (s *Server) handleListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)

	runs, err := s.storer.List(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list runs"})
	}
	if runs == nil {
		runs = []*storage.Run{}
	}

	return c.JSON(ListRunsResponse{Count: len(runs), Runs: runs})
}

// handleGetRun returns a single run with its results.
func (s *Server) handleGetRun(c *fiber.Ctx) error {
	id := c.Params("id")

	run, err := s.storer.Get(c.Context(), id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "run not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get run"})
	}

	return c.JSON(run)
}

// handleDeleteRun removes a finished run.
func (s *Server) handleDeleteRun(c *fiber.Ctx) error {
	id := c.Params("id")

	run, err := s.storer.Get(c.Context(), id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "run not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get run"})
	}
	if !run.Status.Done() {
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: "run is still in progress"})
	}

	if err := s.storer.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to delete run"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// start runs the pipeline for items in the background under id.
func (s *Server) start(id string, items []bench.PromptItem) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()

		run, err := s.pipeline.RunWithID(s.ctx, id, items)
		if err != nil {
			s.logger.Error("benchmark run failed", "run_id", id, "error", err)
			return
		}
		s.logger.Info("benchmark run completed",
			"run_id", id,
			"results", len(run.Evaluated),
		)
	}()
}

// promptDocument extracts the prompt list from the request body.
func promptDocument(c *fiber.Ctx) ([]byte, prompts.Format, error) {
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return nil, "", errors.New("request body is empty")
	}

	if strings.Contains(c.Get(fiber.HeaderContentType), "yaml") {
		return body, prompts.FormatYAML, nil
	}

	if body[0] != '{' {
		return body, prompts.FormatJSON, nil
	}

	var envelope struct {
		Prompts json.RawMessage `json:"prompts"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", errors.New("invalid JSON request body")
	}
	if len(envelope.Prompts) == 0 {
		return nil, "", errors.New(`request body must be a list of prompt items or an object with a "prompts" list`)
	}

	return envelope.Prompts, prompts.FormatJSON, nil
}
