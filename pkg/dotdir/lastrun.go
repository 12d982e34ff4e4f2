package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastRunFile = "last_run.json"
)

// LastRun points at the output of the most recent benchmark run.
type LastRun struct {
	// RunID is the pipeline run identifier, usable against a storage driver.
	RunID string `json:"run_id"`

	// ResultsPath is the structured results file, empty when it was not written.
	ResultsPath string `json:"results_path,omitempty"`

	// SummaryPath is the summary report file, empty when it was not written.
	SummaryPath string `json:"summary_path,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// LoadLastRun loads the last run pointer from a target .judgebench/last_run.json.
// Returns nil, nil if no run has been recorded yet.
func (m *Manager) LoadLastRun(overrideDir string) (*LastRun, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, lastRunFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	last := &LastRun{}
	if err := json.Unmarshal(data, last); err != nil {
		return nil, fmt.Errorf("parsing last run: %w", err)
	}

	return last, nil
}

// SaveLastRun persists the last run pointer.
func (m *Manager) SaveLastRun(last *LastRun, overrideDir string) error {
	if last == nil {
		return errors.New("cannot save nil last run")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last run: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastRunFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last run: %w", err)
	}

	return nil
}

// ClearLastRun removes the last run pointer. Returns nil if it doesn't exist.
func (m *Manager) ClearLastRun(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, lastRunFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last run: %w", err)
	}

	return nil
}
