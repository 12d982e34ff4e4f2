// Package inmemory provides a storage driver that keeps runs in a map.
package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/judgebench/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of runs
	mu sync.RWMutex

	// runs is the in memory map of runs keyed by run ID
	runs map[string]*storage.Run
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		runs: make(map[string]*storage.Run),
	}
}

// Put stores a copy of run.
func (s *Driver) Put(_ context.Context, run *storage.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run.Clone()
	return nil
}

// Get retrieves a run by its ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return run.Clone(), nil
}

// List returns runs newest first, without results.
func (s *Driver) List(_ context.Context, limit int) ([]*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*storage.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run.WithoutResults())
	}

	slices.SortFunc(runs, func(a, b *storage.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Delete removes a run.
func (s *Driver) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return storage.NotFoundError{ID: id}
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}
