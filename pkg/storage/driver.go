// Package storage persists benchmark runs.
package storage

import (
	"context"
)

// Driver defines the interface for persisting and retrieving runs in a
// storage backend.
type Driver interface {
	// Put stores a run, replacing any run with the same ID.
	Put(ctx context.Context, run *Run) error

	// Get retrieves a run by its ID, including its results.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first, without their results.
	// A limit of 0 or less returns every run.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. Deleting a missing run returns NotFoundError.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
