// Package repository stores dataset build records.
package repository

import (
	"context"
	"time"

	"github.com/okian/pvnet/internal/domain/pipeline"
)

// Status is the lifecycle state of a dataset build.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transitions happen.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Record is one dataset build and, once done, its dataset.
type Record struct {
	ID        string
	RequestID string
	Status    Status
	Error     string
	Events    int
	Submitted time.Time
	Completed time.Time
	Dataset   *pipeline.Dataset
}

// Store provides read/write access to dataset records.
type Store interface {
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec Record) error

	// Update applies fn to the stored record.
	// Returns ErrNotFound if id is unknown.
	Update(ctx context.Context, id string, fn func(*Record)) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns records newest first, at most limit when limit > 0.
	List(ctx context.Context, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
