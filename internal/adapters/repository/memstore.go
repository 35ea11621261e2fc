package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/pvnet/pkg/metrics"
)

const defaultMaxRecords = 32

// MemoryStore is an in-memory Store ordered by insertion.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*Record
	order      []string // oldest first
	maxRecords int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records:    make(map[string]*Record),
		maxRecords: defaultMaxRecords,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateDatasetsStored(0)
	return s
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		s.evict()
		s.order = append(s.order, rec.ID)
	}
	if rec.Submitted.IsZero() {
		rec.Submitted = time.Now()
	}
	r := rec
	s.records[rec.ID] = &r
	metrics.UpdateDatasetsStored(len(s.records))
	return nil
}

// evict drops the oldest finished records until there is room for one more.
// Must be called with s.mu held.
func (s *MemoryStore) evict() {
	for len(s.records) >= s.maxRecords {
		i := slices.IndexFunc(s.order, func(id string) bool { return s.records[id].Status.Terminal() })
		if i < 0 {
			return
		}
		delete(s.records, s.order[i])
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Update applies fn to the stored record under the write lock.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	fn(r)
	r.ID = id
	return nil
}

// Get returns a copy of the record for id.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *r, nil
}

// List returns records newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *s.records[s.order[i]])
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
