// Package service provides the dataset build service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pvnet/internal/adapters/http/api"
	"github.com/okian/pvnet/internal/adapters/mq/queue"
	"github.com/okian/pvnet/internal/adapters/mq/worker"
	"github.com/okian/pvnet/internal/adapters/repository"
	"github.com/okian/pvnet/internal/domain/dedupe"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/pkg/logger"
	"github.com/okian/pvnet/pkg/metrics"
)

// Service accepts raw event batches, builds datasets on a worker pool and
// keeps the results for reading.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	builder *pipeline.Builder
	pool    *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxDatasets  int
	maxEvents    int
	pipelineOpts []pipeline.Option

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   64,
		dedupeSize:  10_000,
		maxDatasets: 32,
		maxEvents:   2_000_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	builder, err := pipeline.NewBuilder(append(s.pipelineOpts, pipeline.WithLogger(s.logger.Named("pipeline")))...)
	if err != nil {
		return err
	}
	s.builder = builder
	s.store = repository.NewMemoryStore(repository.WithMaxRecords(s.maxDatasets))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.builder, s.store, s.logger)
	s.pool.Start(ctx)

	metrics.UpdateQueueCapacity(s.queue.Capacity())
	metrics.UpdateQueueSize(0)

	s.started = true
	s.logger.Info(ctx, "dataset service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("max_datasets", s.maxDatasets),
	)
	return nil
}

// Stop stops accepting builds and waits for queued ones to finish until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	s.logger.Info(ctx, "stopping dataset service...")

	err := s.pool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.logger.Info(ctx, "dataset service stopped")
	return err
}

// Submit queues a dataset build. A request id seen before is acknowledged
// as a duplicate with the id of the original build when it is still stored.
func (s *Service) Submit(ctx context.Context, sub api.Submission) (api.Receipt, error) {
	const op = "service.submit"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return api.Receipt{}, api.NewKind(op, api.ErrUnavailable)
	}
	if len(sub.Events) > s.maxEvents {
		return api.Receipt{}, api.NewKind(op, api.ErrTooLarge)
	}
	if err := s.builder.Validate(sub.Params); err != nil {
		return api.Receipt{}, api.WrapKind(op, api.ErrBadRequest, err)
	}

	if s.deduper.SeenAndRecord(ctx, sub.RequestID) {
		metrics.RecordEventDuplicate()
		return api.Receipt{ID: s.findRequest(ctx, sub.RequestID), Status: "duplicate", Duplicate: true}, nil
	}

	job := pipeline.Job{
		ID:        uuid.NewString(),
		RequestID: sub.RequestID,
		Events:    sub.Events,
		Params:    sub.Params,
		Submitted: time.Now(),
	}
	rec := repository.Record{
		ID:        job.ID,
		RequestID: job.RequestID,
		Status:    repository.StatusQueued,
		Events:    len(job.Events),
		Submitted: job.Submitted,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.deduper.Unrecord(ctx, sub.RequestID)
		return api.Receipt{}, err
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		// Let the client retry the same request id.
		s.deduper.Unrecord(ctx, sub.RequestID)
		_ = s.store.Update(ctx, job.ID, func(r *repository.Record) {
			r.Status = repository.StatusFailed
			r.Error = err.Error()
			r.Completed = time.Now()
		})
		switch {
		case errors.Is(err, queue.ErrFull):
			return api.Receipt{}, api.WrapKind(op, api.ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return api.Receipt{}, api.WrapKind(op, api.ErrUnavailable, err)
		default:
			return api.Receipt{}, err
		}
	}
	metrics.UpdateQueueSize(s.queue.Len(ctx))
	metrics.RecordEventsIngested(len(job.Events))

	s.logger.Debug(ctx, "dataset build queued",
		logger.String("job_id", job.ID),
		logger.String("request_id", job.RequestID),
		logger.Int("events", len(job.Events)),
	)
	return api.Receipt{ID: job.ID, Status: "accepted"}, nil
}

func (s *Service) findRequest(ctx context.Context, requestID string) string {
	recs, err := s.store.List(ctx, 0)
	if err != nil {
		return ""
	}
	for _, r := range recs {
		if r.RequestID == requestID {
			return r.ID
		}
	}
	return ""
}

// Dataset returns one build record.
func (s *Service) Dataset(ctx context.Context, id string) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return repository.Record{}, api.NewKind("service.dataset", api.ErrUnavailable)
	}
	return s.store.Get(ctx, id)
}

// Datasets lists build records newest first.
func (s *Service) Datasets(ctx context.Context, limit int) ([]repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, api.NewKind("service.datasets", api.ErrUnavailable)
	}
	return s.store.List(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"max_datasets": s.maxDatasets,
	}
	if s.pool == nil {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queue_length"] = queueLen
	stats["active_workers"] = s.pool.Active()
	stats["datasets"] = s.store.Count(ctx)
	stats["request_ids"] = s.deduper.Size()

	metrics.UpdateQueueSize(queueLen)
	return stats
}
