// Package worker runs queued dataset builds and records their outcome.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pvnet/internal/adapters/mq/queue"
	"github.com/okian/pvnet/internal/adapters/repository"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/pkg/logger"
	"github.com/okian/pvnet/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Builder turns a job into a dataset.
type Builder interface {
	Build(ctx context.Context, job pipeline.Job) (*pipeline.Dataset, error)
}

// Updater records job progress.
type Updater interface {
	Update(ctx context.Context, id string, fn func(*repository.Record)) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker builds datasets for jobs read from a Queue.
type InMemoryWorker struct {
	queue   Queue
	builder Builder
	updater Updater
	name    string
	active  *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, b Builder, u Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		builder:  b,
		updater:  u,
		name:     "worker",
		active:   &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "dataset build failed", logger.String("job_id", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown signals the worker to stop after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process builds one dataset and stores the result or the failure.
func (w *InMemoryWorker) process(ctx context.Context, job pipeline.Job) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordJobLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.updater.Update(ctx, job.ID, func(r *repository.Record) { r.Status = repository.StatusRunning }); err != nil {
		metrics.RecordErrorByComponent("worker", "record_missing")
		return fmt.Errorf("mark running %s: %w", job.ID, err)
	}

	ds, buildErr := w.builder.Build(ctx, job)
	err := w.updater.Update(ctx, job.ID, func(r *repository.Record) {
		r.Completed = time.Now()
		if buildErr != nil {
			r.Status = repository.StatusFailed
			r.Error = buildErr.Error()
			return
		}
		r.Status = repository.StatusDone
		r.Dataset = ds
	})
	if buildErr != nil {
		metrics.RecordErrorByComponent("worker", "build_failed")
		return fmt.Errorf("build %s: %w", job.ID, buildErr)
	}
	if err != nil {
		metrics.RecordErrorByComponent("worker", "record_missing")
		return fmt.Errorf("store %s: %w", job.ID, err)
	}

	w.logger.Debug(ctx, "dataset built",
		logger.String("job_id", job.ID),
		logger.Int("rows", len(ds.Rows)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	logger  logger.Logger
}

// NewPool creates workerCount workers. Values below 1 mean runtime.NumCPU().
func NewPool(workerCount int, q Queue, b Builder, u Updater, l logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if l == nil {
		l = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  l.Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, b, u, WithName("worker-"+strconv.Itoa(i)), WithLogger(l))
		w.active = &p.active
		p.workers[i] = w
	}
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers currently building.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy when ctx or the pool timeout expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
			err = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return err
}
