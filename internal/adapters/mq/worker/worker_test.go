package worker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/pvnet/internal/adapters/mq/queue"
	worker "github.com/okian/pvnet/internal/adapters/mq/worker"
	"github.com/okian/pvnet/internal/adapters/repository"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
)

type mockBuilder struct {
	fail  map[string]error
	delay time.Duration
}

func (b *mockBuilder) Build(ctx context.Context, job pipeline.Job) (*pipeline.Dataset, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if err := b.fail[job.ID]; err != nil {
		return nil, err
	}
	rows := make([]model.LabeledRow, len(job.Events))
	return &pipeline.Dataset{Rows: rows}, nil
}

func waitStatus(ctx context.Context, s repository.Store, id string) repository.Record {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r, err := s.Get(ctx, id)
		if err == nil && r.Status.Terminal() {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	r, _ := s.Get(ctx, id)
	return r
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of two workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		store := repository.NewMemoryStore()
		builder := &mockBuilder{fail: map[string]error{"bad": errors.New("boom")}}
		pool := worker.NewPool(2, q, builder, store, nil)
		pool.Start(ctx)

		submit := func(id string, events int) {
			convey.So(store.Put(ctx, repository.Record{ID: id, Status: repository.StatusQueued}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, pipeline.Job{ID: id, Events: make([]model.RawEvent, events)}), convey.ShouldBeNil)
		}

		convey.Convey("When a job succeeds", func() {
			submit("good", 3)
			r := waitStatus(ctx, store, "good")

			convey.Convey("Then the record holds the dataset", func() {
				convey.So(r.Status, convey.ShouldEqual, repository.StatusDone)
				convey.So(r.Dataset, convey.ShouldNotBeNil)
				convey.So(len(r.Dataset.Rows), convey.ShouldEqual, 3)
				convey.So(r.Completed.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a job fails", func() {
			submit("bad", 1)
			r := waitStatus(ctx, store, "bad")

			convey.Convey("Then the record holds the error", func() {
				convey.So(r.Status, convey.ShouldEqual, repository.StatusFailed)
				convey.So(r.Error, convey.ShouldEqual, "boom")
				convey.So(r.Dataset, convey.ShouldBeNil)
			})
		})

		convey.Convey("When many jobs are queued", func() {
			for i := 0; i < 6; i++ {
				submit(fmt.Sprint("job-", i), i)
			}

			convey.Convey("Then all of them finish", func() {
				for i := 0; i < 6; i++ {
					r := waitStatus(ctx, store, fmt.Sprint("job-", i))
					convey.So(r.Status, convey.ShouldEqual, repository.StatusDone)
				}
				convey.So(pool.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the pool shuts down with jobs pending", func() {
			builder.delay = 10 * time.Millisecond
			submit("p1", 1)
			submit("p2", 1)
			err := pool.Shutdown(context.Background())

			convey.Convey("Then pending jobs are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				for _, id := range []string{"p1", "p2"} {
					r, _ := store.Get(ctx, id)
					convey.So(r.Status, convey.ShouldEqual, repository.StatusDone)
				}
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pool.Active(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestWorkerMissingRecord(t *testing.T) {
	convey.Convey("Given a worker whose job has no record", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue()
		store := repository.NewMemoryStore()
		w := worker.NewInMemoryWorker(q, &mockBuilder{}, store, worker.WithName("solo"))
		go w.Run(ctx)

		convey.So(q.Enqueue(ctx, pipeline.Job{ID: "ghost"}), convey.ShouldBeNil)
		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("Then the job is skipped and the worker stops when the queue drains", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			_, err := store.Get(ctx, "ghost")
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})
}
