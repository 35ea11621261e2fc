package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/pvnet/internal/adapters/http/api"
	"github.com/okian/pvnet/internal/adapters/repository"
	service "github.com/okian/pvnet/internal/app"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func events(matches, perMatch int) []model.RawEvent {
	var out []model.RawEvent
	for m := 1; m <= matches; m++ {
		for i := 0; i < perMatch; i++ {
			typ := "Pass"
			if i%4 == 3 {
				typ = "Shot"
			}
			out = append(out, model.RawEvent{
				"id":         fmt.Sprintf("%d-%d", m, i),
				"match_id":   float64(m),
				"period":     float64(1),
				"index":      float64(i + 1),
				"possession": float64(i/4 + 1),
				"type":       typ,
				"location":   []any{60.0, 40.0},
			})
		}
	}
	return out
}

func waitTerminal(ctx context.Context, svc *service.Service, id string) repository.Record {
	for {
		rec, err := svc.Dataset(ctx, id)
		if err == nil && rec.Status.Terminal() {
			return rec
		}
		select {
		case <-ctx.Done():
			return rec
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func startService(ctx context.Context, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithLogger(logger.Nop()), service.WithWorkerCount(2)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should return basic stats", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "queue_length")
			})
		})

		Convey("When submitting before starting", func() {
			_, err := svc.Submit(context.Background(), api.Submission{RequestID: "r", Events: events(1, 4)})

			Convey("Then the service is unavailable", func() {
				So(errors.Is(err, api.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When starting and stopping", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given invalid base pipeline options", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()), service.WithPipelineOptions(pipeline.WithK(-1)))

		Convey("Then the service refuses to start", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := startService(ctx, service.WithPipelineOptions(pipeline.WithK(2)))
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When submitting events from ten matches", func() {
			rc, err := svc.Submit(ctx, api.Submission{RequestID: "req-1", Events: events(10, 12)})
			So(err, ShouldBeNil)
			So(rc.Duplicate, ShouldBeFalse)
			rec := waitTerminal(ctx, svc, rc.ID)

			Convey("Then the dataset is built with the base parameters", func() {
				So(rec.Status, ShouldEqual, repository.StatusDone)
				So(rec.Events, ShouldEqual, 120)
				So(rec.Dataset.K, ShouldEqual, 2)
				So(len(rec.Dataset.Rows), ShouldEqual, 120)
				So(rec.Dataset.Summary.Matches, ShouldEqual, 10)
			})

			Convey("And resubmitting the request id is a duplicate of the same build", func() {
				again, err := svc.Submit(ctx, api.Submission{RequestID: "req-1", Events: events(1, 4)})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.ID, ShouldEqual, rc.ID)
			})

			Convey("And it is listed", func() {
				recs, err := svc.Datasets(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 1)
				So(svc.GetStats()["datasets"], ShouldEqual, 1)
			})
		})

		Convey("When a submission overrides k and the seed", func() {
			k, seed := 0, int64(9)
			rc, err := svc.Submit(ctx, api.Submission{
				RequestID: "req-2",
				Events:    events(4, 8),
				Params:    pipeline.Params{K: &k, Seed: &seed},
			})
			So(err, ShouldBeNil)
			rec := waitTerminal(ctx, svc, rc.ID)

			Convey("Then the overrides apply to that build only", func() {
				So(rec.Status, ShouldEqual, repository.StatusDone)
				So(rec.Dataset.K, ShouldEqual, 0)
				So(rec.Dataset.Seed, ShouldEqual, int64(9))
				So(rec.Dataset.Summary.ShotRate, ShouldEqual, 0.0)
			})
		})

		Convey("When a submission has invalid parameters", func() {
			k := -3
			_, err := svc.Submit(ctx, api.Submission{RequestID: "req-3", Events: events(1, 4), Params: pipeline.Params{K: &k}})

			Convey("Then it is a bad request and the request id stays free", func() {
				So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
				_, err = svc.Submit(ctx, api.Submission{RequestID: "req-3", Events: events(1, 4)})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the events cannot be cleaned", func() {
			rc, err := svc.Submit(ctx, api.Submission{RequestID: "req-4", Events: []model.RawEvent{{"type": "Pass"}}})
			So(err, ShouldBeNil)
			rec := waitTerminal(ctx, svc, rc.ID)

			Convey("Then the build fails with the schema error", func() {
				So(rec.Status, ShouldEqual, repository.StatusFailed)
				So(rec.Error, ShouldContainSubstring, "match_id")
			})
		})

		Convey("When reading an unknown dataset", func() {
			_, err := svc.Dataset(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a service with a small event cap", t, func() {
		ctx := context.Background()
		svc := startService(ctx, service.WithMaxEventsPerRequest(3))
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then larger submissions are rejected", func() {
			_, err := svc.Submit(ctx, api.Submission{RequestID: "big", Events: events(1, 4)})
			So(errors.Is(err, api.ErrTooLarge), ShouldBeTrue)
		})
	})
}
