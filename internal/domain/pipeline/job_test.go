package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/internal/domain/split"
)

func TestBuilder(t *testing.T) {
	convey.Convey("Given a builder with k=1", t, func() {
		b, err := pipeline.NewBuilder(pipeline.WithK(1), pipeline.WithFractions(split.Fractions{Train: 1}))
		convey.So(err, convey.ShouldBeNil)
		raw := possession(1, 1, 1, model.TypePass, model.TypePass, model.TypeShot)

		convey.Convey("When a job keeps the base parameters", func() {
			ds, err := b.Build(context.Background(), pipeline.Job{ID: "a", Events: raw})

			convey.Convey("Then the base k applies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.K, convey.ShouldEqual, 1)
				convey.So(ds.Rows[0].Labels.ShotWithinK, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a job overrides k", func() {
			k := 5
			ds, err := b.Build(context.Background(), pipeline.Job{ID: "b", Events: raw, Params: pipeline.Params{K: &k}})

			convey.Convey("Then the override applies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.K, convey.ShouldEqual, 5)
				convey.So(ds.Rows[0].Labels.ShotWithinK, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When params are invalid", func() {
			f := split.Fractions{Train: 2}
			err := b.Validate(pipeline.Params{Fractions: &f})

			convey.Convey("Then validation fails with a configuration error", func() {
				convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given invalid base options", t, func() {
		_, err := pipeline.NewBuilder(pipeline.WithK(-3))
		convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
	})
}
