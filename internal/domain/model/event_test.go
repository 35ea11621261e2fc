package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	model "github.com/okian/pvnet/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func strPtr(s string) *string { return &s }

func TestEventKeys(t *testing.T) {
	convey.Convey("Given a cleaned event", t, func() {
		ev := model.Event{MatchID: strPtr("3788741"), Possession: strPtr("7")}

		convey.Convey("When both match and possession are set", func() {
			key, ok := ev.PossessionKey()

			convey.Convey("Then the possession key is usable", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(key, convey.ShouldResemble, model.PossessionKey{MatchID: "3788741", Possession: "7"})
				convey.So(*ev.PossessionNumber(), convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the possession is a non-numeric identifier", func() {
			ev.Possession = strPtr("p12")
			key, ok := ev.PossessionKey()

			convey.Convey("Then it still forms a group but has no number", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(key.Possession, convey.ShouldEqual, "p12")
				convey.So(ev.PossessionNumber(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the possession is unset", func() {
			ev.Possession = nil
			_, ok := ev.PossessionKey()

			convey.Convey("Then it has no group", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the match is unset", func() {
			ev.MatchID = nil
			_, ok := ev.MatchKey()

			convey.Convey("Then it has no match key", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestEventShotAndGoal(t *testing.T) {
	convey.Convey("Given shot events", t, func() {
		convey.Convey("A saved shot is a shot but not a goal", func() {
			ev := model.Event{TypeName: model.TypeShot, ShotOutcome: strPtr("Saved")}
			convey.So(ev.IsShot(), convey.ShouldBeTrue)
			convey.So(ev.IsGoal(), convey.ShouldBeFalse)
		})

		convey.Convey("A shot without an outcome is never a goal", func() {
			ev := model.Event{TypeName: model.TypeShot}
			convey.So(ev.IsGoal(), convey.ShouldBeFalse)
		})

		convey.Convey("A Goal outcome on a non-shot does not count", func() {
			ev := model.Event{TypeName: model.TypePass, ShotOutcome: strPtr("Goal")}
			convey.So(ev.IsGoal(), convey.ShouldBeFalse)
		})

		convey.Convey("A shot with outcome Goal is a goal", func() {
			ev := model.Event{TypeName: model.TypeShot, ShotOutcome: strPtr("Goal")}
			convey.So(ev.IsGoal(), convey.ShouldBeTrue)
		})
	})
}

func TestValueCoercion(t *testing.T) {
	convey.Convey("Given raw values of mixed types", t, func() {
		convey.Convey("Float accepts numbers and numeric strings", func() {
			f, ok := model.Float(json.Number("61.5"))
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(f, convey.ShouldEqual, 61.5)

			f, ok = model.Float(" 12 ")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(f, convey.ShouldEqual, 12.0)
		})

		convey.Convey("Float rejects nil, NaN and text", func() {
			_, ok := model.Float(nil)
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = model.Float(math.NaN())
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = model.Float("left foot")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Int rejects fractional numbers", func() {
			_, ok := model.Int(2.5)
			convey.So(ok, convey.ShouldBeFalse)
			i, ok := model.Int(float64(4))
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(i, convey.ShouldEqual, 4)
		})

		convey.Convey("DisplayName stringifies identifiers directly", func() {
			convey.So(model.DisplayName(nil), convey.ShouldEqual, "")
			convey.So(model.DisplayName("Pass"), convey.ShouldEqual, "Pass")
			convey.So(model.DisplayName(float64(217)), convey.ShouldEqual, "217")
			convey.So(model.DisplayName(map[string]any{"id": float64(30), "name": "Pass"}), convey.ShouldEqual, "Pass")
			convey.So(model.DisplayName(true), convey.ShouldEqual, "true")
		})

		convey.Convey("OptionalString keeps nil distinct from empty", func() {
			convey.So(model.OptionalString(nil), convey.ShouldBeNil)
			convey.So(*model.OptionalString("Incomplete"), convey.ShouldEqual, "Incomplete")
		})
	})
}

func TestErrors(t *testing.T) {
	convey.Convey("Typed errors match their sentinels", t, func() {
		var err error = &model.SchemaError{Column: "match_id"}
		convey.So(errors.Is(err, model.ErrSchema), convey.ShouldBeTrue)
		convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeFalse)
		convey.So(err.Error(), convey.ShouldContainSubstring, "match_id")

		err = &model.ConfigurationError{Field: "fractions", Reason: "must sum to 1"}
		convey.So(errors.Is(err, model.ErrConfiguration), convey.ShouldBeTrue)
	})
}

func TestVectors(t *testing.T) {
	convey.Convey("Feature and label vectors follow the column lists", t, func() {
		f := model.Features{StartX: 60, DistToGoal: 10, Indicators: model.Indicators{IsShot: 1}}
		v := f.Vector()
		convey.So(len(v), convey.ShouldEqual, len(model.FeatureColumns))
		convey.So(v[0], convey.ShouldEqual, 60.0)
		convey.So(v[4], convey.ShouldEqual, 10.0)
		convey.So(v[13], convey.ShouldEqual, 1.0)

		l := model.Labels{ShotWithinK: 1}
		convey.So(l.Vector(), convey.ShouldResemble, []float64{1, 0})
		convey.So(len(model.LabelColumns), convey.ShouldEqual, 2)
	})
}
