// Package features derives temporal, spatial and outcome features per event.
//
// Every function here is row-wise and returns new slices with the same length
// and order as its input. Undefined geometry stays nil until Build applies the
// single terminal fill.
package features

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/okian/pvnet/internal/domain/model"
)

// GoalCenter is the centre of the attacked goal in pitch coordinates.
var GoalCenter = r2.Point{X: model.PitchLength, Y: model.PitchWidth / 2}

// endLocationSources lists the end-location fields in priority order.
// The first populated one wins when malformed input sets several.
var endLocationSources = []func(model.Event) any{
	func(e model.Event) any { return e.PassEndLocation },
	func(e model.Event) any { return e.CarryEndLocation },
	func(e model.Event) any { return e.ShotEndLocation },
}

// ResolveEndLocation returns the first populated end location in
// pass, carry, shot order, or nil.
func ResolveEndLocation(ev model.Event) any {
	for _, src := range endLocationSources {
		if v := src(ev); v != nil {
			return v
		}
	}
	return nil
}

// ExtractXY reads a location value. Sequences whose first two elements are
// numeric yield a point; anything else is undefined.
func ExtractXY(loc any) (r2.Point, bool) {
	var x, y any
	switch v := loc.(type) {
	case []any:
		if len(v) < 2 {
			return r2.Point{}, false
		}
		x, y = v[0], v[1]
	case []float64:
		if len(v) < 2 {
			return r2.Point{}, false
		}
		x, y = v[0], v[1]
	case r2.Point:
		return v, true
	default:
		return r2.Point{}, false
	}
	fx, okX := model.Float(x)
	fy, okY := model.Float(y)
	if !okX || !okY {
		return r2.Point{}, false
	}
	return r2.Point{X: fx, Y: fy}, true
}

// AddTemporal derives minute, second and time_seconds. Unset clock values count as zero.
func AddTemporal(events []model.Event) []model.Temporal {
	out := make([]model.Temporal, len(events))
	for i, ev := range events {
		m := clockPart(ev.Minute)
		s := clockPart(ev.Second)
		out[i] = model.Temporal{Minute: m, Second: s, TimeSeconds: float64(m*60 + s)}
	}
	return out
}

func clockPart(v *float64) int {
	if v == nil {
		return 0
	}
	return int(*v)
}

// AddSpatial derives start/end coordinates, distance and angle to goal and
// displacement. Values are nil when their inputs are undefined.
func AddSpatial(events []model.Event) []model.Spatial {
	out := make([]model.Spatial, len(events))
	for i, ev := range events {
		out[i] = spatial(ev)
	}
	return out
}

func spatial(ev model.Event) model.Spatial {
	var s model.Spatial

	start, okStart := ExtractXY(ev.Location)
	if okStart {
		s.StartX, s.StartY = ptr(start.X), ptr(start.Y)
		toGoal := GoalCenter.Sub(start)
		s.DistToGoal = ptr(toGoal.Norm())
		s.AngleToGoalCenter = ptr(math.Atan2(toGoal.Y, toGoal.X))
	}

	end, okEnd := ExtractXY(ResolveEndLocation(ev))
	if okEnd {
		s.EndX, s.EndY = ptr(end.X), ptr(end.Y)
	}

	if okStart && okEnd {
		d := end.Sub(start)
		s.DX, s.DY = ptr(d.X), ptr(d.Y)
		s.ProgressX = d.X
	}
	return s
}

// AddOutcomes derives the type indicators and the pass/dribble success flags.
// An unset pass or dribble outcome means the action was completed; this
// convention is specific to those two outcome fields.
func AddOutcomes(events []model.Event) []model.Indicators {
	out := make([]model.Indicators, len(events))
	for i, ev := range events {
		ind := model.Indicators{
			IsPass:    flag(ev.TypeName == model.TypePass),
			IsCarry:   flag(ev.TypeName == model.TypeCarry),
			IsDribble: flag(ev.TypeName == model.TypeDribble),
			IsShot:    flag(ev.TypeName == model.TypeShot),
		}
		ind.PassSuccess = flag(ind.IsPass == 1 && ev.PassOutcome == nil)
		ind.DribbleSuccess = flag(ind.IsDribble == 1 && ev.DribbleOutcome == nil)
		out[i] = ind
	}
	return out
}

// Build runs every deriver and then fills undefined numeric features with 0.
func Build(events []model.Event) []model.FeatureRow {
	temporal := AddTemporal(events)
	spatial := AddSpatial(events)
	indicators := AddOutcomes(events)

	rows := make([]model.FeatureRow, len(events))
	for i, ev := range events {
		rows[i] = model.FeatureRow{
			Event:    ev,
			Features: fill(temporal[i], spatial[i], indicators[i]),
		}
	}
	return rows
}

// fill is the terminal step that replaces undefined values with 0.
func fill(t model.Temporal, s model.Spatial, ind model.Indicators) model.Features {
	return model.Features{
		Temporal:          t,
		Indicators:        ind,
		StartX:            orZero(s.StartX),
		StartY:            orZero(s.StartY),
		EndX:              orZero(s.EndX),
		EndY:              orZero(s.EndY),
		DistToGoal:        orZero(s.DistToGoal),
		AngleToGoalCenter: orZero(s.AngleToGoalCenter),
		DX:                orZero(s.DX),
		DY:                orZero(s.DY),
		ProgressX:         s.ProgressX,
	}
}

func ptr(v float64) *float64 { return &v }

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
