package model

// Pitch geometry in StatsBomb units: origin bottom-left, goal centre at (120, 40).
const (
	PitchLength = 120.0
	PitchWidth  = 80.0
)

// FeatureColumns names the numeric feature matrix columns, in Vector order.
var FeatureColumns = []string{
	"start_x", "start_y", "end_x", "end_y",
	"dist_to_goal", "angle_to_goal_center",
	"dx", "dy", "progress_x", "time_seconds",
	"is_pass", "is_carry", "is_dribble", "is_shot",
	"pass_success", "dribble_success",
}

// LabelColumns names the label matrix columns, in Labels.Vector order.
var LabelColumns = []string{"shot_within_k", "goal_within_k"}

// Spatial holds geometry before the terminal fill. Nil means undefined.
type Spatial struct {
	StartX            *float64
	StartY            *float64
	EndX              *float64
	EndY              *float64
	DistToGoal        *float64
	AngleToGoalCenter *float64
	DX                *float64
	DY                *float64
	// ProgressX is DX with missing treated as zero.
	ProgressX float64
}

// Temporal holds clock features.
type Temporal struct {
	Minute      int
	Second      int
	TimeSeconds float64
}

// Indicators holds 0/1 type and outcome flags.
type Indicators struct {
	IsPass         int
	IsCarry        int
	IsDribble      int
	IsShot         int
	PassSuccess    int
	DribbleSuccess int
}

// Features are the model-ready numeric columns after the terminal fill.
type Features struct {
	Temporal
	Indicators

	StartX            float64
	StartY            float64
	EndX              float64
	EndY              float64
	DistToGoal        float64
	AngleToGoalCenter float64
	DX                float64
	DY                float64
	ProgressX         float64
}

// Vector returns the features in FeatureColumns order.
func (f Features) Vector() []float64 {
	return []float64{
		f.StartX, f.StartY, f.EndX, f.EndY,
		f.DistToGoal, f.AngleToGoalCenter,
		f.DX, f.DY, f.ProgressX, f.TimeSeconds,
		float64(f.IsPass), float64(f.IsCarry), float64(f.IsDribble), float64(f.IsShot),
		float64(f.PassSuccess), float64(f.DribbleSuccess),
	}
}

// FeatureRow is a cleaned event with its derived features.
type FeatureRow struct {
	Event
	Features Features
}

// Labels are the look-ahead targets of one event.
type Labels struct {
	ShotWithinK int
	GoalWithinK int
}

// Vector returns the labels in LabelColumns order.
func (l Labels) Vector() []float64 {
	return []float64{float64(l.ShotWithinK), float64(l.GoalWithinK)}
}

// LabeledRow is a feature row with its look-ahead labels.
type LabeledRow struct {
	FeatureRow
	Labels Labels
}
