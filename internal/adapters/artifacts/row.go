package artifacts

import (
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/split"
)

// Row is the flat, columnar form of a labeled event. Column names follow
// the dashboard contract; optional columns are null when the source value
// was unset.
type Row struct {
	EventID            string  `parquet:"event_id" json:"event_id"`
	CompetitionID      *string `parquet:"competition_id,optional" json:"competition_id"`
	SeasonID           *string `parquet:"season_id,optional" json:"season_id"`
	MatchID            *string `parquet:"match_id,optional" json:"match_id"`
	Split              string  `parquet:"split" json:"split"`
	Period             *int64  `parquet:"period,optional" json:"period"`
	Index              *int64  `parquet:"index,optional" json:"index"`
	Possession         *int64  `parquet:"possession,optional" json:"possession"`
	PossessionID       *string `parquet:"possession_id,optional" json:"possession_id"`
	Timestamp          *string `parquet:"timestamp,optional" json:"timestamp"`
	TypeName           string  `parquet:"type_name" json:"type_name"`
	TeamName           string  `parquet:"team_name" json:"team_name"`
	PossessionTeamName string  `parquet:"possession_team_name" json:"possession_team_name"`
	PlayerName         string  `parquet:"player_name" json:"player_name"`

	Minute            int64   `parquet:"minute" json:"minute"`
	Second            int64   `parquet:"second" json:"second"`
	TimeSeconds       float64 `parquet:"time_seconds" json:"time_seconds"`
	StartX            float64 `parquet:"start_x" json:"start_x"`
	StartY            float64 `parquet:"start_y" json:"start_y"`
	EndX              float64 `parquet:"end_x" json:"end_x"`
	EndY              float64 `parquet:"end_y" json:"end_y"`
	DistToGoal        float64 `parquet:"dist_to_goal" json:"dist_to_goal"`
	AngleToGoalCenter float64 `parquet:"angle_to_goal_center" json:"angle_to_goal_center"`
	DX                float64 `parquet:"dx" json:"dx"`
	DY                float64 `parquet:"dy" json:"dy"`
	ProgressX         float64 `parquet:"progress_x" json:"progress_x"`
	IsPass            int32   `parquet:"is_pass" json:"is_pass"`
	IsCarry           int32   `parquet:"is_carry" json:"is_carry"`
	IsDribble         int32   `parquet:"is_dribble" json:"is_dribble"`
	IsShot            int32   `parquet:"is_shot" json:"is_shot"`
	PassSuccess       int32   `parquet:"pass_success" json:"pass_success"`
	DribbleSuccess    int32   `parquet:"dribble_success" json:"dribble_success"`

	ShotWithinK int32 `parquet:"shot_within_k" json:"shot_within_k"`
	GoalWithinK int32 `parquet:"goal_within_k" json:"goal_within_k"`
}

// FromLabeled converts labeled rows of one split into flat rows.
func FromLabeled(rows []model.LabeledRow, s split.Name) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		f := r.Features
		out[i] = Row{
			EventID:            r.ID,
			CompetitionID:      r.CompetitionID,
			SeasonID:           r.SeasonID,
			MatchID:            r.MatchID,
			Split:              string(s),
			Period:             widen(r.Period),
			Index:              widen(r.Index),
			Possession:         widen(r.PossessionNumber()),
			PossessionID:       r.Possession,
			Timestamp:          r.Timestamp,
			TypeName:           r.TypeName,
			TeamName:           r.TeamName,
			PossessionTeamName: r.PossessionTeamName,
			PlayerName:         r.PlayerName,
			Minute:             int64(f.Minute),
			Second:             int64(f.Second),
			TimeSeconds:        f.TimeSeconds,
			StartX:             f.StartX,
			StartY:             f.StartY,
			EndX:               f.EndX,
			EndY:               f.EndY,
			DistToGoal:         f.DistToGoal,
			AngleToGoalCenter:  f.AngleToGoalCenter,
			DX:                 f.DX,
			DY:                 f.DY,
			ProgressX:          f.ProgressX,
			IsPass:             int32(f.IsPass),
			IsCarry:            int32(f.IsCarry),
			IsDribble:          int32(f.IsDribble),
			IsShot:             int32(f.IsShot),
			PassSuccess:        int32(f.PassSuccess),
			DribbleSuccess:     int32(f.DribbleSuccess),
			ShotWithinK:        int32(r.Labels.ShotWithinK),
			GoalWithinK:        int32(r.Labels.GoalWithinK),
		}
	}
	return out
}

func widen(v *int) *int64 {
	if v == nil {
		return nil
	}
	w := int64(*v)
	return &w
}
