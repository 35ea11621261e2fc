package pipeline

import (
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/split"
)

// SplitSummary describes one partition.
type SplitSummary struct {
	Rows     int     `json:"rows"`
	Matches  int     `json:"matches"`
	ShotRate float64 `json:"shot_rate"`
	GoalRate float64 `json:"goal_rate"`
}

// Summary describes a dataset.
type Summary struct {
	Rows               int                         `json:"rows"`
	Matches            int                         `json:"matches"`
	Possessions        int                         `json:"possessions"`
	Scheme             string                      `json:"scheme"`
	Unassigned         int                         `json:"unassigned"`
	MalformedLocations int                         `json:"malformed_locations"`
	ShotRate           float64                     `json:"shot_rate"`
	GoalRate           float64                     `json:"goal_rate"`
	Splits             map[split.Name]SplitSummary `json:"splits"`
}

// Summarize computes row, match and label statistics for ds.
func Summarize(ds *Dataset) Summary {
	s := Summary{
		Rows:       len(ds.Rows),
		Matches:    len(ds.Splits.Assignment),
		Scheme:     string(ds.Scheme),
		Unassigned: ds.Splits.Unassigned,
		Splits:     make(map[split.Name]SplitSummary, len(split.Names)),
	}
	s.ShotRate, s.GoalRate = PositiveRates(ds.Rows)

	possessions := make(map[model.PossessionKey]struct{})
	for _, r := range ds.Rows {
		if key, ok := r.PossessionKey(); ok {
			possessions[key] = struct{}{}
		}
	}
	s.Possessions = len(possessions)

	for _, n := range split.Names {
		rows := ds.Splits.Rows(n)
		shot, goal := PositiveRates(rows)
		s.Splits[n] = SplitSummary{
			Rows:     len(rows),
			Matches:  ds.Splits.Matches(n),
			ShotRate: shot,
			GoalRate: goal,
		}
	}
	return s
}

// PositiveRates returns the share of rows with shot_within_k and goal_within_k set.
// Both are 0 for no rows.
func PositiveRates(rows []model.LabeledRow) (shot, goal float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	var s, g int
	for _, r := range rows {
		s += r.Labels.ShotWithinK
		g += r.Labels.GoalWithinK
	}
	n := float64(len(rows))
	return float64(s) / n, float64(g) / n
}

// Matrices returns the feature matrix (N x len(FeatureColumns)) and the label
// matrix (N x len(LabelColumns)) of rows, in row order.
func Matrices(rows []model.LabeledRow) (x, y [][]float64) {
	x = make([][]float64, len(rows))
	y = make([][]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Features.Vector()
		y[i] = r.Labels.Vector()
	}
	return x, y
}
