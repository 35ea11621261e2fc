// Package labeling computes look-ahead shot and goal labels per possession.
package labeling

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pvnet/internal/domain/model"
)

// DefaultK is the default look-ahead window length.
const DefaultK = 10

// Option configures AddFutureLabels.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers labels up to n possession groups concurrently. Values below 2 run serially.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Group is one possession's row positions in temporal order.
type Group struct {
	Key     model.PossessionKey
	Indices []int
}

// Groups partitions rows by (match_id, possession) preserving first-seen
// group order and row order. Rows without a match or possession are skipped.
func Groups[R interface {
	PossessionKey() (model.PossessionKey, bool)
}](rows []R) []Group {
	pos := make(map[model.PossessionKey]int)
	var groups []Group
	for i, r := range rows {
		key, ok := r.PossessionKey()
		if !ok {
			continue
		}
		g, seen := pos[key]
		if !seen {
			g = len(groups)
			pos[key] = g
			groups = append(groups, Group{Key: key})
		}
		groups[g].Indices = append(groups[g].Indices, i)
	}
	return groups
}

// AddFutureLabels marks each row with whether a Shot (shot_within_k) or a
// Shot with outcome Goal (goal_within_k) occurs among the next k rows of the
// same possession, strictly after the row. Windows never cross a possession
// or match boundary. Rows must already be in temporal order.
func AddFutureLabels(ctx context.Context, rows []model.FeatureRow, k int, opts ...Option) ([]model.LabeledRow, error) {
	if k < 0 {
		return nil, &model.ConfigurationError{Field: "k", Reason: fmt.Sprintf("must be >= 0, got %d", k)}
	}
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]model.LabeledRow, len(rows))
	for i, r := range rows {
		out[i] = model.LabeledRow{FeatureRow: r}
	}

	groups := Groups(rows)
	if o.workers < 2 {
		for _, g := range groups {
			labelGroup(rows, out, g.Indices, k)
		}
		return out, nil
	}

	// Groups own disjoint output slots, so they can be labeled concurrently.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)
	for _, g := range groups {
		idx := g.Indices
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			labelGroup(rows, out, idx, k)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("label possessions: %w", err)
	}
	return out, nil
}

// labelGroup scans one group backwards tracking the nearest later shot and
// goal, so each row is decided in O(1).
func labelGroup(rows []model.FeatureRow, out []model.LabeledRow, idx []int, k int) {
	nextShot, nextGoal := -1, -1
	for t := len(idx) - 1; t >= 0; t-- {
		var l model.Labels
		if nextShot >= 0 && nextShot-t <= k {
			l.ShotWithinK = 1
		}
		if nextGoal >= 0 && nextGoal-t <= k {
			l.GoalWithinK = 1
		}
		out[idx[t]].Labels = l

		ev := rows[idx[t]].Event
		if ev.IsShot() {
			nextShot = t
		}
		if ev.IsGoal() {
			nextGoal = t
		}
	}
}
