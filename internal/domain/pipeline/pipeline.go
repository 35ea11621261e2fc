// Package pipeline chains cleaning, feature derivation, labeling and the
// match-level split into one dataset build.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pvnet/internal/domain/cleaning"
	"github.com/okian/pvnet/internal/domain/features"
	"github.com/okian/pvnet/internal/domain/labeling"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/split"
	"github.com/okian/pvnet/pkg/logger"
	"github.com/okian/pvnet/pkg/metrics"
)

// Stage names used in logs and metrics.
const (
	StageClean    = "clean"
	StageFeatures = "features"
	StageLabels   = "labels"
	StageSplit    = "split"
)

// Pipeline builds labeled, split datasets from raw events.
type Pipeline struct {
	k            int
	fractions    split.Fractions
	seed         int64
	labelWorkers int
	log          logger.Logger
}

// New returns a Pipeline with the given options applied over the defaults
// (k=10, 70/15/15, seed 42, serial labeling).
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		k:            labeling.DefaultK,
		fractions:    split.DefaultFractions(),
		seed:         split.DefaultSeed,
		labelWorkers: 1,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.k < 0 {
		return nil, &model.ConfigurationError{Field: "k", Reason: fmt.Sprintf("must be >= 0, got %d", p.k)}
	}
	if p.labelWorkers < 1 {
		return nil, &model.ConfigurationError{Field: "label_workers", Reason: fmt.Sprintf("must be >= 1, got %d", p.labelWorkers)}
	}
	if err := p.fractions.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// K returns the configured look-ahead window.
func (p *Pipeline) K() int { return p.k }

// Seed returns the configured split seed.
func (p *Pipeline) Seed() int64 { return p.seed }

// Fractions returns the configured split fractions.
func (p *Pipeline) Fractions() split.Fractions { return p.fractions }

// Dataset is the output of one run.
type Dataset struct {
	K         int
	Seed      int64
	Fractions split.Fractions
	Scheme    cleaning.Scheme

	// Rows holds every labeled row in cleaned order.
	Rows   []model.LabeledRow
	Splits split.Result[model.LabeledRow]

	Summary Summary
}

// Run cleans raw, derives features, labels every row and splits by match.
func (p *Pipeline) Run(ctx context.Context, raw []model.RawEvent) (*Dataset, error) {
	ds, err := p.run(ctx, raw)
	if err != nil {
		metrics.RecordPipelineRun("error")
		metrics.RecordErrorByComponent("pipeline", errorType(err))
		p.log.Error(ctx, "pipeline run failed", logger.Int("raw_events", len(raw)), logger.Error(err))
		return nil, err
	}
	metrics.RecordPipelineRun("ok")
	p.publish(ds)
	p.log.Info(ctx, "pipeline run complete",
		logger.Int("rows", len(ds.Rows)),
		logger.String("scheme", string(ds.Scheme)),
		logger.Int("train_matches", ds.Summary.Splits[split.Train].Matches),
		logger.Int("val_matches", ds.Summary.Splits[split.Val].Matches),
		logger.Int("test_matches", ds.Summary.Splits[split.Test].Matches),
		logger.Float64("shot_rate", ds.Summary.ShotRate),
		logger.Float64("goal_rate", ds.Summary.GoalRate),
	)
	return ds, nil
}

func (p *Pipeline) run(ctx context.Context, raw []model.RawEvent) (*Dataset, error) {
	var cleaned cleaning.Result
	err := p.stage(ctx, StageClean, func() (int, error) {
		var err error
		cleaned, err = cleaning.Clean(raw)
		return len(cleaned.Events), err
	})
	if err != nil {
		return nil, err
	}

	var rows []model.FeatureRow
	err = p.stage(ctx, StageFeatures, func() (int, error) {
		rows = features.Build(cleaned.Events)
		return len(rows), nil
	})
	if err != nil {
		return nil, err
	}

	var labeled []model.LabeledRow
	err = p.stage(ctx, StageLabels, func() (int, error) {
		var err error
		labeled, err = labeling.AddFutureLabels(ctx, rows, p.k, labeling.WithWorkers(p.labelWorkers))
		return len(labeled), err
	})
	if err != nil {
		return nil, err
	}

	var parts split.Result[model.LabeledRow]
	err = p.stage(ctx, StageSplit, func() (int, error) {
		var err error
		parts, err = split.ByMatch(labeled, p.fractions, p.seed)
		return len(parts.Assignment), err
	})
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		K:         p.k,
		Seed:      p.seed,
		Fractions: p.fractions,
		Scheme:    cleaned.Scheme,
		Rows:      labeled,
		Splits:    parts,
	}
	ds.Summary = Summarize(ds)
	ds.Summary.MalformedLocations = CountMalformedLocations(cleaned.Events)
	return ds, nil
}

// stage times fn, logs its output size and records its latency.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	n, err := fn()
	elapsed := time.Since(start)
	metrics.RecordStageLatency(name, float64(elapsed.Microseconds())/1000)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.Debug(ctx, "stage complete", logger.String("stage", name), logger.Int("rows", n), logger.Duration("took", elapsed))
	return nil
}

func (p *Pipeline) publish(ds *Dataset) {
	metrics.RecordRowsLabeled(len(ds.Rows))
	metrics.RecordMalformedLocations(ds.Summary.MalformedLocations)
	for _, n := range split.Names {
		metrics.UpdateSplitMatches(string(n), ds.Summary.Splits[n].Matches)
	}
	metrics.UpdateLabelPositiveRate(model.LabelColumns[0], ds.Summary.ShotRate)
	metrics.UpdateLabelPositiveRate(model.LabelColumns[1], ds.Summary.GoalRate)
}

// CountMalformedLocations counts location values that are set but are not a
// numeric pair. They become undefined geometry rather than an error.
func CountMalformedLocations(events []model.Event) int {
	n := 0
	for _, ev := range events {
		for _, loc := range []any{ev.Location, features.ResolveEndLocation(ev)} {
			if loc == nil {
				continue
			}
			if _, ok := features.ExtractXY(loc); !ok {
				n++
			}
		}
	}
	return n
}

func errorType(err error) string {
	switch {
	case errors.Is(err, model.ErrSchema):
		return "schema"
	case errors.Is(err, model.ErrConfiguration):
		return "configuration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal"
}
