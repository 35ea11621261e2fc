package pipeline

import (
	"context"
	"slices"
	"time"

	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/split"
)

// Params overrides pipeline settings for one build. Nil fields keep the base value.
type Params struct {
	K         *int             `json:"k,omitempty"`
	Seed      *int64           `json:"seed,omitempty"`
	Fractions *split.Fractions `json:"fractions,omitempty"`
}

// Options converts the set fields into pipeline options.
func (p Params) Options() []Option {
	var opts []Option
	if p.K != nil {
		opts = append(opts, WithK(*p.K))
	}
	if p.Seed != nil {
		opts = append(opts, WithSeed(*p.Seed))
	}
	if p.Fractions != nil {
		opts = append(opts, WithFractions(*p.Fractions))
	}
	return opts
}

// Job is one queued dataset build.
type Job struct {
	ID        string
	RequestID string
	Events    []model.RawEvent
	Params    Params
	Submitted time.Time
}

// Builder runs jobs on pipelines configured from base options plus the job's overrides.
type Builder struct {
	base []Option
}

// NewBuilder validates the base options and returns a Builder.
func NewBuilder(base ...Option) (*Builder, error) {
	if _, err := New(base...); err != nil {
		return nil, err
	}
	return &Builder{base: base}, nil
}

// Validate reports whether params produce a valid pipeline.
func (b *Builder) Validate(params Params) error {
	_, err := New(b.options(params)...)
	return err
}

// Build runs the job's events through a pipeline.
func (b *Builder) Build(ctx context.Context, job Job) (*Dataset, error) {
	p, err := New(b.options(job.Params)...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, job.Events)
}

func (b *Builder) options(params Params) []Option {
	return append(slices.Clone(b.base), params.Options()...)
}
