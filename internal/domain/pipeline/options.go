package pipeline

import (
	"github.com/okian/pvnet/internal/domain/split"
	"github.com/okian/pvnet/pkg/logger"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithK sets the look-ahead window length.
func WithK(k int) Option {
	return func(p *Pipeline) {
		p.k = k
	}
}

// WithFractions sets the train/val/test match fractions.
func WithFractions(f split.Fractions) Option {
	return func(p *Pipeline) {
		p.fractions = f
	}
}

// WithSeed sets the split shuffle seed.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) {
		p.seed = seed
	}
}

// WithLabelWorkers labels possession groups on up to n goroutines.
func WithLabelWorkers(n int) Option {
	return func(p *Pipeline) {
		p.labelWorkers = n
	}
}

// WithLogger sets the logger used for stage and run logs.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}
