// Package config defines process configuration and its loading.
package config

import (
	"runtime"

	"github.com/okian/pvnet/internal/domain/labeling"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/internal/domain/split"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// KFutureEvents is the look-ahead window for labels.
	KFutureEvents int `koanf:"k_future_events"`

	// Match fractions per split. They must sum to 1.
	TrainFrac float64 `koanf:"train_frac"`
	ValFrac   float64 `koanf:"val_frac"`
	TestFrac  float64 `koanf:"test_frac"`

	// RandomSeed seeds the match shuffle.
	RandomSeed int64 `koanf:"random_seed"`

	// LabelWorkers labels possession groups concurrently when above 1.
	LabelWorkers int `koanf:"label_workers"`

	// QueueSize bounds the pending build jobs.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of build workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the remembered request ids.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxDatasets bounds the datasets kept in memory.
	MaxDatasets int `koanf:"max_datasets"`

	// MaxEventsPerRequest caps the raw events accepted by POST /datasets.
	MaxEventsPerRequest int `koanf:"max_events_per_request"`

	// MaxRequestBytes caps the body size of POST /datasets.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// ArtifactsDir is where pvnet build writes its files.
	ArtifactsDir string `koanf:"artifacts_dir"`
}

// New creates a Config with defaults.
func New() *Config {
	fr := split.DefaultFractions()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		KFutureEvents:       labeling.DefaultK,
		TrainFrac:           fr.Train,
		ValFrac:             fr.Val,
		TestFrac:            fr.Test,
		RandomSeed:          split.DefaultSeed,
		LabelWorkers:        1,
		QueueSize:           64,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          10_000,
		MaxDatasets:         32,
		MaxEventsPerRequest: 2_000_000,
		MaxRequestBytes:     512 << 20,
		ArtifactsDir:        "./artifacts",
	}
}

// Fractions returns the configured split fractions.
func (c *Config) Fractions() split.Fractions {
	return split.Fractions{Train: c.TrainFrac, Val: c.ValFrac, Test: c.TestFrac}
}

// PipelineOptions returns the pipeline settings carried by c.
func (c *Config) PipelineOptions() []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithK(c.KFutureEvents),
		pipeline.WithFractions(c.Fractions()),
		pipeline.WithSeed(c.RandomSeed),
		pipeline.WithLabelWorkers(c.LabelWorkers),
	}
}
