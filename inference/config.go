package inference

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/progress"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/selection"
)

const (
	DefaultWorkers       = 3
	DefaultBatchSize     = 1000
	DefaultProgressEvery = 50
)

// DefaultUnitRetry is the per-concept retry budget: two attempts, ten
// seconds apart.
var DefaultUnitRetry = retry.Fixed(2, 10*time.Second)

// Config holds the tunables of a batch run.
type Config struct {
	// Workers is the number of concepts processed concurrently.
	Workers int

	// BatchSize is the number of passages per classifier call. A value of
	// 1 classifies passage by passage.
	BatchSize int

	// ProgressEvery reports unit progress every N batches and on the last one.
	ProgressEvery int

	// Selection decides which passages are classified for each concept.
	Selection selection.Policy

	// UnitRetry is the retry budget for recoverable unit failures.
	UnitRetry retry.Policy

	// NormalizeConceptEmbedding scales concept vectors to unit length
	// before scoring, matching normalized passage embeddings.
	NormalizeConceptEmbedding bool
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Workers:                   DefaultWorkers,
		BatchSize:                 DefaultBatchSize,
		ProgressEvery:             DefaultProgressEvery,
		Selection:                 selection.DefaultPolicy(),
		UnitRetry:                 DefaultUnitRetry,
		NormalizeConceptEmbedding: true,
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: inference config: Workers must be positive, got %d", core.ErrValidation, c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: inference config: BatchSize must be positive, got %d", core.ErrValidation, c.BatchSize)
	}
	if c.ProgressEvery < 1 {
		return fmt.Errorf("%w: inference config: ProgressEvery must be positive, got %d", core.ErrValidation, c.ProgressEvery)
	}
	if c.UnitRetry.MaxAttempts < 1 {
		return fmt.Errorf("%w: inference config: UnitRetry.MaxAttempts must be positive", core.ErrValidation)
	}
	return c.Selection.Validate()
}

// Observer receives measurements from work units. *metrics.Metrics
// satisfies it.
type Observer interface {
	ObserveConcept(status core.Status, duration time.Duration)
	ObserveSelection(selected int, underfilled bool)
}

type nopObserver struct{}

func (nopObserver) ObserveConcept(core.Status, time.Duration) {}
func (nopObserver) ObserveSelection(int, bool)                {}

type options struct {
	config   Config
	reporter progress.Reporter
	observer Observer
	logger   *slog.Logger
	seed     uint64
}

// Option configures a Unit or an Orchestrator.
type Option func(*options)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithReporter sets where progress is reported. Default discards it.
func WithReporter(r progress.Reporter) Option {
	return func(o *options) {
		o.reporter = progress.OrNop(r)
	}
}

// WithObserver sets the metrics sink. Default discards measurements.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			obs = nopObserver{}
		}
		o.observer = obs
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// WithSeed makes the order of published predictions reproducible.
// Without it every unit shuffles with a random seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		config:   DefaultConfig(),
		reporter: progress.Nop,
		observer: nopObserver{},
		logger:   slog.Default(),
		seed:     rand.Uint64(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return options{}, err
	}
	return o, nil
}
