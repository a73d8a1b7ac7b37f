// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package vibecheck runs concept inference over a pre-embedded passage
// corpus held in an object store.
//
// A Pipeline loads the shared dataset once, resolves the concepts to
// process and fans them out to a bounded pool of work units. Each unit
// selects the passages most similar to its concept, classifies them and
// publishes the labelled passages and summary statistics back to the store.
package vibecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/concepts"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/inference"
	"github.com/poiesic/vibecheck/progress"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/storage"
)

// EmbedderFunc returns an embedder for the named embedding model.
type EmbedderFunc func(model string) (ai.Embedder, error)

// Config holds the run settings.
type Config struct {
	// Inference controls concurrency, batching and passage selection.
	Inference inference.Config

	// LoadRetry is the retry budget for reading run inputs.
	LoadRetry retry.Policy
}

// DefaultConfig returns the production run settings.
func DefaultConfig() Config {
	return Config{
		Inference: inference.DefaultConfig(),
		LoadRetry: corpus.DefaultRetry,
	}
}

// Pipeline wires the loader, resolver and inference orchestrator together.
type Pipeline struct {
	store       storage.ObjectStore
	embedderFor EmbedderFunc
	classifiers ai.ClassifierFactory
	lookup      concepts.Lookup
	loader      *corpus.Loader
	resolver    *concepts.Resolver
	inference   []inference.Option
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	config   Config
	reporter progress.Reporter
	observer inference.Observer
	seed     *uint64
	logger   *slog.Logger
}

// WithConfig replaces the run settings.
func WithConfig(cfg Config) Option {
	return func(o *pipelineOptions) {
		o.config = cfg
	}
}

// WithReporter sets the progress reporter for concept and overall progress.
func WithReporter(r progress.Reporter) Option {
	return func(o *pipelineOptions) {
		o.reporter = r
	}
}

// WithObserver records per-concept outcomes, typically into metrics.
func WithObserver(obs inference.Observer) Option {
	return func(o *pipelineOptions) {
		o.observer = obs
	}
}

// WithSeed fixes the shuffle seed so published prediction order is reproducible.
func WithSeed(seed uint64) Option {
	return func(o *pipelineOptions) {
		o.seed = &seed
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// New creates a pipeline. A nil lookup serves concept metadata from
// concepts.yml in store.
func New(
	store storage.ObjectStore,
	embedderFor EmbedderFunc,
	classifiers ai.ClassifierFactory,
	lookup concepts.Lookup,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, inference.ErrStoreRequired
	}
	if embedderFor == nil {
		return nil, inference.ErrEmbedderRequired
	}
	if classifiers == nil {
		return nil, inference.ErrClassifierFactoryRequired
	}

	o := &pipelineOptions{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.config.Inference.Validate(); err != nil {
		return nil, err
	}
	if lookup == nil {
		lookup = concepts.NewCatalogLookup(store)
	}

	loader, err := corpus.NewLoader(store,
		corpus.WithRetry(o.config.LoadRetry),
		corpus.WithLogger(o.logger.With("component", "corpus-loader")))
	if err != nil {
		return nil, err
	}

	inferenceOpts := []inference.Option{
		inference.WithConfig(o.config.Inference),
		inference.WithReporter(o.reporter),
		inference.WithObserver(o.observer),
		inference.WithLogger(o.logger),
	}
	if o.seed != nil {
		inferenceOpts = append(inferenceOpts, inference.WithSeed(*o.seed))
	}

	return &Pipeline{
		store:       store,
		embedderFor: embedderFor,
		classifiers: classifiers,
		lookup:      lookup,
		loader:      loader,
		resolver:    concepts.NewResolver(store, concepts.WithRetry(o.config.LoadRetry)),
		inference:   inferenceOpts,
		logger:      o.logger,
	}, nil
}

// NewFromProvider creates a pipeline whose embedders and classifiers come
// from provider.
func NewFromProvider(store storage.ObjectStore, provider ai.AIProvider, lookup concepts.Lookup, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, errors.New("AI provider required")
	}
	return New(store, provider.Embedder, provider.Classifiers(), lookup, opts...)
}

// Run resolves the concepts to process, loads the dataset and runs every
// concept to completion.
//
// In concepts.ModeConfig the concept list is read from concepts.yml and ids
// is ignored. In concepts.ModeCustom exactly ids are processed. The
// returned report holds one outcome per concept; Run only fails when the
// run cannot start.
func (p *Pipeline) Run(ctx context.Context, mode concepts.Mode, ids []string) (*inference.Report, error) {
	var custom []string
	switch mode {
	case concepts.ModeConfig:
	case concepts.ModeCustom:
		custom = append([]string{}, ids...)
	default:
		return nil, fmt.Errorf("%w: unknown concept mode %q", core.ErrValidation, mode)
	}

	// Resolve first: a custom list never touches the store.
	resolved, mode, err := p.resolver.Resolve(ctx, custom)
	if err != nil {
		return nil, fmt.Errorf("resolve concepts: %w", err)
	}
	p.logger.Info("processing concepts", "mode", mode, "count", len(resolved))

	ds, err := p.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	embedder, err := p.embedderFor(ds.Metadata.ModelName)
	if err != nil {
		return nil, fmt.Errorf("create embedder for %s: %w", ds.Metadata.ModelName, err)
	}

	unit, err := inference.NewUnit(p.lookup, embedder, p.classifiers, p.store, p.inference...)
	if err != nil {
		return nil, err
	}
	orch, err := inference.NewOrchestrator(unit, p.inference...)
	if err != nil {
		return nil, err
	}
	defer orch.Release()

	report, err := orch.RunBatch(ctx, resolved, ds)
	if err != nil {
		return nil, err
	}
	report.LogSummary(p.logger)
	return report, nil
}
