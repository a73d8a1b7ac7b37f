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


package inference

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/concepts"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/progress"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/selection"
	"github.com/poiesic/vibecheck/storage"
)

// Unit processes a single concept against the shared dataset.
// A Unit holds no per-concept state and may process many concepts concurrently.
type Unit struct {
	lookup      concepts.Lookup
	embedder    ai.Embedder
	classifiers ai.ClassifierFactory
	publisher   *Publisher
	executor    *Executor
	config      Config
	reporter    progress.Reporter
	observer    Observer
	seed        uint64
	logger      *slog.Logger
}

// NewUnit creates a work unit.
func NewUnit(
	lookup concepts.Lookup,
	embedder ai.Embedder,
	classifiers ai.ClassifierFactory,
	store storage.ObjectStore,
	opts ...Option,
) (*Unit, error) {
	if lookup == nil {
		return nil, ErrLookupRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if classifiers == nil {
		return nil, ErrClassifierFactoryRequired
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("component", "inference-unit")

	publisher, err := NewPublisher(store, logger)
	if err != nil {
		return nil, err
	}

	return &Unit{
		lookup:      lookup,
		embedder:    embedder,
		classifiers: classifiers,
		publisher:   publisher,
		executor:    NewExecutor(o.config.BatchSize, o.config.ProgressEvery, o.reporter, logger),
		config:      o.config,
		reporter:    o.reporter,
		observer:    o.observer,
		seed:        o.seed,
		logger:      logger,
	}, nil
}

// Process runs inference for one concept and publishes its artifacts.
//
// Recoverable failures (see core.IsRecoverable) are retried within the unit
// retry budget; if they persist the returned result has failed status and
// the error is nil. Any other error is returned as is.
func (u *Unit) Process(ctx context.Context, conceptID string, ds *corpus.Dataset) (core.ConceptResult, error) {
	if ds == nil || ds.Corpus == nil {
		return core.ConceptResult{}, ErrDatasetRequired
	}

	start := time.Now()
	logger := u.logger.With("concept_id", conceptID)
	key := progress.ConceptKey(conceptID)
	u.report(ctx, key, 0, "Processing concept "+conceptID)

	var result core.ConceptResult
	err := retry.Do(ctx, u.config.UnitRetry.Only(core.IsRecoverable), func(ctx context.Context) error {
		r, err := u.attempt(ctx, logger, key, conceptID, ds)
		if err != nil {
			logger.Warn("concept attempt failed", "err", err)
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		if !core.IsRecoverable(err) {
			u.observer.ObserveConcept(core.StatusErrored, time.Since(start))
			return core.ConceptResult{}, err
		}
		logger.Error("failed to process concept", "err", err)
		u.observer.ObserveConcept(core.StatusFailed, time.Since(start))
		return core.NewFailedResult(conceptID, ds.Corpus.Len(), err), nil
	}

	logger.Info("completed processing",
		"positive", result.NPositivePassages,
		"passages", result.NPassages,
		"elapsed", time.Since(start))
	u.report(ctx, key, 1, "Inference completed successfully")
	u.observer.ObserveConcept(core.StatusSuccess, time.Since(start))
	return result, nil
}

func (u *Unit) attempt(ctx context.Context, logger *slog.Logger, key, conceptID string, ds *corpus.Dataset) (core.ConceptResult, error) {
	concept, err := u.lookup.Lookup(ctx, conceptID)
	if err != nil {
		return core.ConceptResult{}, fmt.Errorf("lookup concept: %w", err)
	}
	logger.Info("loaded concept", "preferred_label", concept.PreferredLabel)

	classifier, err := u.classifiers.Create(ctx, concept)
	if err != nil {
		return core.ConceptResult{}, fmt.Errorf("create classifier: %w", err)
	}
	logger.Info("created classifier", "classifier", classifier.String())

	vec, err := u.embedder.EmbedText(ctx, concept.Markdown())
	if err != nil {
		return core.ConceptResult{}, fmt.Errorf("embed concept: %w", err)
	}
	if u.config.NormalizeConceptEmbedding {
		vec = selection.NormalizeVector(vec)
	}

	logger.Info("computing similarities", "passages", ds.Corpus.Len())
	sel, err := selection.Select(ds.Corpus, ds.Embeddings, vec, u.config.Selection)
	if err != nil {
		return core.ConceptResult{}, err
	}
	u.logSelection(logger, sel)
	u.observer.ObserveSelection(sel.Len(), sel.Underfilled)

	inputs := make([]core.Passage, sel.Len())
	for i, row := range sel.Rows {
		inputs[i] = ds.Corpus.Passages[row]
	}

	labelled, err := u.executor.Run(ctx, key, inputs, classifier)
	if err != nil {
		return core.ConceptResult{}, fmt.Errorf("classify passages: %w", err)
	}
	for i := range labelled {
		labelled[i].Metadata[core.ColumnSimilarity] = sel.Similarities[i]
	}
	logger.Info("generated labelled passages", "count", len(labelled))

	stats := core.ComputeStats(labelled)

	rng := u.rngFor(conceptID)
	rng.Shuffle(len(labelled), func(i, j int) {
		labelled[i], labelled[j] = labelled[j], labelled[i]
	})

	prefix := storage.OutputPrefix(conceptID, classifier.ID())
	logger.Info("publishing outputs", "prefix", prefix)
	err = u.publisher.Publish(ctx, prefix, Artifacts{
		Predictions: labelled,
		Concept:     concept,
		Classifier:  core.NewClassifierInfo(classifier.ID(), classifier.Name(), classifier.String()),
		Stats:       stats,
	})
	if err != nil {
		return core.ConceptResult{}, fmt.Errorf("publish: %w", err)
	}

	return core.ConceptResult{
		Status:            core.StatusSuccess,
		ConceptID:         conceptID,
		PreferredLabel:    concept.PreferredLabel,
		NPassages:         len(labelled),
		NPositivePassages: stats.NPositivePassages,
		Percentage:        stats.Percentage,
		OutputPrefix:      prefix,
	}, nil
}

func (u *Unit) logSelection(logger *slog.Logger, sel *selection.Selection) {
	threshold := u.config.Selection.Threshold
	logger.Info("selected passages",
		"selected", sel.Len(),
		"above_threshold", sel.AboveThreshold,
		"threshold", threshold)
	if sel.Len() > 0 {
		logger.Info("similarity range",
			"min", fmt.Sprintf("%.3f", sel.MinSimilarity),
			"max", fmt.Sprintf("%.3f", sel.MaxSimilarity))
	}
	if sel.AboveThreshold > 0 && sel.Len() > 0 {
		above := sel.SelectedAbove(threshold)
		logger.Info("above threshold in selection",
			"count", above,
			"selected", sel.Len(),
			"percent", fmt.Sprintf("%.1f", float64(above)/float64(sel.Len())*100))
	}
	if sel.Underfilled {
		logger.Warn("selection underfilled",
			"selected", sel.Len(),
			"min_passages", u.config.Selection.MinPassages)
	}
}

// rngFor returns the shuffle source for a concept. It depends only on the
// unit seed and the concept id, so output order does not depend on
// scheduling.
func (u *Unit) rngFor(conceptID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(conceptID))
	return rand.New(rand.NewPCG(u.seed, h.Sum64()))
}

func (u *Unit) report(ctx context.Context, key string, fraction float64, description string) {
	if err := u.reporter.Report(ctx, key, fraction, description); err != nil {
		u.logger.Warn("failed to report progress", "key", key, "err", err)
	}
}
