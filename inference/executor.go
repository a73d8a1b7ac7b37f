package inference

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/progress"
)

// Executor classifies passages in batches and reports progress per batch.
type Executor struct {
	batchSize     int
	progressEvery int
	reporter      progress.Reporter
	logger        *slog.Logger
}

// NewExecutor creates an executor. Non-positive sizes fall back to the defaults.
func NewExecutor(batchSize, progressEvery int, reporter progress.Reporter, logger *slog.Logger) *Executor {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if progressEvery < 1 {
		progressEvery = DefaultProgressEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		batchSize:     batchSize,
		progressEvery: progressEvery,
		reporter:      progress.OrNop(reporter),
		logger:        logger,
	}
}

// Run classifies passages and returns one labelled passage per input, in
// input order. Each labelled passage carries a copy of the input metadata.
//
// Classifiers implementing ai.BatchClassifier get one PredictBatch call per
// batch unless the batch size is 1; others are called passage by passage.
// Progress is reported under key every progressEvery batches and after the
// last batch. Reporter failures never fail the run.
func (e *Executor) Run(ctx context.Context, key string, passages []core.Passage, classifier ai.Classifier) ([]core.LabelledPassage, error) {
	out := make([]core.LabelledPassage, 0, len(passages))
	if len(passages) == 0 {
		return out, nil
	}

	batcher, canBatch := classifier.(ai.BatchClassifier)
	useBatch := canBatch && e.batchSize > 1

	nBatches := (len(passages) + e.batchSize - 1) / e.batchSize
	tracker := progress.NewTracker(e.reporter, key, nBatches, e.progressEvery)
	tracker.Start()

	e.logger.Debug("running classifier",
		"classifier", classifier.String(),
		"passages", len(passages),
		"batches", nBatches,
		"batched", useBatch)

	for start := 0; start < len(passages); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch := passages[start:min(start+e.batchSize, len(passages))]
		predictions, err := e.predict(ctx, batch, classifier, batcher, useBatch)
		if err != nil {
			return nil, err
		}

		for i, p := range batch {
			spans := predictions[i]
			if spans == nil {
				spans = []core.Span{}
			}
			metadata := maps.Clone(p.Metadata)
			if metadata == nil {
				metadata = make(map[string]any)
			}
			out = append(out, core.LabelledPassage{
				Text:     p.Text,
				Spans:    spans,
				Metadata: metadata,
			})
		}

		tracker.Increment(ctx, 1)
	}

	return out, nil
}

func (e *Executor) predict(ctx context.Context, batch []core.Passage, classifier ai.Classifier, batcher ai.BatchClassifier, useBatch bool) ([][]core.Span, error) {
	if useBatch {
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}
		predictions, err := batcher.PredictBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(predictions) != len(batch) {
			return nil, fmt.Errorf("%w: got %d for %d passages", ErrPredictionCount, len(predictions), len(batch))
		}
		return predictions, nil
	}

	predictions := make([][]core.Span, len(batch))
	for i, p := range batch {
		spans, err := classifier.Predict(ctx, p.Text)
		if err != nil {
			return nil, err
		}
		predictions[i] = spans
	}
	return predictions, nil
}
