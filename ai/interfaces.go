package ai

import (
	"context"

	"github.com/poiesic/vibecheck/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier predicts the spans of a passage that express one concept.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// ID is a short deterministic identifier of the classifier and the
	// concept it was built for. It names the output directory.
	ID() string

	// Name is the classifier family, e.g. "KeywordClassifier".
	Name() string

	// String is a human-readable description including the concept.
	String() string

	// Predict returns the spans of text matching the concept.
	// Returns an empty slice for negative passages.
	Predict(ctx context.Context, text string) ([]core.Span, error)
}

// BatchClassifier is a Classifier that can also predict many passages in one call.
type BatchClassifier interface {
	Classifier

	// PredictBatch returns one span list per input text, in input order.
	PredictBatch(ctx context.Context, texts []string) ([][]core.Span, error)
}

// ClassifierFactory builds a classifier for a concept.
// Implementations must be thread-safe for concurrent use.
type ClassifierFactory interface {
	Create(ctx context.Context, concept *core.Concept) (Classifier, error)
}

// ClassifierFactoryFunc adapts a function to ClassifierFactory.
type ClassifierFactoryFunc func(ctx context.Context, concept *core.Concept) (Classifier, error)

// Create calls f.
func (f ClassifierFactoryFunc) Create(ctx context.Context, concept *core.Concept) (Classifier, error) {
	return f(ctx, concept)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns an embedder for the named model. An empty name
	// selects the configured default model.
	Embedder(model string) (Embedder, error)

	// Classifiers returns the factory used to build per-concept classifiers.
	Classifiers() ClassifierFactory

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
