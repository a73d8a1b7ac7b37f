package inference

import (
	"errors"
	"fmt"

	"github.com/poiesic/vibecheck/core"
)

var (
	// ErrLookupRequired is returned when a unit is created without a concept lookup.
	ErrLookupRequired = errors.New("concept lookup required")

	// ErrEmbedderRequired is returned when a unit is created without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrClassifierFactoryRequired is returned when a unit is created without a classifier factory.
	ErrClassifierFactoryRequired = errors.New("classifier factory required")

	// ErrStoreRequired is returned when a publisher is created without an object store.
	ErrStoreRequired = errors.New("object store required")

	// ErrProcessorRequired is returned when an orchestrator is created without a processor.
	ErrProcessorRequired = errors.New("processor required")

	// ErrDatasetRequired is returned when a batch is run without a loaded dataset.
	ErrDatasetRequired = fmt.Errorf("%w: dataset required", core.ErrValidation)

	// ErrPredictionCount is returned when a batch classifier returns a
	// different number of predictions than passages it was given.
	ErrPredictionCount = fmt.Errorf("%w: prediction count does not match batch size", core.ErrValidation)
)

// CollectionError records a work unit that panicked instead of returning.
type CollectionError struct {
	ConceptID string
	Value     any
	Stack     []byte
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("concept %s: unit panicked: %v", e.ConceptID, e.Value)
}
