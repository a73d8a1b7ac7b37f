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


package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Error kinds. Errors produced anywhere in the system wrap one of these so
// callers can classify them with errors.Is.
var (
	// ErrValidation indicates malformed or inconsistent data.
	ErrValidation = errors.New("validation failed")

	// ErrConnectivity indicates a remote service could not be reached or failed.
	ErrConnectivity = errors.New("connectivity failure")

	// ErrStorage indicates an object store read or write failed.
	ErrStorage = errors.New("storage failure")
)

// Domain validation errors
var (
	// ErrEmptyCorpus indicates the passage dataset has no rows.
	ErrEmptyCorpus = fmt.Errorf("%w: corpus is empty", ErrValidation)

	// ErrNoConcepts indicates the resolved concept list is empty.
	ErrNoConcepts = fmt.Errorf("%w: no concepts to process", ErrValidation)

	// ErrInvalidConcept indicates a Concept failed validation.
	ErrInvalidConcept = fmt.Errorf("%w: invalid concept", ErrValidation)

	// ErrEmptyConceptID indicates the concept ID field is empty.
	ErrEmptyConceptID = errors.New("concept id cannot be empty")

	// ErrEmptyPreferredLabel indicates the concept PreferredLabel field is empty.
	ErrEmptyPreferredLabel = errors.New("concept preferred label cannot be empty")
)

// DimensionMismatchError reports that the corpus, the embedding matrix and the
// concept embedding do not line up.
type DimensionMismatchError struct {
	CorpusRows    int
	EmbeddingRows int
	MatrixDim     int
	ConceptDim    int
}

func (e *DimensionMismatchError) Error() string {
	if e.CorpusRows != e.EmbeddingRows {
		return fmt.Sprintf("dimension mismatch: corpus has %d rows, embeddings have %d",
			e.CorpusRows, e.EmbeddingRows)
	}
	return fmt.Sprintf("dimension mismatch: embedding dimension %d, concept embedding dimension %d",
		e.MatrixDim, e.ConceptDim)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *DimensionMismatchError) Unwrap() error {
	return ErrValidation
}

// IsRecoverable reports whether err belongs to a kind that a concept work unit
// converts into a failed result instead of propagating.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConnectivity) || errors.Is(err, ErrStorage) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
