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

import "fmt"

// ValidateConcept validates a Concept according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - PreferredLabel must not be empty
//
// Labels and description may be empty.
func ValidateConcept(concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("%w: concept is nil", ErrInvalidConcept)
	}

	if concept.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyConceptID)
	}

	if concept.PreferredLabel == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyPreferredLabel)
	}

	return nil
}

// ValidateAlignment checks that the corpus and the embedding matrix describe
// the same rows and that the matrix is internally consistent.
func ValidateAlignment(corpus *Corpus, embeddings *EmbeddingMatrix) error {
	if corpus.Len() == 0 {
		return ErrEmptyCorpus
	}
	if embeddings == nil {
		return fmt.Errorf("%w: embeddings are nil", ErrValidation)
	}
	if len(embeddings.Data) != embeddings.Rows*embeddings.Dim {
		return fmt.Errorf("%w: embedding data has %d values, want %d x %d",
			ErrValidation, len(embeddings.Data), embeddings.Rows, embeddings.Dim)
	}
	if corpus.Len() != embeddings.Rows {
		return &DimensionMismatchError{
			CorpusRows:    corpus.Len(),
			EmbeddingRows: embeddings.Rows,
			MatrixDim:     embeddings.Dim,
		}
	}
	return nil
}

// ComputeStats counts passages with at least one span as positive.
// Percentage is 0 when there are no passages.
func ComputeStats(passages []LabelledPassage) Stats {
	positive := 0
	for _, p := range passages {
		if len(p.Spans) > 0 {
			positive++
		}
	}
	stats := Stats{
		NPositivePassages: positive,
		NNegativePassages: len(passages) - positive,
	}
	if len(passages) > 0 {
		stats.Percentage = float64(positive) / float64(len(passages)) * 100
	}
	return stats
}
