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


package selection

import (
	"cmp"
	"math"
	"slices"

	"github.com/poiesic/vibecheck/core"
)

// Selection is the working subset of corpus rows chosen for one concept.
type Selection struct {
	// Rows holds the selected corpus row indices in ascending order.
	Rows []int

	// Similarities holds the similarity of each selected row, aligned with Rows.
	Similarities []float32

	// AboveThreshold is the number of corpus rows scoring above the threshold.
	AboveThreshold int

	// Underfilled is set when fewer than MinPassages rows could be selected.
	Underfilled bool

	MinSimilarity float32
	MaxSimilarity float32
}

// Len returns the number of selected rows.
func (s *Selection) Len() int {
	return len(s.Rows)
}

// SelectedAbove counts selected rows that scored above threshold.
func (s *Selection) SelectedAbove(threshold float32) int {
	n := 0
	for _, sim := range s.Similarities {
		if sim > threshold {
			n++
		}
	}
	return n
}

type scored struct {
	row int
	sim float32
}

// Select narrows the corpus to the rows worth classifying for a concept.
//
// Every row is scored by the dot product of its embedding with conceptVec.
// When at least MinPassages rows score above the threshold, the highest
// scoring of them are kept, up to MaxPassages. Otherwise all above-threshold
// rows are kept and the selection is topped up to MinPassages with the
// below-threshold rows closest to the threshold. If the corpus cannot supply
// enough rows the selection is smaller than MinPassages and Underfilled is set.
//
// The corpus and embeddings are only read. A *core.DimensionMismatchError is
// returned before any scoring if they do not line up with each other or with
// conceptVec.
func Select(corpus *core.Corpus, embeddings *core.EmbeddingMatrix, conceptVec []float32, policy Policy) (*Selection, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if embeddings == nil || corpus.Len() != embeddings.Rows || embeddings.Dim != len(conceptVec) {
		mismatch := &core.DimensionMismatchError{
			CorpusRows: corpus.Len(),
			ConceptDim: len(conceptVec),
		}
		if embeddings != nil {
			mismatch.EmbeddingRows = embeddings.Rows
			mismatch.MatrixDim = embeddings.Dim
		}
		return nil, mismatch
	}

	n := embeddings.Rows
	above := make([]scored, 0, n/4)
	below := make([]scored, 0, n)
	for i := 0; i < n; i++ {
		s := scored{row: i, sim: Dot(embeddings.Row(i), conceptVec)}
		if s.sim > policy.Threshold {
			above = append(above, s)
		} else {
			below = append(below, s)
		}
	}

	var picked []scored
	if len(above) >= policy.MinPassages {
		slices.SortFunc(above, func(a, b scored) int {
			if c := cmp.Compare(b.sim, a.sim); c != 0 {
				return c
			}
			return cmp.Compare(a.row, b.row)
		})
		picked = above[:min(len(above), policy.MaxPassages)]
	} else {
		threshold := float64(policy.Threshold)
		slices.SortFunc(below, func(a, b scored) int {
			da := math.Abs(float64(a.sim) - threshold)
			db := math.Abs(float64(b.sim) - threshold)
			if c := cmp.Compare(da, db); c != 0 {
				return c
			}
			return cmp.Compare(a.row, b.row)
		})
		need := min(policy.MinPassages-len(above), len(below))
		picked = append(above, below[:need]...)
		if len(picked) > policy.MaxPassages {
			picked = picked[:policy.MaxPassages]
		}
	}

	slices.SortFunc(picked, func(a, b scored) int {
		return cmp.Compare(a.row, b.row)
	})

	sel := &Selection{
		Rows:           make([]int, len(picked)),
		Similarities:   make([]float32, len(picked)),
		AboveThreshold: len(above),
		Underfilled:    len(picked) < policy.MinPassages,
	}
	for i, s := range picked {
		sel.Rows[i] = s.row
		sel.Similarities[i] = s.sim
		if i == 0 || s.sim < sel.MinSimilarity {
			sel.MinSimilarity = s.sim
		}
		if i == 0 || s.sim > sel.MaxSimilarity {
			sel.MaxSimilarity = s.sim
		}
	}
	return sel, nil
}
