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
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Well-known passage metadata columns.
const (
	ColumnText            = "text_block.text"
	ColumnTextBlockID     = "text_block.text_block_id"
	ColumnPageNumber      = "text_block.page_number"
	ColumnDocumentID      = "document_id"
	ColumnTranslated      = "translated"
	ColumnPublicationTS   = "document_metadata.publication_ts"
	ColumnCorpusType      = "document_metadata.corpus_type_name"
	ColumnWorldBankRegion = "world_bank_region"
	ColumnSimilarity      = "similarity"
)

// ContentHash returns a short deterministic hex digest of the given parts
// using BLAKE2b. Identical inputs always produce identical hashes.
func ContentHash(parts ...string) string {
	h, _ := blake2b.New(4, nil) // 4 bytes = 8 hex characters
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Passage is a single row of the corpus.
type Passage struct {
	Row      int            // Stable row index, aligned with the embedding matrix
	Text     string         // Raw passage text
	Metadata map[string]any // Passthrough columns (document id, page number, region...)
}

// Corpus is the ordered passage dataset shared read-only by all work units.
type Corpus struct {
	Passages []Passage
}

// Len returns the number of passages in the corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Passages)
}

// EmbeddingMatrix is a row-major N x D matrix of passage embeddings.
// It is produced once upstream and must never be mutated.
type EmbeddingMatrix struct {
	Rows int
	Dim  int
	Data []float32
}

// Row returns a view of the i-th embedding. Callers must not modify it.
func (m *EmbeddingMatrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim : (i+1)*m.Dim]
}

// EmbeddingMetadata describes how the passage embeddings were produced.
type EmbeddingMetadata struct {
	ModelName string `json:"embedding_model_name"`
}

// Concept is a labelled idea that passages are classified against.
type Concept struct {
	ID                string   `json:"wikibase_id"`
	PreferredLabel    string   `json:"preferred_label"`
	AlternativeLabels []string `json:"alternative_labels,omitempty"`
	NegativeLabels    []string `json:"negative_labels,omitempty"`
	Description       string   `json:"description,omitempty"`
	Definition        string   `json:"definition,omitempty"`
}

// Markdown renders the concept as the text used to derive its embedding.
func (c *Concept) Markdown() string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(c.PreferredLabel)
	b.WriteString(" (")
	b.WriteString(c.ID)
	b.WriteString(")\n")
	if c.Description != "" {
		b.WriteString("\n## Description\n\n")
		b.WriteString(c.Description)
		b.WriteString("\n")
	}
	if c.Definition != "" {
		b.WriteString("\n## Definition\n\n")
		b.WriteString(c.Definition)
		b.WriteString("\n")
	}
	if len(c.AlternativeLabels) > 0 {
		b.WriteString("\n## Alternative labels\n\n")
		for _, l := range c.AlternativeLabels {
			b.WriteString("- ")
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	if len(c.NegativeLabels) > 0 {
		b.WriteString("\n## Negative labels\n\n")
		for _, l := range c.NegativeLabels {
			b.WriteString("- ")
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Fingerprint returns a short hash of the concept's classification-relevant content.
func (c *Concept) Fingerprint() string {
	return ContentHash(
		c.ID,
		c.PreferredLabel,
		strings.Join(c.AlternativeLabels, "|"),
		strings.Join(c.NegativeLabels, "|"),
		c.Description,
	)
}

// Span is a predicted positive region of a passage.
type Span struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence,omitempty"`
}

// LabelledPassage is a passage together with its predicted spans.
type LabelledPassage struct {
	Text     string         `json:"text"`
	Spans    []Span         `json:"spans"`
	Metadata map[string]any `json:"metadata"`
}

// ClassifierInfo is the identity snapshot written as classifier.json.
type ClassifierInfo struct {
	ID     string `json:"id"`
	String string `json:"string"`
	Name   string `json:"name"`
	Date   string `json:"date"`
}

// NewClassifierInfo builds a ClassifierInfo dated today (UTC).
func NewClassifierInfo(id, name, str string) ClassifierInfo {
	return ClassifierInfo{
		ID:     id,
		String: str,
		Name:   name,
		Date:   time.Now().UTC().Format(time.DateOnly),
	}
}

// Stats summarises the positive rate of a set of labelled passages.
type Stats struct {
	NPositivePassages int     `json:"n_positive_passages"`
	NNegativePassages int     `json:"n_negative_passages"`
	Percentage        float64 `json:"percentage"`
}

// Status is the terminal state of a concept work unit.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"

	// StatusErrored is only observed, never carried by a ConceptResult: the
	// unit returned an error instead of a result.
	StatusErrored Status = "errored"
)

// ConceptResult summarises the outcome of processing one concept.
// It is immutable once returned by the producing work unit.
type ConceptResult struct {
	Status            Status  `json:"status"`
	ConceptID         string  `json:"concept_id"`
	PreferredLabel    string  `json:"preferred_label,omitempty"`
	NPassages         int     `json:"n_passages"`
	NPositivePassages int     `json:"n_positive_passages"`
	Percentage        float64 `json:"percentage"`
	OutputPrefix      string  `json:"output_prefix,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// Succeeded reports whether the result has success status.
func (r ConceptResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// NewFailedResult builds a failed result carrying the error description.
// Counts are zero; NPassages records the corpus size.
func NewFailedResult(conceptID string, corpusSize int, err error) ConceptResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ConceptResult{
		Status:    StatusFailed,
		ConceptID: conceptID,
		NPassages: corpusSize,
		Error:     msg,
	}
}
