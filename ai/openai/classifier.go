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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const parseAttempts = 3

// Classifier implements ai.BatchClassifier by asking an OpenAI-compatible
// chat model to quote the passage fragments that express a concept.
type Classifier struct {
	client        llms.Model
	model         string
	concept       core.Concept
	minConfidence float64
	systemPrompt  string
	logger        *slog.Logger
}

var _ ai.BatchClassifier = (*Classifier)(nil)

// predicted is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type predicted struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// prediction is the wrapper structure for the LLM's JSON response.
type prediction struct {
	Spans []predicted `json:"spans"`
}

// newChatClient creates the chat client shared by every classifier a
// provider builds.
func newChatClient(config *ai.Config) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ClassifierModel),
	)
}

// newClassifier is an internal constructor that returns the concrete type.
func newClassifier(client llms.Model, config *ai.Config, concept *core.Concept) (*Classifier, error) {
	if err := core.ValidateConcept(concept); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "openai-classifier", "concept_id", concept.ID)
	return &Classifier{
		client:        client,
		model:         config.ClassifierModel,
		concept:       *concept,
		minConfidence: config.MinConfidence,
		systemPrompt:  buildSystemPrompt(concept),
		logger:        logger,
	}, nil
}

// NewClassifier creates an LLM classifier for concept using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config, concept *core.Concept) (ai.Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}
	return newClassifier(client, config, concept)
}

// ID hashes the model and the concept definition.
func (c *Classifier) ID() string {
	return core.ContentHash(c.Name(), c.model, c.concept.Fingerprint())
}

// Name returns "LLMClassifier".
func (c *Classifier) Name() string {
	return "LLMClassifier"
}

func (c *Classifier) String() string {
	return fmt.Sprintf("LLMClassifier(%q, model=%q)", c.concept.PreferredLabel, c.model)
}

// Predict asks the model for the fragments of text expressing the concept
// and maps them back to character offsets.
func (c *Classifier) Predict(ctx context.Context, text string) ([]core.Span, error) {
	if strings.TrimSpace(text) == "" {
		return []core.Span{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(c.systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result prediction
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: llm classifier: %w", core.ErrConnectivity, err)
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return []core.Span{}, nil
		}

		responseText := cleanResponse(response.Choices[0].Content)

		result = prediction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: llm classifier response: %w", core.ErrValidation, lastErr)
	}

	spans := c.toSpans(text, result.Spans)
	c.logger.Debug("predicted spans",
		"returned", len(result.Spans),
		"kept", len(spans))
	return spans, nil
}

// PredictBatch predicts each text in order. The chat API has no batch
// endpoint, so a failure on any text fails the batch.
func (c *Classifier) PredictBatch(ctx context.Context, texts []string) ([][]core.Span, error) {
	out := make([][]core.Span, len(texts))
	for i, text := range texts {
		spans, err := c.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = spans
	}
	return out, nil
}

// toSpans locates each quoted fragment in text. Fragments that are not in
// the passage or fall below the confidence floor are dropped, as are
// fragments overlapping an earlier one.
func (c *Classifier) toSpans(text string, found []predicted) []core.Span {
	haystack := foldRunes(text)
	spans := make([]core.Span, 0, len(found))
	for _, p := range found {
		if p.Confidence < c.minConfidence {
			continue
		}
		needle := foldRunes(strings.TrimSpace(p.Text))
		if len(needle) == 0 {
			continue
		}
		from := 0
		for {
			start := indexRunes(haystack, needle, from)
			if start < 0 {
				break
			}
			end := start + len(needle)
			if !overlapsAny(spans, start, end) {
				spans = append(spans, core.Span{
					Start:      start,
					End:        end,
					Label:      c.concept.ID,
					Confidence: p.Confidence,
				})
				break
			}
			from = start + 1
		}
	}
	slices.SortFunc(spans, func(a, b core.Span) int {
		return a.Start - b.Start
	})
	return spans
}

// cleanResponse strips markdown code fences and repairs common JSON issues.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return repairJSON(s)
}
