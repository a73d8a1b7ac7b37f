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


// Package ai provides abstractions for the AI services used by vibecheck.
//
// This package defines interfaces for text embeddings and per-concept span
// classification. The inference pipeline depends on these abstractions
// rather than on concrete model clients.
//
// # Design Principles
//
// The package is designed around four key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Classifier: Predicts the spans of a passage that express a concept
//   - ClassifierFactory: Builds a Classifier for a concept
//   - AIProvider: Aggregates AI services for convenient initialization
//
// BatchClassifier extends Classifier with PredictBatch. Executors use it
// when available and fall back to per-passage Predict otherwise.
//
// # Implementation Packages
//
//   - ai/openai: Embedder and LLM classifier using OpenAI-compatible APIs
//   - ai/keyword: Label-matching classifier with no external dependencies
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockClassifier)
// return CONCRETE types to enable test assertions and behavior injection via
// the mock's public fields and methods (CallCount, PredictFunc, Reset).
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithClassifier(ai.KindLLM))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	embedder, err := provider.Embedder("embeddinggemma")
//	vec, err := embedder.EmbedText(ctx, concept.Markdown())
//
//	classifier, err := provider.Classifiers().Create(ctx, concept)
//	spans, err := classifier.Predict(ctx, "Floods displaced thousands.")
package ai
