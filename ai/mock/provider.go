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


package mock

import "github.com/poiesic/vibecheck/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates a mock embedder and classifier factory.
type MockProvider struct {
	embedder    *MockEmbedder
	classifiers *MockClassifierFactory
	models      []string
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockFactory() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder:    NewMockEmbedder(),
		classifiers: NewMockClassifierFactory(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, classifiers *MockClassifierFactory) ai.AIProvider {
	return &MockProvider{
		embedder:    embedder,
		classifiers: classifiers,
	}
}

// Embedder returns the mock embedder regardless of model, recording the request.
func (p *MockProvider) Embedder(model string) (ai.Embedder, error) {
	p.models = append(p.models, model)
	return p.embedder, nil
}

// Classifiers returns the mock classifier factory.
func (p *MockProvider) Classifiers() ai.ClassifierFactory {
	return p.classifiers
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockFactory returns the underlying mock classifier factory for test assertions.
func (p *MockProvider) GetMockFactory() *MockClassifierFactory {
	return p.classifiers
}

// RequestedModels returns the model names passed to Embedder, in call order.
func (p *MockProvider) RequestedModels() []string {
	return p.models
}
