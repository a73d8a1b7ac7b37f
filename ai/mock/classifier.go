package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
)

// MockClassifier is a test double for ai.BatchClassifier.
// By default it marks the first case-insensitive occurrence of the
// concept's preferred label.
type MockClassifier struct {
	// PredictFunc is called by Predict if set.
	PredictFunc func(ctx context.Context, text string) ([]core.Span, error)

	// PredictBatchFunc is called by PredictBatch if set. If nil,
	// PredictBatch calls Predict for each text.
	PredictBatchFunc func(ctx context.Context, texts []string) ([][]core.Span, error)

	concept core.Concept

	mu         sync.Mutex
	calls      int
	batchCalls int
	texts      int
}

var _ ai.BatchClassifier = (*MockClassifier)(nil)

// NewMockClassifier creates a mock classifier for concept.
func NewMockClassifier(concept *core.Concept) *MockClassifier {
	return &MockClassifier{concept: *concept}
}

// ID derives from the concept so different concepts get different directories.
func (m *MockClassifier) ID() string {
	return core.ContentHash("MockClassifier", m.concept.Fingerprint())
}

// Name returns "MockClassifier".
func (m *MockClassifier) Name() string {
	return "MockClassifier"
}

func (m *MockClassifier) String() string {
	return fmt.Sprintf("MockClassifier(%q)", m.concept.PreferredLabel)
}

// Predict returns a span for the preferred label or the injected result.
func (m *MockClassifier) Predict(ctx context.Context, text string) ([]core.Span, error) {
	m.mu.Lock()
	m.calls++
	m.texts++
	m.mu.Unlock()

	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, text)
	}
	return m.labelSpan(text), nil
}

// PredictBatch predicts each text in order.
func (m *MockClassifier) PredictBatch(ctx context.Context, texts []string) ([][]core.Span, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()

	if m.PredictBatchFunc != nil {
		m.mu.Lock()
		m.texts += len(texts)
		m.mu.Unlock()
		return m.PredictBatchFunc(ctx, texts)
	}

	out := make([][]core.Span, len(texts))
	for i, text := range texts {
		spans, err := m.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = spans
	}
	return out, nil
}

// CallCount returns the number of Predict calls.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BatchCallCount returns the number of PredictBatch calls.
func (m *MockClassifier) BatchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// TextCount returns the number of passages classified.
func (m *MockClassifier) TextCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

// Reset clears counters and injected behaviour.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls, m.batchCalls, m.texts = 0, 0, 0
	m.PredictFunc = nil
	m.PredictBatchFunc = nil
}

func (m *MockClassifier) labelSpan(text string) []core.Span {
	label := strings.ToLower(m.concept.PreferredLabel)
	if label == "" {
		return []core.Span{}
	}
	idx := strings.Index(strings.ToLower(text), label)
	if idx < 0 {
		return []core.Span{}
	}
	start := utf8.RuneCountInString(text[:idx])
	return []core.Span{{
		Start:      start,
		End:        start + utf8.RuneCountInString(label),
		Label:      m.concept.ID,
		Confidence: 1,
	}}
}

// MockClassifierFactory is a test double for ai.ClassifierFactory.
type MockClassifierFactory struct {
	// CreateFunc is called by Create if set.
	CreateFunc func(ctx context.Context, concept *core.Concept) (ai.Classifier, error)

	mu      sync.Mutex
	created map[string]*MockClassifier
	calls   int
}

// NewMockClassifierFactory creates a factory returning MockClassifiers.
func NewMockClassifierFactory() *MockClassifierFactory {
	return &MockClassifierFactory{created: make(map[string]*MockClassifier)}
}

// Create returns a new MockClassifier for concept or the injected result.
func (f *MockClassifierFactory) Create(ctx context.Context, concept *core.Concept) (ai.Classifier, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, concept)
	}

	c := NewMockClassifier(concept)
	f.mu.Lock()
	f.created[concept.ID] = c
	f.mu.Unlock()
	return c, nil
}

// Classifier returns the classifier created for a concept id, if any.
func (f *MockClassifierFactory) Classifier(conceptID string) *MockClassifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[conceptID]
}

// CallCount returns the number of Create calls.
func (f *MockClassifierFactory) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
