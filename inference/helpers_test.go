package inference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/vibecheck/ai/mock"
	"github.com/poiesic/vibecheck/concepts"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/selection"
	"github.com/poiesic/vibecheck/storage/badger"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Workers:                   3,
		BatchSize:                 4,
		ProgressEvery:             1,
		Selection:                 selection.Policy{Threshold: 0.5, MinPassages: 3, MaxPassages: 100},
		UnitRetry:                 retry.Fixed(2, 0),
		NormalizeConceptEmbedding: true,
	}
}

// testDataset builds a 1-d corpus whose embeddings equal sims, so the
// similarity of row i to the concept vector [1] is sims[i].
func testDataset(sims []float32) *corpus.Dataset {
	c := &core.Corpus{Passages: make([]core.Passage, len(sims))}
	for i := range sims {
		text := fmt.Sprintf("passage %d about the weather", i)
		if i%2 == 0 {
			text = fmt.Sprintf("passage %d about a flood", i)
		}
		c.Passages[i] = core.Passage{
			Row:  i,
			Text: text,
			Metadata: map[string]any{
				core.ColumnDocumentID: fmt.Sprintf("doc-%d", i),
			},
		}
	}
	data := make([]float32, len(sims))
	copy(data, sims)
	return &corpus.Dataset{
		Corpus:     c,
		Embeddings: &core.EmbeddingMatrix{Rows: len(sims), Dim: 1, Data: data},
		Metadata:   core.EmbeddingMetadata{ModelName: "test-model"},
	}
}

func unitEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{2}, nil
	}
	return e
}

func conceptLookup() concepts.Lookup {
	return concepts.LookupFunc(func(_ context.Context, id string) (*core.Concept, error) {
		return &core.Concept{ID: id, PreferredLabel: "flood", Description: "Water overflow"}, nil
	})
}

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// progressLog records progress updates.
type progressLog struct {
	mu      sync.Mutex
	updates map[string][]float64
}

func newProgressLog() *progressLog {
	return &progressLog{updates: make(map[string][]float64)}
}

func (p *progressLog) Report(_ context.Context, key string, fraction float64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates[key] = append(p.updates[key], fraction)
	return nil
}

func (p *progressLog) get(key string) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.updates[key]...)
}

func containsFlood(text string) bool {
	return strings.Contains(text, "flood")
}
