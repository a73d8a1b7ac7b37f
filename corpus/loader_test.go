package corpus

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/storage"
	"github.com/poiesic/vibecheck/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, passages string, m *core.EmbeddingMatrix, meta string) *badger.Store {
	t.Helper()
	ctx := context.Background()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if passages != "" {
		require.NoError(t, store.Put(ctx, storage.PassagesKey, []byte(passages)))
	}
	if m != nil {
		require.NoError(t, store.Put(ctx, storage.EmbeddingsKey, EncodeNPY(m)))
	}
	if meta != "" {
		require.NoError(t, store.Put(ctx, storage.EmbeddingsMetadataKey, []byte(meta)))
	}
	return store
}

const twoPassages = `{"text_block.text": "Floods hit the coast.", "document_id": "CCLW.1", "text_block.page_number": 3}
{"text_block.text": "Tax policy reform.", "document_id": "CCLW.2", "translated": "True"}
`

func fastRetry() Option {
	return WithRetry(retry.Fixed(3, time.Millisecond))
}

func TestLoader_Load(t *testing.T) {
	m := &core.EmbeddingMatrix{Rows: 2, Dim: 2, Data: []float32{1, 0, 0, 1}}
	store := seedStore(t, twoPassages, m, `{"embedding_model_name": "BAAI/bge-small-en-v1.5"}`)

	loader, err := NewLoader(store, fastRetry())
	require.NoError(t, err)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, ds.Corpus.Len())
	first := ds.Corpus.Passages[0]
	assert.Equal(t, 0, first.Row)
	assert.Equal(t, "Floods hit the coast.", first.Text)
	assert.Equal(t, "CCLW.1", first.Metadata[core.ColumnDocumentID])
	assert.Equal(t, "3", fmt.Sprint(first.Metadata[core.ColumnPageNumber]))
	assert.NotContains(t, first.Metadata, core.ColumnText)
	assert.Equal(t, "True", ds.Corpus.Passages[1].Metadata[core.ColumnTranslated])

	assert.Equal(t, m, ds.Embeddings)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", ds.Metadata.ModelName)
}

func TestLoader_Validation(t *testing.T) {
	meta := `{"embedding_model_name": "m"}`

	t.Run("empty corpus", func(t *testing.T) {
		store := seedStore(t, "\n", &core.EmbeddingMatrix{}, meta)
		loader, _ := NewLoader(store, fastRetry())
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, core.ErrEmptyCorpus)
	})

	t.Run("row mismatch", func(t *testing.T) {
		m := &core.EmbeddingMatrix{Rows: 3, Dim: 1, Data: []float32{1, 2, 3}}
		store := seedStore(t, twoPassages, m, meta)
		loader, _ := NewLoader(store, fastRetry())
		_, err := loader.Load(context.Background())
		var dimErr *core.DimensionMismatchError
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("missing text column", func(t *testing.T) {
		store := seedStore(t, `{"document_id": "x"}`, &core.EmbeddingMatrix{Rows: 1, Dim: 1, Data: []float32{1}}, meta)
		loader, _ := NewLoader(store, fastRetry())
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("missing model name", func(t *testing.T) {
		m := &core.EmbeddingMatrix{Rows: 2, Dim: 1, Data: []float32{1, 2}}
		store := seedStore(t, twoPassages, m, `{}`)
		loader, _ := NewLoader(store, fastRetry())
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("missing object", func(t *testing.T) {
		store := seedStore(t, twoPassages, nil, meta)
		loader, _ := NewLoader(store, fastRetry())
		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

// flakyStore fails the first n Gets with a transient storage error.
type flakyStore struct {
	storage.ObjectStore
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, fmt.Errorf("%w: connection reset", core.ErrConnectivity)
	}
	return f.ObjectStore.Get(ctx, key)
}

func TestLoader_RetriesTransientFailures(t *testing.T) {
	m := &core.EmbeddingMatrix{Rows: 2, Dim: 1, Data: []float32{1, 2}}
	base := seedStore(t, twoPassages, m, `{"embedding_model_name": "m"}`)

	flaky := &flakyStore{ObjectStore: base}
	flaky.failures.Store(2)

	loader, err := NewLoader(flaky, fastRetry())
	require.NoError(t, err)

	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(5), flaky.calls.Load(), "two failures plus three successful reads")
}

func TestLoader_GivesUpAfterBudget(t *testing.T) {
	base := seedStore(t, twoPassages, nil, "")
	flaky := &flakyStore{ObjectStore: base}
	flaky.failures.Store(100)

	loader, err := NewLoader(flaky, fastRetry())
	require.NoError(t, err)

	_, err = loader.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrConnectivity)
	assert.Equal(t, int32(3), flaky.calls.Load())
}

func TestNewLoader_RequiresStore(t *testing.T) {
	_, err := NewLoader(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestPassages_RoundTrip(t *testing.T) {
	c := &core.Corpus{Passages: []core.Passage{
		{Row: 0, Text: "a", Metadata: map[string]any{"document_id": "d1"}},
		{Row: 1, Text: "b", Metadata: map[string]any{}},
	}}
	data, err := EncodePassages(c)
	require.NoError(t, err)

	got, err := DecodePassages(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
