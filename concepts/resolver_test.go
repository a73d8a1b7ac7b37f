package concepts

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/storage"
	"github.com/poiesic/vibecheck/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how many reads reach the wrapped store.
type countingStore struct {
	storage.ObjectStore
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	return c.ObjectStore.Get(ctx, key)
}

func newStore(t *testing.T, conceptsYML string) *countingStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	if conceptsYML != "" {
		require.NoError(t, store.Put(context.Background(), storage.ConceptsKey, []byte(conceptsYML)))
	}
	return &countingStore{ObjectStore: store}
}

func TestResolver_ConfigMode(t *testing.T) {
	store := newStore(t, "- Q3\n- Q1\n- id: Q2\n  preferred_label: flood\n")
	r := NewResolver(store)

	ids, mode, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeConfig, mode)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, ids)
}

func TestResolver_CustomMode(t *testing.T) {
	store := newStore(t, "- Q9\n")
	r := NewResolver(store)

	ids, mode, err := r.Resolve(context.Background(), []string{" Q2 ", "Q1", "Q2", ""})
	require.NoError(t, err)
	assert.Equal(t, ModeCustom, mode)
	assert.Equal(t, []string{"Q2", "Q1"}, ids, "custom ids keep caller order")
	assert.Zero(t, store.gets.Load(), "custom mode never reads the store")
}

func TestResolver_EmptyCustomListFailsWithoutReads(t *testing.T) {
	store := newStore(t, "- Q1\n")
	r := NewResolver(store)

	for _, custom := range [][]string{{}, {"", "  "}} {
		_, mode, err := r.Resolve(context.Background(), custom)
		assert.ErrorIs(t, err, core.ErrNoConcepts)
		assert.Equal(t, ModeCustom, mode)
	}
	assert.Zero(t, store.gets.Load())
}

func TestResolver_EmptyConfig(t *testing.T) {
	store := newStore(t, "[]\n")
	_, _, err := NewResolver(store).Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrNoConcepts)
}

func TestResolver_MissingConfig(t *testing.T) {
	store := newStore(t, "")
	_, _, err := NewResolver(store).Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, int32(1), store.gets.Load(), "missing objects are not retried")
}

func TestParseCatalog(t *testing.T) {
	doc := `
- Q1
- wikibase_id: Q2
  preferred_label: extreme weather
  description: Weather far outside the norm.
- id: Q3
- Q1
`
	entries, err := ParseCatalog([]byte(doc))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{ID: "Q1"}, entries[0])
	assert.Equal(t, Entry{ID: "Q2", PreferredLabel: "extreme weather", Description: "Weather far outside the norm."}, entries[1])
	assert.Equal(t, "Q3", entries[2].ID)

	_, err = ParseCatalog([]byte("- preferred_label: no id\n"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ParseCatalog([]byte("- [nested]\n"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ParseCatalog([]byte("concepts: {"))
	assert.ErrorIs(t, err, core.ErrValidation)
}
