package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

func TestEmbedder_EmbedTexts(t *testing.T) {
	var seen []string
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		seen = append(seen, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(i), 1}
		}
		return out, nil
	})

	e, err := newEmbedderWithClient(client, "test-model")
	require.NoError(t, err)
	assert.Equal(t, "test-model", e.Model())

	input := []string{"first\nline", "second"}
	vecs, err := e.EmbedTexts(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 1}, vecs[1])

	// Newlines are stripped for the model but the caller's slice is untouched.
	assert.Equal(t, "first line", seen[0])
	assert.Equal(t, "first\nline", input[0])
}

func TestEmbedder_EmbedText(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0.5, 0.5}}, nil
	})
	e, err := newEmbedderWithClient(client, "m")
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "flood")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestEmbedder_ErrorsAreConnectivity(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	})
	e, err := newEmbedderWithClient(client, "m")
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "flood")
	require.ErrorIs(t, err, core.ErrConnectivity)
	assert.True(t, core.IsRecoverable(err))

	_, err = e.EmbedTexts(context.Background(), []string{"a"})
	require.ErrorIs(t, err, core.ErrConnectivity)
}

func TestProvider_EmbedderPerModel(t *testing.T) {
	p, err := NewProvider(ai.NewConfig())
	require.NoError(t, err)
	defer p.Close()

	a, err := p.Embedder("model-a")
	require.NoError(t, err)
	again, err := p.Embedder("model-a")
	require.NoError(t, err)
	b, err := p.Embedder("model-b")
	require.NoError(t, err)
	def, err := p.Embedder("")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, "embeddinggemma", def.(*Embedder).Model())
}

func TestProvider_ClassifierFamilies(t *testing.T) {
	concept := &core.Concept{ID: "Q1", PreferredLabel: "flood"}

	kw, err := NewProvider(ai.NewConfig())
	require.NoError(t, err)
	c, err := kw.Classifiers().Create(context.Background(), concept)
	require.NoError(t, err)
	assert.Equal(t, "KeywordClassifier", c.Name())

	llm, err := NewProvider(ai.NewConfig(ai.WithClassifier(ai.KindLLM)))
	require.NoError(t, err)
	c, err = llm.Classifiers().Create(context.Background(), concept)
	require.NoError(t, err)
	assert.Equal(t, "LLMClassifier", c.Name())
}
