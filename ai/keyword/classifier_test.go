package keyword

import (
	"context"
	"testing"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flood() *core.Concept {
	return &core.Concept{
		ID:                "Q374",
		PreferredLabel:    "flood",
		AlternativeLabels: []string{"flooding", "inundation"},
		NegativeLabels:    []string{"flood fill"},
	}
}

func spanTexts(text string, spans []core.Span) []string {
	runes := []rune(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.Start:s.End])
	}
	return out
}

func TestClassifier_Predict(t *testing.T) {
	c, err := New(flood())
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "preferred label", text: "A flood hit the coast.", want: []string{"flood"}},
		{name: "case insensitive", text: "FLOOD warnings", want: []string{"FLOOD"}},
		{name: "longest label wins", text: "Flooding was severe.", want: []string{"Flooding"}},
		{name: "several matches", text: "flood, then inundation, then flood", want: []string{"flood", "inundation", "flood"}},
		{name: "whole words only", text: "floods and floodplains", want: []string{}},
		{name: "negative label excluded", text: "use flood fill or a flood", want: []string{"flood"}},
		{name: "no match", text: "The budget was approved.", want: []string{}},
		{name: "empty", text: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := c.Predict(context.Background(), tt.text)
			require.NoError(t, err)
			assert.NotNil(t, spans)
			assert.Equal(t, tt.want, spanTexts(tt.text, spans))
			for _, s := range spans {
				assert.Equal(t, "Q374", s.Label)
			}
		})
	}
}

func TestClassifier_CharacterOffsets(t *testing.T) {
	c, err := New(&core.Concept{ID: "Q1", PreferredLabel: "inondation"})
	require.NoError(t, err)

	spans, err := c.Predict(context.Background(), "Après l'inondation, les dégâts")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 8, spans[0].Start)
	assert.Equal(t, 18, spans[0].End)
}

func TestClassifier_PredictBatch(t *testing.T) {
	c, err := New(flood())
	require.NoError(t, err)
	batch, ok := c.(ai.BatchClassifier)
	require.True(t, ok)

	out, err := batch.PredictBatch(context.Background(), []string{"flood", "dry", "inundation"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 1)
	assert.Empty(t, out[1])
	assert.Len(t, out[2], 1)
}

func TestClassifier_CancelledContext(t *testing.T) {
	c, err := New(flood())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Predict(ctx, "flood")
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifier_Identity(t *testing.T) {
	a, err := New(flood())
	require.NoError(t, err)
	b, err := New(flood())
	require.NoError(t, err)

	changed := flood()
	changed.AlternativeLabels = append(changed.AlternativeLabels, "deluge")
	c, err := New(changed)
	require.NoError(t, err)

	assert.Equal(t, Name, a.Name())
	assert.Equal(t, `KeywordClassifier("flood")`, a.String())
	assert.Len(t, a.ID(), 8)
	assert.Equal(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
}

func TestNew_InvalidConcept(t *testing.T) {
	_, err := New(&core.Concept{ID: "Q1"})
	require.ErrorIs(t, err, core.ErrInvalidConcept)

	_, err = New(&core.Concept{ID: "Q1", PreferredLabel: "   "})
	require.ErrorIs(t, err, core.ErrInvalidConcept)
}

func TestFactory(t *testing.T) {
	c, err := NewFactory().Create(context.Background(), flood())
	require.NoError(t, err)
	assert.Equal(t, Name, c.Name())
}
