package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	key      string
	fraction float64
}

type recorder struct {
	mu      sync.Mutex
	updates []update
	err     error
}

func (r *recorder) Report(_ context.Context, key string, fraction float64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update{key: key, fraction: fraction})
	return r.err
}

func (r *recorder) fractions() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.fraction
	}
	return out
}

func TestConceptKey(t *testing.T) {
	assert.Equal(t, "concept-q374", ConceptKey("Q374"))
}

func TestTracker_Cadence(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	tr := NewTracker(rec, "concept-q1", 120, 50)

	tr.Start()
	for i := 0; i < 120; i++ {
		tr.Increment(ctx, 1)
	}

	// Every 50 steps, then the final partial interval.
	assert.Equal(t, []float64{50.0 / 120, 100.0 / 120, 1}, rec.fractions())
	assert.Equal(t, 120, tr.Current())
}

func TestTracker_FinalStepOnInterval(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	tr := NewTracker(rec, "k", 100, 50)

	tr.Start()
	for i := 0; i < 100; i++ {
		tr.Increment(ctx, 1)
	}

	// The last interval and the final step coincide and are reported once.
	assert.Equal(t, []float64{0.5, 1}, rec.fractions())
}

func TestTracker_IgnoresUpdatesBeforeStart(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, "k", 10, 1)

	tr.Increment(context.Background(), 5)
	tr.Finish(context.Background())

	assert.Empty(t, rec.fractions())
	assert.Zero(t, tr.Elapsed())
}

func TestTracker_CapsAtTotal(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, "k", 3, 1)
	tr.Start()
	tr.Increment(context.Background(), 10)

	assert.Equal(t, 3, tr.Current())
	assert.Equal(t, []float64{1}, rec.fractions())
}

func TestTracker_SwallowsReporterErrors(t *testing.T) {
	rec := &recorder{err: errors.New("tracker offline")}
	tr := NewTracker(rec, "k", 2, 1)

	require.NotPanics(t, func() {
		tr.Start()
		tr.Increment(context.Background(), 1)
		tr.Finish(context.Background())
	})
	assert.Len(t, rec.fractions(), 2)
}

func TestTracker_EmptyTotal(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, "k", 0, 50)
	tr.Start()
	tr.Finish(context.Background())

	assert.Equal(t, []float64{1}, rec.fractions())
}

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("b failed")}
	c := &recorder{}

	err := Multi{a, nil, b, c}.Report(context.Background(), OverallKey, 0.5, "half")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	assert.Len(t, a.fractions(), 1)
	assert.Len(t, c.fractions(), 1)
}

func TestReporterFuncAndNop(t *testing.T) {
	var got string
	r := ReporterFunc(func(_ context.Context, key string, _ float64, _ string) error {
		got = key
		return nil
	})
	require.NoError(t, r.Report(context.Background(), "x", 0, ""))
	assert.Equal(t, "x", got)

	assert.NoError(t, Nop.Report(context.Background(), "x", 0, ""))
	assert.Equal(t, Nop, OrNop(nil))
	assert.NoError(t, NewLogReporter(nil).Report(context.Background(), "x", 1, "done"))
}
