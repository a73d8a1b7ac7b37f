package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConcept(t *testing.T) {
	m := NewMetrics(Config{})

	m.ObserveConcept(core.StatusSuccess, 2*time.Second)
	m.ObserveConcept(core.StatusSuccess, time.Second)
	m.ObserveConcept(core.StatusFailed, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conceptsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conceptsTotal.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.conceptDuration))
}

func TestObserveSelection(t *testing.T) {
	m := NewMetrics(Config{})

	m.ObserveSelection(10_000, false)
	m.ObserveSelection(3, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.underfilledTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.selectedPassages))
}

func TestReportSetsGauge(t *testing.T) {
	m := NewMetrics(Config{})

	require.NoError(t, m.Report(context.Background(), "concept-q1", 0.25, "25%"))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.progressPercent.WithLabelValues("concept-q1")))

	require.NoError(t, m.Report(context.Background(), "concept-q1", 1, "done"))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.progressPercent.WithLabelValues("concept-q1")))
}

func TestHandler(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "vibecheck-test", EnableDefaultCollectors: true})
	m.ObserveConcept(core.StatusSuccess, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vibecheck_concepts_total{service="vibecheck-test",status="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServeStopsOnCancel(t *testing.T) {
	m := NewMetrics(Config{Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
