package inference

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/vibecheck/core"
	"github.com/stretchr/testify/assert"
)

func testReport() *Report {
	return &Report{Outcomes: []Outcome{
		{ConceptID: "Q9", Result: &core.ConceptResult{Status: core.StatusSuccess, ConceptID: "Q9", NPassages: 10, NPositivePassages: 4, Percentage: 40, OutputPrefix: "Q9/abc"}},
		{ConceptID: "Q2", Result: &core.ConceptResult{Status: core.StatusFailed, ConceptID: "Q2", NPassages: 10, Error: "connectivity error: timeout"}},
		{ConceptID: "Q5", Err: errors.New("corrupt state")},
		{ConceptID: "Q1", Result: &core.ConceptResult{Status: core.StatusSuccess, ConceptID: "Q1", NPassages: 10, NPositivePassages: 1, Percentage: 10, OutputPrefix: "Q1/def"}},
	}}
}

func TestReport_Partitions(t *testing.T) {
	r := testReport()

	successful := r.Successful()
	assert.Len(t, successful, 2)
	assert.Equal(t, "Q1", successful[0].ConceptID)
	assert.Equal(t, "Q9", successful[1].ConceptID)

	failed := r.Failed()
	assert.Len(t, failed, 1)
	assert.Equal(t, "Q2", failed[0].ConceptID)

	errored := r.Errored()
	assert.Len(t, errored, 1)
	assert.Equal(t, "Q5", errored[0].ConceptID)

	results := r.Results()
	assert.Len(t, results, 3)
	assert.Equal(t, "Q9", results[0].ConceptID, "results keep submission order")
}

func TestReport_LogSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	testReport().LogSummary(logger)

	out := buf.String()
	assert.Contains(t, out, "✓ Q1: 1/10 (10.00%) - Q1/def")
	assert.Contains(t, out, "✓ Q9: 4/10 (40.00%) - Q9/abc")
	assert.Contains(t, out, "✗ Q2: connectivity error: timeout")
	assert.Contains(t, out, "✗ Q5: corrupt state")
	assert.Contains(t, out, "2 concepts failed to process")
	assert.Contains(t, out, "Successfully processed 2/4 concepts")
}

func TestReport_LogSummaryAllSucceeded(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := &Report{Outcomes: []Outcome{
		{ConceptID: "Q1", Result: &core.ConceptResult{Status: core.StatusSuccess, ConceptID: "Q1"}},
	}}
	r.LogSummary(logger)

	assert.NotContains(t, buf.String(), "failed to process")
	assert.Contains(t, buf.String(), "Successfully processed 1/1 concepts")
}
