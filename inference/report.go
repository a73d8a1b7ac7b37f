package inference

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/vibecheck/core"
)

// Outcome is what one work unit left behind: a result, or an error the
// unit could not turn into a failed result.
type Outcome struct {
	ConceptID string
	Result    *core.ConceptResult
	Err       error
}

// Report collects the outcomes of a batch run.
type Report struct {
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Results returns every result, successful or failed, in submission order.
func (r *Report) Results() []core.ConceptResult {
	out := make([]core.ConceptResult, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Result != nil {
			out = append(out, *o.Result)
		}
	}
	return out
}

// Successful returns the successful results sorted by concept id.
func (r *Report) Successful() []core.ConceptResult {
	return r.byStatus(core.StatusSuccess)
}

// Failed returns the failed results sorted by concept id.
func (r *Report) Failed() []core.ConceptResult {
	return r.byStatus(core.StatusFailed)
}

// Errored returns outcomes without a result sorted by concept id.
func (r *Report) Errored() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Result == nil {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b Outcome) int {
		return cmp.Compare(a.ConceptID, b.ConceptID)
	})
	return out
}

func (r *Report) byStatus(status core.Status) []core.ConceptResult {
	var out []core.ConceptResult
	for _, o := range r.Outcomes {
		if o.Result != nil && o.Result.Status == status {
			out = append(out, *o.Result)
		}
	}
	slices.SortFunc(out, func(a, b core.ConceptResult) int {
		return cmp.Compare(a.ConceptID, b.ConceptID)
	})
	return out
}

// LogSummary writes one line per concept and a final tally.
func (r *Report) LogSummary(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	successful := r.Successful()
	failed := r.Failed()
	errored := r.Errored()

	logger.Info("completed processing all concepts", "elapsed", r.Elapsed)
	for _, res := range successful {
		logger.Info(fmt.Sprintf("✓ %s: %d/%d (%.2f%%) - %s",
			res.ConceptID, res.NPositivePassages, res.NPassages, res.Percentage, res.OutputPrefix))
	}

	if n := len(failed) + len(errored); n > 0 {
		logger.Warn(fmt.Sprintf("%d concepts failed to process", n))
	}
	for _, res := range failed {
		logger.Error(fmt.Sprintf("✗ %s: %s", res.ConceptID, res.Error))
	}
	for _, o := range errored {
		logger.Error(fmt.Sprintf("✗ %s: %v", o.ConceptID, o.Err))
	}

	logger.Info(fmt.Sprintf("Successfully processed %d/%d concepts", len(successful), len(r.Outcomes)))
}
