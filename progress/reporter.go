// Package progress reports the advancement of long-running work under
// string keys.
//
// Work is reported as a fraction in [0, 1] per key. A Reporter may forward
// progress to logs, metrics gauges or an external tracker; Tracker turns
// item counts into throttled reports.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// OverallKey is the key under which batch-level progress is reported.
const OverallKey = "overall-inference"

// ConceptKey returns the progress key for a concept work unit.
func ConceptKey(conceptID string) string {
	return "concept-" + strings.ToLower(conceptID)
}

// Reporter receives progress updates. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(ctx context.Context, key string, fraction float64, description string) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, key string, fraction float64, description string) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, key string, fraction float64, description string) error {
	return f(ctx, key, fraction, description)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, string, float64, string) error { return nil }

// Nop discards every update.
var Nop Reporter = nopReporter{}

// LogReporter writes updates to a structured logger at info level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a reporter writing to logger, or to the default
// logger when nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger.With("component", "progress")}
}

// Report logs the update.
func (r *LogReporter) Report(ctx context.Context, key string, fraction float64, description string) error {
	r.logger.InfoContext(ctx, description, "key", key, "percent", fraction*100)
	return nil
}

// Multi fans each update out to every reporter and joins their errors.
type Multi []Reporter

// Report forwards the update to all reporters, even after a failure.
func (m Multi) Report(ctx context.Context, key string, fraction float64, description string) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, key, fraction, description); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop
	}
	return r
}
