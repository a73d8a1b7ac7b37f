package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Tracker counts completed steps of a known total and reports the fraction
// done every reportInterval steps and on the final step.
// Reporter errors are logged and never returned.
type Tracker struct {
	reporter       Reporter
	key            string
	unit           string
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	logger         *slog.Logger
	mu             sync.Mutex
}

// NewTracker creates a new progress tracker.
// key: progress key reported under
// total: total number of steps
// reportInterval: report progress every N steps
func NewTracker(reporter Reporter, key string, total, reportInterval int) *Tracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Tracker{
		reporter:       OrNop(reporter),
		key:            key,
		unit:           "batches",
		total:          total,
		reportInterval: reportInterval,
		logger:         slog.Default().With("component", "progress-tracker", "key", key),
	}
}

// WithUnit sets the noun used in report descriptions.
func (p *Tracker) WithUnit(unit string) *Tracker {
	p.unit = unit
	return p
}

// Start begins tracking progress. It does not report; callers announce
// the start of their work themselves.
func (p *Tracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment increases the current progress by delta steps.
func (p *Tracker) Increment(ctx context.Context, delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval || (p.current == p.total && p.lastReported != p.total) {
		p.report(ctx)
		p.lastReported = p.current
	}
}

// Finish marks the work complete and reports it.
func (p *Tracker) Finish(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.lastReported = p.total
	p.report(ctx)
}

// Current returns the number of completed steps.
func (p *Tracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed returns the time elapsed since Start was called.
func (p *Tracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report sends the current progress. Must be called with lock held.
func (p *Tracker) report(ctx context.Context) {
	fraction := 1.0
	if p.total > 0 {
		fraction = float64(p.current) / float64(p.total)
	}

	rate := 0.0
	if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	description := fmt.Sprintf("%d/%d %s (%.1f%%) - %.1f %s/s",
		p.current, p.total, p.unit, fraction*100, rate, p.unit)
	if err := p.reporter.Report(ctx, p.key, fraction, description); err != nil {
		p.logger.Warn("failed to report progress", "err", err)
	}
}
