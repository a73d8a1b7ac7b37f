package inference

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/progress"
)

// Processor handles one concept. *Unit is the production implementation.
type Processor interface {
	Process(ctx context.Context, conceptID string, ds *corpus.Dataset) (core.ConceptResult, error)
}

// Orchestrator runs a processor for many concepts on a fixed-width pool.
type Orchestrator struct {
	processor Processor
	pool      *ants.Pool
	reporter  progress.Reporter
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator with Config.Workers workers.
func NewOrchestrator(processor Processor, opts ...Option) (*Orchestrator, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("component", "orchestrator")

	pool, err := ants.NewPool(o.config.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("worker panicked outside a unit", "panic", p)
	}))
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		processor: processor,
		pool:      pool,
		reporter:  o.reporter,
		logger:    logger,
	}, nil
}

// RunBatch processes every concept and waits for all of them.
//
// The returned report holds exactly one outcome per id, in submission
// order. A unit that fails, errors or panics never affects the
// others. RunBatch itself only fails on invalid input.
func (o *Orchestrator) RunBatch(ctx context.Context, ids []string, ds *corpus.Dataset) (*Report, error) {
	if len(ids) == 0 {
		return nil, core.ErrNoConcepts
	}
	if ds == nil || ds.Corpus == nil {
		return nil, ErrDatasetRequired
	}

	start := time.Now()
	total := len(ids)
	o.report(ctx, 0, fmt.Sprintf("Processing %d concepts", total))
	o.logger.Info("starting parallel inference", "concepts", total, "workers", o.pool.Cap())

	outcomes := make([]Outcome, total)
	var completed atomic.Int64
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			outcomes[i] = o.runOne(ctx, id, ds)

			n := completed.Add(1)
			fraction := float64(n) / float64(total)
			o.report(ctx, fraction, fmt.Sprintf("Completed %d/%d concepts (%.1f%%)", n, total, fraction*100))
		}
		if err := o.pool.Submit(task); err != nil {
			wg.Done()
			o.logger.Error("failed to submit concept", "concept_id", id, "err", err)
			outcomes[i] = Outcome{ConceptID: id, Err: fmt.Errorf("submit concept %s: %w", id, err)}
		}
	}

	o.logger.Info("waiting for all concept inference tasks to complete")
	wg.Wait()

	report := &Report{Outcomes: outcomes, Elapsed: time.Since(start)}
	o.report(ctx, 1, fmt.Sprintf("All concepts processed. %d successful, %d failed",
		len(report.Successful()), len(report.Failed())))
	return report, nil
}

// runOne runs the processor and converts a panic into an errored outcome.
func (o *Orchestrator) runOne(ctx context.Context, id string, ds *corpus.Dataset) (out Outcome) {
	out.ConceptID = id
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("concept unit panicked", "concept_id", id, "panic", r)
			out.Result = nil
			out.Err = &CollectionError{ConceptID: id, Value: r, Stack: debug.Stack()}
		}
	}()

	result, err := o.processor.Process(ctx, id, ds)
	if err != nil {
		o.logger.Error("unexpected error processing concept", "concept_id", id, "err", err)
		out.Err = err
		return out
	}
	out.Result = &result
	return out
}

func (o *Orchestrator) report(ctx context.Context, fraction float64, description string) {
	if err := o.reporter.Report(ctx, progress.OverallKey, fraction, description); err != nil {
		o.logger.Warn("failed to report progress", "err", err)
	}
}

// Release stops the worker pool. The orchestrator should not be used afterwards.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
