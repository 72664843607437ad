// Package app orchestrates report generation as a batch of independent
// output units: every table is produced on its own, over the same immutable
// loaded datasets, so one failing output never aborts its siblings.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gotlf/domain/core"
	"gotlf/domain/result"
	"gotlf/internal"
	"gotlf/ports"

	"golang.org/x/sync/semaphore"
)

// Output is one independent unit of report work. Estimates, when set, is
// called after a successful Produce to expose model estimates for the
// archive.
type Output struct {
	Name      string
	Produce   func(ctx context.Context) (*result.Table, error)
	Estimates func() []result.EffectEstimate
}

// OutputResult is the outcome of one output unit. Exactly one of Table and
// Err is set; errors carry the dataset/population/column context attached
// where they arose.
type OutputResult struct {
	ID        core.OutputID
	Name      string
	Table     *result.Table
	Estimates []result.EffectEstimate
	Err       error
	Elapsed   time.Duration
}

// RunReport summarizes one batch execution
type RunReport struct {
	RunID      core.RunID
	StartedAt  core.Timestamp
	FinishedAt core.Timestamp
	Results    []OutputResult
}

// Failed returns the number of outputs that errored
func (r RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Runner executes output units with bounded concurrency. Parallelism is
// safe by construction: producers only read the loaded tables.
type Runner struct {
	sem    *semaphore.Weighted
	logger *internal.Logger
	store  ports.ResultStore // optional archive
}

// NewRunner creates a runner with the given concurrency limit and an
// optional result store (nil disables archiving).
func NewRunner(maxConcurrent int64, store ports.ResultStore) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: internal.DefaultLogger,
		store:  store,
	}
}

// Run executes all outputs and collects per-unit results in input order.
// A producer error or panic marks only that unit as failed.
func (r *Runner) Run(ctx context.Context, outputs []Output) RunReport {
	report := RunReport{
		RunID:     core.RunID(core.NewID()),
		StartedAt: core.Now(),
		Results:   make([]OutputResult, len(outputs)),
	}
	r.logger.Info("run %s: %d outputs", report.RunID, len(outputs))

	var wg sync.WaitGroup
	for i, out := range outputs {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			report.Results[i] = OutputResult{
				ID:   core.OutputID(core.NewID()),
				Name: out.Name,
				Err:  fmt.Errorf("output %s not started: %w", out.Name, err),
			}
			continue
		}
		wg.Add(1)
		go func(i int, out Output) {
			defer wg.Done()
			defer r.sem.Release(1)
			report.Results[i] = r.runOne(ctx, out)
		}(i, out)
	}
	wg.Wait()

	report.FinishedAt = core.Now()
	r.logger.Info("run %s finished: %d ok, %d failed",
		report.RunID, len(outputs)-report.Failed(), report.Failed())

	if r.store != nil {
		r.archive(ctx, report)
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, out Output) (res OutputResult) {
	res = OutputResult{ID: core.OutputID(core.NewID()), Name: out.Name}
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if rec := recover(); rec != nil {
			res.Table = nil
			res.Err = fmt.Errorf("output %s panicked: %v", out.Name, rec)
		}
		if res.Err != nil {
			// Structural input errors are bad data, not pipeline faults.
			if core.IsStructuralError(res.Err) {
				r.logger.Warn("output %s failed: %v", out.Name, res.Err)
			} else {
				r.logger.Error("output %s failed: %v", out.Name, res.Err)
			}
		} else {
			r.logger.Debug("output %s done in %s", out.Name, res.Elapsed)
		}
	}()

	tbl, err := out.Produce(ctx)
	if err != nil {
		res.Err = fmt.Errorf("output %s: %w", out.Name, err)
		return res
	}
	res.Table = tbl
	if out.Estimates != nil {
		res.Estimates = out.Estimates()
	}
	return res
}

// archive persists the run and its successful tables; archive failures are
// logged, never propagated into output results.
func (r *Runner) archive(ctx context.Context, report RunReport) {
	rec := ports.RunRecord{
		ID:         report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Outputs:    len(report.Results),
		Failed:     report.Failed(),
	}
	if err := r.store.SaveRun(ctx, rec); err != nil {
		r.logger.Warn("archive run %s: %v", report.RunID, err)
		return
	}
	for _, res := range report.Results {
		if res.Err != nil || res.Table == nil {
			continue
		}
		if err := r.store.SaveTable(ctx, report.RunID, res.Name, res.Table); err != nil {
			r.logger.Warn("archive output %s: %v", res.Name, err)
			continue
		}
		if len(res.Estimates) > 0 {
			if err := r.store.SaveEstimates(ctx, report.RunID, res.Name, res.Estimates); err != nil {
				r.logger.Warn("archive estimates of %s: %v", res.Name, err)
			}
		}
	}
}
