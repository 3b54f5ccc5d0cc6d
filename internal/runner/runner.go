// Package runner is the timing and execution engine.
//
// Each case moves through a fixed state machine:
//
//	PENDING → SKIP_CHECK → { SKIPPED | SETUP → WARMUP → TIMING → DONE }
//
// with a terminal ERROR state reachable from setup, warmup and timing when
// the benchmark function panics. Failures are isolated per case: an errored
// case produces a failed record and the run continues.
//
// Timing follows the repeat/number convention: repeat independent samples,
// each sample the total elapsed time of number back-to-back calls. The
// engine emits raw samples only; aggregation belongs downstream.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/registry"
	"github.com/gobench-cli/gobench/internal/sink"
)

// Engine executes benchmark cases one at a time.
type Engine struct {
	// Collector is the garbage-collector handle, disabled around each
	// timing sample when the case config says so.
	Collector CollectorHandle
}

// New returns an engine bound to the real runtime collector.
func New() *Engine {
	return &Engine{Collector: RuntimeCollector{}}
}

// Execute runs one case to completion and produces its result record.
func (e *Engine) Execute(c discover.Case, md meta.Metadata) record.ResultRecord {
	rec := record.ResultRecord{
		Label:    c.Label,
		Function: c.Spec.Name,
		Args:     c.Args,
		Config:   c.Config,
		Meta:     md,
		Extra:    c.Spec.Meta,
	}

	// SKIP_CHECK: the predicate takes no arguments and the function is
	// never invoked for a skipped case.
	if c.Spec.Skip.Evaluate() {
		rec.Skipped = true
		rec.SkipReason = skipReason(c.Spec.Skip)
		rec.Timings = []float64{}
		return rec
	}

	args := c.Args
	if c.Spec.Setup != nil {
		transformed, err := runSetup(c.Spec.Setup, args)
		if err != nil {
			rec.Error = err.Error()
			return rec
		}
		args = transformed
	}

	// WARMUP: untimed invocations; a panic aborts this case only.
	for i := uint(0); i < c.Config.Warmups; i++ {
		if err := invoke(c.Spec.Fn, args); err != nil {
			rec.Error = fmt.Sprintf("warmup %d: %v", i+1, err)
			return rec
		}
	}

	// TIMING: repeat samples of number calls each.
	timings := make([]float64, 0, c.Config.Repeat)
	for i := uint(0); i < c.Config.Repeat; i++ {
		sec, err := e.sample(c.Spec.Fn, args, c.Config.Number, !c.Config.GarbageCollection)
		if err != nil {
			rec.Error = fmt.Sprintf("sample %d: %v", i+1, err)
			return rec
		}
		timings = append(timings, sec)
	}

	rec.Timings = timings
	return rec
}

// sample times number back-to-back invocations as one elapsed measurement.
// The collector is disabled for the duration of the sample and restored
// unconditionally, panic or not.
func (e *Engine) sample(fn registry.Fn, args registry.Args, number uint, disableGC bool) (sec float64, err error) {
	if disableGC {
		restore := e.Collector.Disable()
		defer restore()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("benchmark panicked: %v", r)
		}
	}()

	start := time.Now()
	for i := uint(0); i < number; i++ {
		fn(args)
	}
	return time.Since(start).Seconds(), nil
}

func invoke(fn registry.Fn, args registry.Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("benchmark panicked: %v", r)
		}
	}()

	fn(args)
	return nil
}

func runSetup(setup func(registry.Args) registry.Args, args registry.Args) (out registry.Args, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup panicked: %v", r)
		}
	}()

	return setup(args), nil
}

func skipReason(s registry.Skip) string {
	if s.Reason != "" {
		return s.Reason
	}
	return "skip condition evaluated true"
}

// Summary counts case outcomes for the run report. Individual skips and
// errors never fail the run; only pre-execution errors do.
type Summary struct {
	Completed   int
	Skipped     int
	Errored     int
	Interrupted bool
	Elapsed     time.Duration
}

// Total returns the number of cases that produced a record.
func (s Summary) Total() int {
	return s.Completed + s.Skipped + s.Errored
}

// Session runs an ordered case list sequentially. Benchmarks are timed one
// at a time because concurrent execution would add scheduling noise to the
// measurements.
type Session struct {
	Engine *Engine

	// Cases in discovery order.
	Cases []discover.Case

	// Meta is the once-per-run snapshot merged into every record.
	Meta meta.Metadata

	// Sink receives records in discovery order. Optional.
	Sink sink.Sink

	// Progress, when set, is called after each case with its record.
	// It runs outside any timed region.
	Progress func(index int, c discover.Case, rec record.ResultRecord)
}

// Run executes every case and returns the records in discovery order.
//
// Cancellation is honored only at case boundaries: a running case finishes
// its current sample sequence before the interrupt takes effect.
func (s *Session) Run(ctx context.Context) ([]record.ResultRecord, Summary, error) {
	engine := s.Engine
	if engine == nil {
		engine = New()
	}

	start := time.Now()
	records := make([]record.ResultRecord, 0, len(s.Cases))
	var sum Summary

	for i, c := range s.Cases {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}

		rec := engine.Execute(c, s.Meta)
		records = append(records, rec)

		switch rec.Outcome() {
		case record.OutcomeSkipped:
			sum.Skipped++
		case record.OutcomeErrored:
			sum.Errored++
		default:
			sum.Completed++
		}

		if s.Sink != nil {
			if err := s.Sink.Append(rec); err != nil {
				return records, sum, fmt.Errorf("failed to persist result for %s: %w", rec.Label, err)
			}
		}

		if s.Progress != nil {
			s.Progress(i, c, rec)
		}
	}

	sum.Elapsed = time.Since(start)
	return records, sum, nil
}
