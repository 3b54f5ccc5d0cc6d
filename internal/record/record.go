// Package record defines the result schema shared by the execution engine,
// result sinks, the history store, and reporting.
package record

import (
	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/meta"
)

// ResultRecord is the immutable outcome of one benchmark case. Exactly one
// record is produced per case, in discovery order.
type ResultRecord struct {
	// Label identifies the case: the function name plus a stable
	// rendering of its arguments. Reproducible across runs with
	// identical inputs.
	Label string `json:"case"`

	// Function is the benchmark function's name.
	Function string `json:"function"`

	// Args is the bound argument mapping; empty for non-parametrized
	// cases.
	Args map[string]any `json:"args,omitempty"`

	// Timings holds the raw per-sample elapsed seconds, in invocation
	// order, with length equal to the resolved repeat count. The engine
	// never aggregates; empty for skipped or errored cases.
	Timings []float64 `json:"timings"`

	// Skipped marks a case whose skip predicate evaluated true. The
	// function was never invoked.
	Skipped bool `json:"skipped,omitempty"`

	// SkipReason carries the skip annotation's reason.
	SkipReason string `json:"skip_reason,omitempty"`

	// Error captures a panic raised during setup, warmup or timing. Set
	// instead of timings; the run continues with the next case.
	Error string `json:"error,omitempty"`

	// Config is the resolved configuration the case ran under.
	Config config.Config `json:"config"`

	// Meta is the run-level environment snapshot, identical for every
	// record of a run.
	Meta meta.Metadata `json:"meta"`

	// Extra is optional per-function metadata from the registry.
	Extra map[string]any `json:"extra,omitempty"`
}

// Outcome classifies a record for summary counting.
type Outcome int

const (
	// OutcomeCompleted means the case produced timing samples.
	OutcomeCompleted Outcome = iota
	// OutcomeSkipped means the skip predicate fired.
	OutcomeSkipped
	// OutcomeErrored means the benchmark function panicked.
	OutcomeErrored
)

// Outcome returns the record's classification.
func (r ResultRecord) Outcome() Outcome {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case r.Error != "":
		return OutcomeErrored
	default:
		return OutcomeCompleted
	}
}
