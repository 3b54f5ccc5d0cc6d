package discover

import (
	"fmt"
	"strings"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/params"
	"github.com/gobench-cli/gobench/internal/registry"
)

// Case is one concrete, runnable benchmark unit. Consumed read-only by the
// execution engine.
type Case struct {
	// Spec points back to the discovered benchmark.
	Spec *BenchmarkSpec

	// Args is the bound argument mapping; empty when not parametrized.
	Args registry.Args

	// ArgNames preserves declared argument order for label rendering.
	ArgNames []string

	// Config is the configuration resolved for this case, immutable.
	Config config.Config

	// Label identifies the case across runs: the function name plus a
	// stable rendering of Args in declared-name order.
	Label string
}

// BuildCases resolves configuration and expands parametrization for every
// spec, preserving discovery order.
//
// A configuration that resolves invalid is fatal for the whole run and
// returned as error. A parametrization failure kills only that spec's case
// group and is recorded as a SpecFailure.
func BuildCases(specs []BenchmarkSpec, defaults config.Config, fileOverride config.Override) ([]Case, []SpecFailure, error) {
	var (
		cases    []Case
		failures []SpecFailure
	)

	for i := range specs {
		spec := &specs[i]

		cfg, err := config.Resolve(defaults, fileOverride, spec.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("benchmark %s: %w", spec.Name, err)
		}

		if spec.ParamsErr != nil {
			failures = append(failures, SpecFailure{Spec: spec.Name, Err: spec.ParamsErr})
			continue
		}

		if spec.Params == nil {
			cases = append(cases, Case{
				Spec:   spec,
				Args:   registry.Args{},
				Config: cfg,
				Label:  spec.Name,
			})
			continue
		}

		bindings, err := params.Expand(spec.Params)
		if err != nil {
			failures = append(failures, SpecFailure{Spec: spec.Name, Err: err})
			continue
		}

		for _, b := range bindings {
			cases = append(cases, Case{
				Spec:     spec,
				Args:     registry.Args(b.Values),
				ArgNames: b.Names,
				Config:   cfg,
				Label:    caseLabel(spec.Name, b),
			})
		}
	}

	return cases, failures, nil
}

// caseLabel renders "name[a=1,b=5]" with arguments in declared-name order,
// so identical inputs always produce the identical label.
func caseLabel(name string, b params.Binding) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('[')
	for i, argName := range b.Names {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%v", argName, b.Values[argName])
	}
	sb.WriteByte(']')
	return sb.String()
}
