// Package gobench is the public registration surface for benchmark
// functions.
//
// Benchmark modules are Go files named bench_*.go inside the benchmark
// directory (default "benchmarks"). Each benchmark is a function whose name
// starts with bench_, registered from the module's init function:
//
//	func init() {
//		gobench.Register(bench_sort,
//			gobench.WithConfig(gobench.Override{Number: gobench.Uint(10)}),
//			gobench.Parametrize(
//				gobench.Values("n", 100, 1000),
//			),
//		)
//	}
//
//	func bench_sort(args gobench.Args) {
//		n := args["n"].(int)
//		// ... code under measurement ...
//	}
//
// Registration attaches metadata in a side table keyed by function identity;
// the function itself is never wrapped, and the execution engine invokes it
// exactly as declared. Annotations for distinct concerns (config, skip,
// parametrize, setup, metadata) compose in any order; annotations for the
// same concern apply last-wins.
package gobench

import (
	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/params"
	"github.com/gobench-cli/gobench/internal/registry"
)

// Args is the argument mapping bound to a parametrized benchmark case.
// Non-parametrized benchmarks receive an empty map.
type Args = registry.Args

// Option attaches one piece of metadata during Register.
type Option = registry.Option

// Override is a partial configuration; nil fields fall through to the
// project file and then the built-in defaults.
type Override = config.Override

// ValueList is one named value sequence for Parametrize.
type ValueList = params.ValueList

// Register attaches fn and its metadata to the process-wide registry.
// The function name must start with "bench_". Panics on a nil function or a
// non-conforming name, both of which are programming errors in the
// benchmark module itself.
func Register(fn func(Args), opts ...Option) {
	if err := registry.Default().Register(fn, opts...); err != nil {
		panic(err)
	}
}

// WithConfig overrides configuration fields for this benchmark only.
// Decorator-level values take precedence over the project file, which takes
// precedence over built-in defaults.
func WithConfig(ov Override) Option {
	return registry.WithConfig(ov)
}

// SkipIf skips the benchmark when cond is true. The condition is fixed at
// registration time.
func SkipIf(cond bool, reason string) Option {
	return registry.SkipIf(cond, reason)
}

// SkipWhen skips the benchmark when pred returns true. The predicate is
// evaluated when the case executes, never at discovery, so it may depend on
// the runtime environment.
func SkipWhen(pred func() bool, reason string) Option {
	return registry.SkipWhen(pred, reason)
}

// Parametrize expands the benchmark over the Cartesian product of the given
// value lists. Lists iterate in declaration order with the last list
// varying fastest: Values("a", 1, 2) then Values("b", 5, 8, 9) yields
// a=1,b=5; a=1,b=8; a=1,b=9; a=2,b=5; a=2,b=8; a=2,b=9.
func Parametrize(lists ...ValueList) Option {
	return registry.Parametrize(lists...)
}

// ParametrizeRows expands the benchmark over literal argument rows, one case
// per row in declared order. Every row's arity must equal len(names).
func ParametrizeRows(names []string, rows ...[]any) Option {
	return registry.ParametrizeRows(names, rows...)
}

// Values builds one named value list for Parametrize.
func Values(name string, values ...any) ValueList {
	return ValueList{Name: name, Values: values}
}

// Setup transforms the bound arguments once per case, before warmup and
// outside any timed region. Use it to build inputs whose construction should
// not be measured.
func Setup(fn func(Args) Args) Option {
	return registry.Setup(fn)
}

// Meta attaches free-form metadata merged into this benchmark's result
// records.
func Meta(kv map[string]any) Option {
	return registry.Meta(kv)
}

// Uint returns a pointer for optional Override fields.
func Uint(v uint) *uint { return &v }

// Bool returns a pointer for optional Override fields.
func Bool(v bool) *bool { return &v }

// String returns a pointer for optional Override fields.
func String(v string) *string { return &v }
