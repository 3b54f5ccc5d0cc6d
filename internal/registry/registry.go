// Package registry is the side-table that attaches benchmark metadata to
// functions without wrapping them.
//
// Registering a configuration override, a skip predicate, or a
// parametrization spec never changes how the function is invoked: the
// execution engine always calls the bare registered function. Metadata is
// keyed by function identity (the function pointer), and the function's name
// and defining source file are captured through runtime introspection so the
// discovery engine can pair source declarations with registered callables.
package registry

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/params"
)

// Prefix is the naming convention for benchmark functions and modules.
const Prefix = "bench_"

// Args is the name→value argument mapping bound to a parametrized case.
// Non-parametrized benchmarks receive an empty map.
type Args map[string]any

// Fn is a registered benchmark function.
type Fn func(Args)

// SkipKind discriminates the skip-predicate variants.
type SkipKind int

const (
	// SkipNone means no skip annotation is attached.
	SkipNone SkipKind = iota
	// SkipLiteral is a boolean fixed at registration time.
	SkipLiteral
	// SkipDeferred is a zero-argument predicate evaluated at execution
	// time, never at discovery time, so it may consult the runtime
	// environment.
	SkipDeferred
)

// Skip is the skip-predicate variant attached to a benchmark.
type Skip struct {
	Kind    SkipKind
	Literal bool
	Fn      func() bool
	Reason  string
}

// Evaluate resolves the predicate. Called once per case at SKIP_CHECK.
func (s Skip) Evaluate() bool {
	switch s.Kind {
	case SkipLiteral:
		return s.Literal
	case SkipDeferred:
		return s.Fn()
	default:
		return false
	}
}

// Entry is the metadata record for one registered benchmark function.
type Entry struct {
	// Name is the function's base name (must start with Prefix).
	Name string

	// File is the absolute path of the defining source file, as recorded
	// by the build. Discovery matches it against walked module paths by
	// trailing path components.
	File string

	// Fn is the callable itself, invoked unwrapped by the engine.
	Fn Fn

	// Config is the per-function override layer.
	Config config.Override

	// Skip is the optional skip predicate.
	Skip Skip

	// Params is the optional parametrization spec.
	Params *params.Spec

	// ParamsErr records a malformed parametrization. The error is raised
	// at construction but only kills this function's case group, so it is
	// carried here instead of failing registration.
	ParamsErr error

	// Setup optionally transforms the bound arguments once per case,
	// before warmup and outside any timed region.
	Setup func(Args) Args

	// Meta is per-function metadata merged into the function's records.
	Meta map[string]any
}

// Option mutates an Entry during registration. Options for distinct
// metadata slots compose commutatively; options writing the same slot apply
// last-wins.
type Option func(*Entry)

// Registry maps function identity to metadata.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[entryKey]*Entry
	ordered []*Entry
}

// entryKey identifies a registered function by its defining source file and
// name. Keeping the full file path lets modules with equal base names in
// different directories coexist.
type entryKey struct {
	file string
	name string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byKey: make(map[entryKey]*Entry)}
}

var defaultRegistry = New()

// Default returns the process-wide registry that the public API registers
// into and that discovery consults.
func Default() *Registry {
	return defaultRegistry
}

// Register attaches metadata to fn. The function's name and defining file
// are recovered from the runtime; the base name must carry the bench_
// prefix. Re-registering the same function replaces its previous entry.
func (r *Registry) Register(fn Fn, opts ...Option) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil benchmark function")
	}

	pc := reflect.ValueOf(fn).Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return fmt.Errorf("cannot resolve benchmark function identity")
	}

	name := baseFuncName(rf.Name())
	if !strings.HasPrefix(name, Prefix) {
		return fmt.Errorf("benchmark function %q must have the %q prefix", name, Prefix)
	}

	file, _ := rf.FileLine(pc)

	entry := &Entry{Name: name, File: file, Fn: fn}
	for _, opt := range opts {
		opt(entry)
	}

	r.add(entry)
	return nil
}

// RegisterEntry inserts a fully populated entry. Used by tests and tooling
// that construct entries without live function pointers.
func (r *Registry) RegisterEntry(entry *Entry) {
	r.add(entry)
}

func (r *Registry) add(entry *Entry) {
	key := entryKey{file: filepath.Clean(entry.File), name: entry.Name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byKey[key]; ok {
		// Replace in place to keep registration order stable.
		for i, e := range r.ordered {
			if e == prev {
				r.ordered[i] = entry
				break
			}
		}
	} else {
		r.ordered = append(r.ordered, entry)
	}
	r.byKey[key] = entry
}

// Lookup finds the entry for a function name declared in the module at
// path. The registered defining file (an absolute path recorded by the
// build) and the walked module path are matched by their trailing path
// components: the entry sharing the most components wins, so modules with
// equal base names in different directories resolve to their own entries.
// Ties keep the earliest registration.
func (r *Registry) Lookup(path, name string) (*Entry, bool) {
	cleaned := filepath.Clean(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Entry
	bestDepth := 0
	for _, e := range r.ordered {
		if e.Name != name {
			continue
		}
		if d := suffixComponents(filepath.Clean(e.File), cleaned); d > bestDepth {
			best, bestDepth = e, d
		}
	}
	return best, best != nil
}

// suffixComponents counts the trailing path components a and b share.
// Zero when even the base names differ.
func suffixComponents(a, b string) int {
	n := 0
	for {
		ab, bb := filepath.Base(a), filepath.Base(b)
		if ab != bb || ab == "." || ab == "/" || ab == string(filepath.Separator) {
			return n
		}
		n++
		ad, bd := filepath.Dir(a), filepath.Dir(b)
		if ad == a || bd == b {
			return n
		}
		a, b = ad, bd
	}
}

// Len returns the number of registered benchmarks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// baseFuncName strips the package path from a runtime function name,
// e.g. "example.com/pkg.bench_sort" → "bench_sort".
func baseFuncName(full string) string {
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}

// WithConfig attaches a per-function configuration override.
func WithConfig(ov config.Override) Option {
	return func(e *Entry) { e.Config = ov }
}

// SkipIf attaches a literal skip condition fixed at registration time.
func SkipIf(cond bool, reason string) Option {
	return func(e *Entry) {
		e.Skip = Skip{Kind: SkipLiteral, Literal: cond, Reason: reason}
	}
}

// SkipWhen attaches a deferred skip predicate evaluated at execution time.
func SkipWhen(pred func() bool, reason string) Option {
	return func(e *Entry) {
		e.Skip = Skip{Kind: SkipDeferred, Fn: pred, Reason: reason}
	}
}

// Parametrize attaches a named-lists parametrization: the Cartesian product
// over the declared lists, last list varying fastest.
func Parametrize(lists ...params.ValueList) Option {
	spec, err := params.NamedLists(lists...)
	return func(e *Entry) {
		e.Params, e.ParamsErr = spec, err
	}
}

// ParametrizeRows attaches a tuple-rows parametrization: each row is one
// case, in declared order.
func ParametrizeRows(names []string, rows ...[]any) Option {
	spec, err := params.TupleRows(names, rows)
	return func(e *Entry) {
		e.Params, e.ParamsErr = spec, err
	}
}

// Setup attaches a per-case argument transform, run once before warmup and
// outside the timed region.
func Setup(fn func(Args) Args) Option {
	return func(e *Entry) { e.Setup = fn }
}

// Meta attaches per-function metadata merged into the function's result
// records.
func Meta(kv map[string]any) Option {
	return func(e *Entry) { e.Meta = kv }
}
