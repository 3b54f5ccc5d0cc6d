// Package discover turns a directory tree into an ordered collection of
// runnable benchmark cases.
//
// A module is eligible when its file base name starts with bench_ and ends
// in .go; a function is eligible when its declared name starts with bench_.
// Modules are parsed with go/parser, so a file that fails to parse is a
// per-module load failure: it is recorded, its benchmarks are skipped, and
// the run continues. Traversal is lexicographic path order, which makes two
// discoveries over an unchanged tree element-wise identical; downstream
// result ordering and partition grouping depend on that determinism.
package discover

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/params"
	"github.com/gobench-cli/gobench/internal/registry"
)

// ErrRootNotFound is returned when the benchmark root path does not exist.
var ErrRootNotFound = errors.New("benchmark path does not exist")

// BenchmarkSpec is the static description of one discovered function.
// Never mutated after creation.
type BenchmarkSpec struct {
	// Name is the benchmark function name.
	Name string

	// ModulePath is the path of the defining module file, relative to
	// the walk root when walking a directory.
	ModulePath string

	// Fn is the registered callable.
	Fn registry.Fn

	// Config is the per-function override layer.
	Config config.Override

	// Skip is the optional skip predicate, evaluated at execution time.
	Skip registry.Skip

	// Params is the optional parametrization spec; ParamsErr carries a
	// construction-time parametrization error that kills this spec's
	// case group without aborting the run.
	Params    *params.Spec
	ParamsErr error

	// Setup optionally transforms arguments once per case before warmup.
	Setup func(registry.Args) registry.Args

	// Meta is per-function metadata for result records.
	Meta map[string]any
}

// ModuleFailure records a module that could not be loaded. Non-fatal: the
// module's benchmarks are skipped and the run continues.
type ModuleFailure struct {
	Module string
	Err    error
}

// SpecFailure records a spec whose case group could not be built
// (parametrization errors). Non-fatal for the rest of the run.
type SpecFailure struct {
	Spec string
	Err  error
}

// Result is the outcome of a discovery pass.
type Result struct {
	// Specs are the discovered benchmarks in deterministic order:
	// lexicographic module order, declaration order within a module.
	Specs []BenchmarkSpec

	// Modules lists every eligible module file visited, loaded or not.
	Modules []string

	// Failures lists modules that failed to load.
	Failures []ModuleFailure
}

// Discover walks root and pairs eligible source declarations with registry
// metadata. root may also name a single module file directly.
//
// A missing root is the only fatal error; everything else is recorded as a
// per-module failure.
func Discover(root string, reg *registry.Registry) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	var modules []string
	if info.IsDir() {
		modules, err = benchModules(root)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	} else {
		modules = []string{root}
	}

	res := &Result{Modules: modules}
	for _, module := range modules {
		loadModule(res, module, reg)
	}

	return res, nil
}

// benchModules collects eligible module files under root in lexicographic
// path order (the order filepath.WalkDir guarantees).
func benchModules(root string) ([]string, error) {
	var modules []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}

		if eligibleModule(name) {
			modules = append(modules, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return modules, nil
}

func eligibleModule(base string) bool {
	return strings.HasPrefix(base, registry.Prefix) &&
		strings.HasSuffix(base, ".go") &&
		!strings.HasSuffix(base, "_test.go")
}

// loadModule parses one module and appends its benchmark specs in
// declaration order. Parse failures and unregistered functions are recorded
// as module failures.
func loadModule(res *Result, module string, reg *registry.Registry) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, module, nil, parser.SkipObjectResolution)
	if err != nil {
		res.Failures = append(res.Failures, ModuleFailure{Module: module, Err: err})
		return
	}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}

		name := fn.Name.Name
		if !strings.HasPrefix(name, registry.Prefix) {
			continue
		}

		entry, ok := reg.Lookup(module, name)
		if !ok {
			res.Failures = append(res.Failures, ModuleFailure{
				Module: module,
				Err:    fmt.Errorf("function %s is declared but not registered", name),
			})
			continue
		}

		res.Specs = append(res.Specs, BenchmarkSpec{
			Name:       name,
			ModulePath: module,
			Fn:         entry.Fn,
			Config:     entry.Config,
			Skip:       entry.Skip,
			Params:     entry.Params,
			ParamsErr:  entry.ParamsErr,
			Setup:      entry.Setup,
			Meta:       entry.Meta,
		})
	}
}
