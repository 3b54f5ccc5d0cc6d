package registry

import (
	"testing"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/params"
)

func bench_noop(args Args) {}

func bench_other(args Args) {}

func badName(args Args) {}

func TestRegisterCapturesIdentity(t *testing.T) {
	r := New()

	if err := r.Register(bench_noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	entry, ok := r.Lookup("registry_test.go", "bench_noop")
	if !ok {
		t.Fatal("registered function not found by (file, name)")
	}
	if entry.Name != "bench_noop" {
		t.Errorf("Name = %q, want bench_noop", entry.Name)
	}
	if entry.Fn == nil {
		t.Error("Fn is nil")
	}
}

func TestRegisterRejectsBadPrefix(t *testing.T) {
	r := New()

	if err := r.Register(badName); err == nil {
		t.Fatal("want error for function without bench_ prefix")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after failed registration, want 0", r.Len())
	}
}

func TestRegisterRejectsNil(t *testing.T) {
	r := New()
	if err := r.Register(nil); err == nil {
		t.Fatal("want error for nil function")
	}
}

func TestReRegisterReplacesInPlace(t *testing.T) {
	r := New()

	if err := r.Register(bench_noop); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(bench_other); err != nil {
		t.Fatalf("Register bench_other failed: %v", err)
	}
	if err := r.Register(bench_noop, WithConfig(config.Override{Repeat: uintPtr(3)})); err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}

	entry, ok := r.Lookup("registry_test.go", "bench_noop")
	if !ok {
		t.Fatal("bench_noop missing after re-registration")
	}
	if entry.Config.Repeat == nil || *entry.Config.Repeat != 3 {
		t.Errorf("re-registration did not replace the entry: Config = %+v", entry.Config)
	}

	// Registration order must be preserved across the replacement.
	first := r.ordered[0]
	if first.Name != "bench_noop" {
		t.Errorf("first entry = %q, want bench_noop (order kept after replace)", first.Name)
	}
}

func TestSameNameDifferentDirectories(t *testing.T) {
	r := New()

	var called string
	r.RegisterEntry(&Entry{
		Name: "bench_load",
		File: "/proj/benchmarks/io/bench_disk.go",
		Fn:   func(Args) { called = "io" },
	})
	r.RegisterEntry(&Entry{
		Name: "bench_load",
		File: "/proj/benchmarks/net/bench_disk.go",
		Fn:   func(Args) { called = "net" },
	})

	if r.Len() != 2 {
		t.Fatalf("registry holds %d entries, want 2", r.Len())
	}

	ioEntry, ok := r.Lookup("benchmarks/io/bench_disk.go", "bench_load")
	if !ok {
		t.Fatal("io entry not found")
	}
	ioEntry.Fn(nil)
	if called != "io" {
		t.Errorf("io lookup resolved the %s callable", called)
	}

	netEntry, ok := r.Lookup("benchmarks/net/bench_disk.go", "bench_load")
	if !ok {
		t.Fatal("net entry not found")
	}
	netEntry.Fn(nil)
	if called != "net" {
		t.Errorf("net lookup resolved the %s callable", called)
	}
}

func TestSuffixComponents(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"/build/x/bench_a.go", "x/bench_a.go", 2},
		{"/build/x/bench_a.go", "y/bench_a.go", 1},
		{"/build/x/bench_a.go", "bench_b.go", 0},
		{"bench_a.go", "bench_a.go", 1},
		{"/proj/io/bench_disk.go", "/walk/net/bench_disk.go", 1},
	}
	for _, tc := range cases {
		if got := suffixComponents(tc.a, tc.b); got != tc.want {
			t.Errorf("suffixComponents(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSkipEvaluate(t *testing.T) {
	if (Skip{}).Evaluate() {
		t.Error("SkipNone should evaluate false")
	}
	if !(Skip{Kind: SkipLiteral, Literal: true}).Evaluate() {
		t.Error("literal true should evaluate true")
	}
	if (Skip{Kind: SkipLiteral, Literal: false}).Evaluate() {
		t.Error("literal false should evaluate false")
	}

	calls := 0
	s := Skip{Kind: SkipDeferred, Fn: func() bool { calls++; return true }}
	if !s.Evaluate() {
		t.Error("deferred predicate should evaluate true")
	}
	if calls != 1 {
		t.Errorf("predicate called %d times, want 1", calls)
	}
}

func TestParametrizeOptionStoresError(t *testing.T) {
	r := New()

	err := r.Register(bench_noop, Parametrize(
		params.ValueList{Name: "a", Values: []any{1}},
		params.ValueList{Name: "a", Values: []any{2}},
	))
	if err != nil {
		t.Fatalf("registration itself must succeed: %v", err)
	}

	entry, ok := r.Lookup("registry_test.go", "bench_noop")
	if !ok {
		t.Fatal("entry not found")
	}
	if entry.ParamsErr == nil {
		t.Error("malformed parametrization should be recorded in ParamsErr")
	}
	if entry.Params != nil {
		t.Error("Params should be nil when construction fails")
	}
}

func TestOptionsCompose(t *testing.T) {
	r := New()

	err := r.Register(bench_other,
		WithConfig(config.Override{Warmups: uintPtr(2)}),
		SkipIf(true, "not today"),
		Setup(func(args Args) Args { return args }),
		Meta(map[string]any{"group": "core"}),
	)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	entry, _ := r.Lookup("registry_test.go", "bench_other")
	if entry.Config.Warmups == nil || *entry.Config.Warmups != 2 {
		t.Error("WithConfig not applied")
	}
	if entry.Skip.Kind != SkipLiteral || !entry.Skip.Literal || entry.Skip.Reason != "not today" {
		t.Errorf("SkipIf not applied: %+v", entry.Skip)
	}
	if entry.Setup == nil {
		t.Error("Setup not applied")
	}
	if entry.Meta["group"] != "core" {
		t.Error("Meta not applied")
	}
}

func TestBaseFuncName(t *testing.T) {
	cases := map[string]string{
		"example.com/pkg.bench_sort":       "bench_sort",
		"example.com/a/b/c.bench_x":        "bench_x",
		"bench_bare":                       "bench_bare",
		"example.com/pkg.glob..func1":      "func1",
		"github.com/x/y/benchmarks.bench_": "bench_",
	}
	for full, want := range cases {
		if got := baseFuncName(full); got != want {
			t.Errorf("baseFuncName(%q) = %q, want %q", full, got, want)
		}
	}
}

func uintPtr(v uint) *uint { return &v }
