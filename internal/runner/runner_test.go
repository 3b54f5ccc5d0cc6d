package runner

import (
	"context"
	"runtime/debug"
	"testing"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/registry"
)

// countingCollector tracks the acquire/release pairing without touching the
// real collector.
type countingCollector struct {
	disabled int
	restored int
}

func (c *countingCollector) Disable() func() {
	c.disabled++
	return func() { c.restored++ }
}

func makeCase(t *testing.T, name string, fn registry.Fn, cfg config.Config, mutate func(*discover.BenchmarkSpec)) discover.Case {
	t.Helper()
	spec := &discover.BenchmarkSpec{Name: name, Fn: fn}
	if mutate != nil {
		mutate(spec)
	}
	return discover.Case{
		Spec:   spec,
		Args:   registry.Args{},
		Config: cfg,
		Label:  name,
	}
}

func TestExecuteInvocationCounts(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 5
	cfg.Number = 3
	cfg.Warmups = 2

	calls := 0
	c := makeCase(t, "bench_count", func(registry.Args) { calls++ }, cfg, nil)

	engine := &Engine{Collector: &countingCollector{}}
	rec := engine.Execute(c, meta.Metadata{})

	if rec.Error != "" {
		t.Fatalf("unexpected error: %s", rec.Error)
	}
	// 2 warmups + 5 samples * 3 calls.
	if calls != 17 {
		t.Errorf("function called %d times, want 17", calls)
	}
	if len(rec.Timings) != 5 {
		t.Errorf("got %d timings, want 5 (one per repeat)", len(rec.Timings))
	}
	for i, sec := range rec.Timings {
		if sec < 0 {
			t.Errorf("timing %d = %v, want non-negative", i, sec)
		}
	}
}

func TestExecuteDisablesCollectorPerSample(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 4

	col := &countingCollector{}
	engine := &Engine{Collector: col}

	c := makeCase(t, "bench_gc", func(registry.Args) {}, cfg, nil)
	engine.Execute(c, meta.Metadata{})

	if col.disabled != 4 || col.restored != 4 {
		t.Errorf("disabled=%d restored=%d, want 4/4", col.disabled, col.restored)
	}
}

func TestExecuteKeepsCollectorWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 2
	cfg.GarbageCollection = true

	col := &countingCollector{}
	engine := &Engine{Collector: col}

	c := makeCase(t, "bench_gc_on", func(registry.Args) {}, cfg, nil)
	engine.Execute(c, meta.Metadata{})

	if col.disabled != 0 {
		t.Errorf("collector disabled %d times, want 0", col.disabled)
	}
}

func TestExecuteSkipLiteral(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 3

	calls := 0
	c := makeCase(t, "bench_skipped", func(registry.Args) { calls++ }, cfg,
		func(s *discover.BenchmarkSpec) {
			s.Skip = registry.Skip{Kind: registry.SkipLiteral, Literal: true, Reason: "not supported here"}
		})

	rec := (&Engine{Collector: &countingCollector{}}).Execute(c, meta.Metadata{})

	if !rec.Skipped {
		t.Fatal("record not marked skipped")
	}
	if rec.SkipReason != "not supported here" {
		t.Errorf("SkipReason = %q", rec.SkipReason)
	}
	if calls != 0 {
		t.Errorf("skipped function was invoked %d times", calls)
	}
	if rec.Timings == nil || len(rec.Timings) != 0 {
		t.Errorf("Timings = %v, want empty non-nil slice", rec.Timings)
	}
	if rec.Outcome() != record.OutcomeSkipped {
		t.Errorf("Outcome = %v, want skipped", rec.Outcome())
	}
}

func TestExecuteDeferredSkipEvaluatedAtRun(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 1

	evaluations := 0
	c := makeCase(t, "bench_deferred", func(registry.Args) {}, cfg,
		func(s *discover.BenchmarkSpec) {
			s.Skip = registry.Skip{
				Kind: registry.SkipDeferred,
				Fn:   func() bool { evaluations++; return false },
			}
		})

	engine := &Engine{Collector: &countingCollector{}}
	rec := engine.Execute(c, meta.Metadata{})

	if evaluations != 1 {
		t.Errorf("predicate evaluated %d times, want 1", evaluations)
	}
	if rec.Skipped {
		t.Error("false predicate should not skip")
	}
}

func TestExecuteSkipReasonDefault(t *testing.T) {
	cfg := config.Default()
	c := makeCase(t, "bench_noreason", func(registry.Args) {}, cfg,
		func(s *discover.BenchmarkSpec) {
			s.Skip = registry.Skip{Kind: registry.SkipLiteral, Literal: true}
		})

	rec := (&Engine{Collector: &countingCollector{}}).Execute(c, meta.Metadata{})
	if rec.SkipReason == "" {
		t.Error("skipped record must carry a reason")
	}
}

func TestExecuteSetupRunsOncePerCase(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 3
	cfg.Warmups = 2

	setups := 0
	var seen registry.Args
	c := makeCase(t, "bench_setup", func(args registry.Args) { seen = args }, cfg,
		func(s *discover.BenchmarkSpec) {
			s.Setup = func(args registry.Args) registry.Args {
				setups++
				args["data"] = []int{3, 1, 2}
				return args
			}
		})

	rec := (&Engine{Collector: &countingCollector{}}).Execute(c, meta.Metadata{})
	if rec.Error != "" {
		t.Fatalf("unexpected error: %s", rec.Error)
	}
	if setups != 1 {
		t.Errorf("setup ran %d times, want 1", setups)
	}
	if seen["data"] == nil {
		t.Error("benchmark did not receive setup-produced arguments")
	}
}

func TestExecutePanicInTiming(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 5

	calls := 0
	c := makeCase(t, "bench_boom", func(registry.Args) {
		calls++
		if calls == 2 {
			panic("boom")
		}
	}, cfg, nil)

	col := &countingCollector{}
	rec := (&Engine{Collector: col}).Execute(c, meta.Metadata{})

	if rec.Error == "" {
		t.Fatal("panicking benchmark must produce an errored record")
	}
	if rec.Outcome() != record.OutcomeErrored {
		t.Errorf("Outcome = %v, want errored", rec.Outcome())
	}
	if col.disabled != col.restored {
		t.Errorf("collector leaked: disabled=%d restored=%d", col.disabled, col.restored)
	}
}

func TestExecutePanicInWarmup(t *testing.T) {
	cfg := config.Default()
	cfg.Warmups = 1

	c := makeCase(t, "bench_warm_boom", func(registry.Args) { panic("warm") }, cfg, nil)
	rec := (&Engine{Collector: &countingCollector{}}).Execute(c, meta.Metadata{})

	if rec.Error == "" {
		t.Fatal("warmup panic must produce an errored record")
	}
	if len(rec.Timings) != 0 {
		t.Errorf("errored case should have no timings, got %v", rec.Timings)
	}
}

func TestExecutePanicInSetup(t *testing.T) {
	cfg := config.Default()

	calls := 0
	c := makeCase(t, "bench_setup_boom", func(registry.Args) { calls++ }, cfg,
		func(s *discover.BenchmarkSpec) {
			s.Setup = func(registry.Args) registry.Args { panic("setup") }
		})

	rec := (&Engine{Collector: &countingCollector{}}).Execute(c, meta.Metadata{})
	if rec.Error == "" {
		t.Fatal("setup panic must produce an errored record")
	}
	if calls != 0 {
		t.Errorf("benchmark invoked %d times after failed setup", calls)
	}
}

func TestRuntimeCollectorRestores(t *testing.T) {
	before := debug.SetGCPercent(100)
	debug.SetGCPercent(before)

	restore := RuntimeCollector{}.Disable()
	restore()

	after := debug.SetGCPercent(before)
	debug.SetGCPercent(after)
	if after != before {
		t.Errorf("GC percent = %d after restore, want %d", after, before)
	}
}

// collectorSink records appended labels in order.
type collectorSink struct {
	labels []string
	closed bool
}

func (s *collectorSink) Append(rec record.ResultRecord) error {
	s.labels = append(s.labels, rec.Label)
	return nil
}

func (s *collectorSink) Close() error {
	s.closed = true
	return nil
}

func TestSessionRunOrderAndSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 1

	cases := []discover.Case{
		makeCase(t, "bench_one", func(registry.Args) {}, cfg, nil),
		makeCase(t, "bench_two", func(registry.Args) { panic("x") }, cfg, nil),
		makeCase(t, "bench_three", func(registry.Args) {}, cfg,
			func(s *discover.BenchmarkSpec) {
				s.Skip = registry.Skip{Kind: registry.SkipLiteral, Literal: true, Reason: "no"}
			}),
	}

	snk := &collectorSink{}
	var progress []string
	s := &Session{
		Engine: &Engine{Collector: &countingCollector{}},
		Cases:  cases,
		Sink:   snk,
		Progress: func(i int, c discover.Case, rec record.ResultRecord) {
			progress = append(progress, rec.Label)
		},
	}

	records, sum, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"bench_one", "bench_two", "bench_three"}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, w := range want {
		if records[i].Label != w {
			t.Errorf("record %d = %q, want %q", i, records[i].Label, w)
		}
	}
	if len(snk.labels) != 3 || snk.labels[1] != "bench_two" {
		t.Errorf("sink received %v", snk.labels)
	}
	if len(progress) != 3 {
		t.Errorf("progress called %d times, want 3", len(progress))
	}

	if sum.Completed != 1 || sum.Errored != 1 || sum.Skipped != 1 {
		t.Errorf("summary = %+v, want 1/1/1", sum)
	}
	if sum.Total() != 3 {
		t.Errorf("Total = %d, want 3", sum.Total())
	}
	if sum.Interrupted {
		t.Error("run was not interrupted")
	}
}

func TestSessionHonorsCancellationAtCaseBoundary(t *testing.T) {
	cfg := config.Default()
	cfg.Repeat = 1

	ctx, cancel := context.WithCancel(context.Background())

	ran := []string{}
	cases := []discover.Case{
		makeCase(t, "bench_first", func(registry.Args) {
			ran = append(ran, "first")
			cancel()
		}, cfg, nil),
		makeCase(t, "bench_second", func(registry.Args) {
			ran = append(ran, "second")
		}, cfg, nil),
	}

	s := &Session{Engine: &Engine{Collector: &countingCollector{}}, Cases: cases}
	records, sum, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(ran) != 1 || ran[0] != "first" {
		t.Errorf("ran = %v, want only the first case", ran)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if !sum.Interrupted {
		t.Error("summary should be marked interrupted")
	}
}
