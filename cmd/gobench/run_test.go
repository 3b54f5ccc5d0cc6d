package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/registry"
	"github.com/gobench-cli/gobench/internal/ui"
)

// quietRun disables saving and output noise for one test, restoring the
// package-level flag state afterwards.
func quietRun(t *testing.T) {
	t.Helper()
	prevNoSave, prevKeyword := runNoSave, runKeyword
	prevPrint, prevJSON, prevCSV := runPrint, runJSON, runCSV
	prevDashboard := runDashboard
	t.Cleanup(func() {
		runNoSave, runKeyword = prevNoSave, prevKeyword
		runPrint, runJSON, runCSV = prevPrint, prevJSON, prevCSV
		runDashboard = prevDashboard
	})
	runNoSave = true
	runKeyword = ""
	runPrint = false
	runJSON = false
	runCSV = ""
	runDashboard = false
}

func testPrinter(t *testing.T) *ui.Printer {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return ui.NewPrinter(f)
}

func writeBenchModule(t *testing.T, dir, name, fn string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := "package b\n\nfunc " + fn + "(args map[string]any) {}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestExecuteRunMissingRootFails(t *testing.T) {
	quietRun(t)

	_, err := executeRun(context.Background(), filepath.Join(t.TempDir(), "nope"), testPrinter(t), nil)
	if !errors.Is(err, discover.ErrRootNotFound) {
		t.Fatalf("err = %v, want ErrRootNotFound", err)
	}
}

func TestExecuteRunNoModulesFails(t *testing.T) {
	quietRun(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "helper.go"), []byte("package b\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := executeRun(context.Background(), dir, testPrinter(t), nil)
	if err == nil {
		t.Fatal("want error when no benchmark modules exist")
	}
	if !strings.Contains(err.Error(), "no benchmark modules") {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteRunConfigErrorIsFatal(t *testing.T) {
	quietRun(t)

	dir := t.TempDir()
	module := writeBenchModule(t, dir, "bench_cli_cfg.go", "bench_cli_badcfg")

	zero := uint(0)
	registry.Default().RegisterEntry(&registry.Entry{
		Name:   "bench_cli_badcfg",
		File:   module,
		Fn:     func(registry.Args) {},
		Config: config.Override{Repeat: &zero},
	})

	_, err := executeRun(context.Background(), dir, testPrinter(t), nil)
	if err == nil {
		t.Fatal("want fatal error for invalid resolved config")
	}
	var cerr *config.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *config.ConfigError in chain, got %v", err)
	}
}

func TestExecuteRunCaseFailuresDoNotFailRun(t *testing.T) {
	quietRun(t)

	dir := t.TempDir()
	panicModule := writeBenchModule(t, dir, "bench_cli_panics.go", "bench_cli_panics")
	skipModule := writeBenchModule(t, dir, "bench_cli_skips.go", "bench_cli_skips")

	one := uint(1)
	registry.Default().RegisterEntry(&registry.Entry{
		Name:   "bench_cli_panics",
		File:   panicModule,
		Fn:     func(registry.Args) { panic("boom") },
		Config: config.Override{Repeat: &one},
	})
	registry.Default().RegisterEntry(&registry.Entry{
		Name: "bench_cli_skips",
		File: skipModule,
		Fn:   func(registry.Args) {},
		Skip: registry.Skip{Kind: registry.SkipLiteral, Literal: true, Reason: "not here"},
	})

	records, err := executeRun(context.Background(), dir, testPrinter(t), nil)
	if err != nil {
		t.Fatalf("case-level failures must not fail the run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	outcomes := map[record.Outcome]int{}
	for _, rec := range records {
		outcomes[rec.Outcome()]++
	}
	if outcomes[record.OutcomeErrored] != 1 || outcomes[record.OutcomeSkipped] != 1 {
		t.Errorf("outcomes = %v, want one errored and one skipped", outcomes)
	}
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	module := writeBenchModule(t, dir, "bench_cli_list.go", "bench_cli_listed")

	registry.Default().RegisterEntry(&registry.Entry{
		Name: "bench_cli_listed",
		File: module,
		Fn:   func(registry.Args) {},
	})

	if err := listCmd.RunE(listCmd, []string{dir}); err != nil {
		t.Fatalf("list over a valid tree failed: %v", err)
	}
}

func TestListCommandNoModulesFails(t *testing.T) {
	if err := listCmd.RunE(listCmd, []string{t.TempDir()}); err == nil {
		t.Fatal("want error when no benchmark modules exist")
	}
}

func TestListCommandMissingRootFails(t *testing.T) {
	err := listCmd.RunE(listCmd, []string{filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, discover.ErrRootNotFound) {
		t.Fatalf("err = %v, want ErrRootNotFound", err)
	}
}
