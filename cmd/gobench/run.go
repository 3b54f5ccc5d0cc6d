package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/dashboard"
	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/history"
	"github.com/gobench-cli/gobench/internal/meta"
	"github.com/gobench-cli/gobench/internal/record"
	"github.com/gobench-cli/gobench/internal/registry"
	"github.com/gobench-cli/gobench/internal/report"
	"github.com/gobench-cli/gobench/internal/runner"
	"github.com/gobench-cli/gobench/internal/sink"
	"github.com/gobench-cli/gobench/internal/ui"
)

var (
	runKeyword   string
	runNoSave    bool
	runPrint     bool
	runJSON      bool
	runCSV       string
	runDashboard bool
)

var runCmd = &cobra.Command{
	Use:   "run [benchpath]",
	Short: "Discover and execute benchmarks",
	Long: `Run discovers benchmark modules under the given path (default: the
benchpath from gobench.toml, falling back to "benchmarks"), expands
parametrized cases, and times each case sequentially in discovery order.

Individual skipped or errored cases do not fail the run; the exit code is
non-zero only when the benchmark path is missing, no benchmark modules are
found, or the configuration is invalid.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchpath := ""
		if len(args) == 1 {
			benchpath = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := executeRun(ctx, benchpath, ui.NewPrinter(os.Stdout), nil)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runKeyword, "keyword", "k", "", "only run functions whose name (after bench_) matches this regexp")
	runCmd.Flags().BoolVarP(&runNoSave, "no-save", "n", false, "disable saving of results")
	runCmd.Flags().BoolVarP(&runPrint, "print", "p", false, "print a stats table after the run")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "write the result records to stdout as JSON lines")
	runCmd.Flags().StringVar(&runCSV, "csv", "", "also export per-case stats to this CSV file")
	runCmd.Flags().BoolVar(&runDashboard, "dashboard", false, "broadcast live results over a websocket server")
}

// executeRun performs one full discovery+execution pass. Shared with the
// watch and dashboard commands; a non-nil board is caller-owned and used
// for broadcasting, otherwise --dashboard starts a run-scoped one.
func executeRun(ctx context.Context, benchpathArg string, printer *ui.Printer, board *dashboard.Server) ([]record.ResultRecord, error) {
	logger := diagLogger()

	fileOverride, err := loadProject()
	if err != nil {
		return nil, err
	}

	defaults := config.Default()

	// Benchpath precedence: CLI argument > project file > default.
	benchpath := defaults.BenchPath
	if fileOverride.BenchPath != nil {
		benchpath = *fileOverride.BenchPath
	}
	if benchpathArg != "" {
		benchpath = benchpathArg
	}

	res, err := discover.Discover(benchpath, registry.Default())
	if err != nil {
		return nil, err
	}
	if len(res.Modules) == 0 {
		return nil, fmt.Errorf("no benchmark modules found under %s", benchpath)
	}
	logger.Printf("discovered %d modules, %d benchmarks, %d load failures",
		len(res.Modules), len(res.Specs), len(res.Failures))

	specs := res.Specs
	if runKeyword != "" {
		if specs, err = filterSpecs(specs, runKeyword); err != nil {
			return nil, err
		}
	}

	cases, specFailures, err := discover.BuildCases(specs, defaults, fileOverride)
	if err != nil {
		// Invalid configuration is fatal before any case executes.
		return nil, err
	}

	md := meta.Collect(".")

	// Resolve run-level settings from the same layers the cases use.
	runCfg, err := config.Resolve(defaults, fileOverride, config.Override{})
	if err != nil {
		return nil, err
	}

	printer.RunHeader(runCfg, md, len(cases))

	var sinks sink.Multi
	var store *history.Store
	if !runNoSave {
		dir := resultsDir(benchpath)

		jsonl, err := sink.NewJSONL(filepath.Join(dir, "results.jsonl"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, jsonl)

		store, err = history.Open(filepath.Join(dir, history.DefaultFileName))
		if err != nil {
			return nil, err
		}
		defer store.Close()

		writer, err := store.StartRun(md)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, writer)
	}

	if board == nil && runDashboard {
		board = dashboard.NewServer(&dashboard.Config{
			Addr:   viper.GetString("dashboard_addr"),
			Logger: logger,
		})
		if err := board.Start(); err != nil {
			return nil, err
		}
		defer func() {
			if err := board.Stop(); err != nil {
				logger.Printf("dashboard stop: %v", err)
			}
		}()
	}
	if board != nil {
		board.RunStarted(md, len(cases))
	}

	session := &runner.Session{
		Engine: runner.New(),
		Cases:  cases,
		Meta:   md,
		Sink:   sinks,
		Progress: func(i int, c discover.Case, rec record.ResultRecord) {
			printer.CaseResult(i, len(cases), c, rec)
			if board != nil {
				board.CaseResult(i, len(cases), rec)
			}
		},
	}

	records, sum, err := session.Run(ctx)
	if cerr := sinks.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return records, err
	}

	if board != nil {
		board.RunComplete(sum)
	}

	if !runNoSave {
		if err := sink.SavePartitioned(resultsDir(benchpath), runCfg.PartitionBy, md, records); err != nil {
			return records, err
		}
	}

	if runCSV != "" {
		if err := exportCSV(runCSV, records); err != nil {
			return records, err
		}
	}

	printer.ModuleFailures(res.Failures)
	printer.SpecFailures(specFailures)
	printer.Summary(sum)

	if runPrint {
		printer.Results(records)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return records, fmt.Errorf("failed to encode result for %s: %w", rec.Label, err)
			}
		}
	}

	logger.Printf("run complete: %d completed, %d skipped, %d errored", sum.Completed, sum.Skipped, sum.Errored)
	return records, nil
}

// filterSpecs keeps benchmarks whose name, with the bench_ prefix removed,
// matches the keyword regexp.
func filterSpecs(specs []discover.BenchmarkSpec, keyword string) ([]discover.BenchmarkSpec, error) {
	re, err := regexp.Compile(keyword)
	if err != nil {
		return nil, fmt.Errorf("invalid keyword regexp: %w", err)
	}

	var kept []discover.BenchmarkSpec
	for _, s := range specs {
		short := s.Name[len(registry.Prefix):]
		if re.MatchString(short) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

func exportCSV(path string, records []record.ResultRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	return report.WriteCSV(f, records)
}
