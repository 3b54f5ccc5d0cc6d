package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/ui"
	"github.com/gobench-cli/gobench/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [benchpath]",
	Short: "Re-run benchmarks whenever benchmark modules change",
	Long: `Watch runs the benchmark suite once, then watches the benchmark
directory for changes to bench_*.go files and gobench.toml, re-running the
suite after each change. A failing pass does not stop the watcher.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchpath := ""
		if len(args) == 1 {
			benchpath = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return watchLoop(ctx, benchpath)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchLoop(ctx context.Context, benchpathArg string) error {
	logger := diagLogger()
	printer := ui.NewPrinter(os.Stdout)

	root := benchpathArg
	if root == "" {
		fileOverride, err := loadProject()
		if err != nil {
			return err
		}
		root = config.Default().BenchPath
		if fileOverride.BenchPath != nil {
			root = *fileOverride.BenchPath
		}
	}

	w, err := watch.New()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(root); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	defer w.Stop()

	runPass := func() {
		if _, err := executeRun(ctx, benchpathArg, printer, nil); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			logger.Printf("watch pass failed: %v", err)
		}
	}

	runPass()
	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.Triggers():
			if !ok {
				return nil
			}
			fmt.Printf("\nchange detected: %s\n", path)
			runPass()
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logger.Printf("watch error: %v", err)
		}
	}
}
