// Gobench discovers and times micro-benchmark functions and records the
// results for longitudinal analysis.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/logging"

	// Self-benchmarks: registered into the default registry so running
	// gobench inside this repository exercises its own benchmark tree.
	_ "github.com/gobench-cli/gobench/benchmarks"
)

var rootCmd = &cobra.Command{
	Use:   "gobench",
	Short: "Micro-benchmark runner with config layering and result history",
	Long: `gobench scans a directory for benchmark modules (bench_*.go files),
expands parametrized cases, times each case under controlled repetition,
and records the results together with machine metadata so performance can
be tracked across commits.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gobench version",
	Run: func(cmd *cobra.Command, args []string) {
		version := "(devel)"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
			version = bi.Main.Version
		}
		fmt.Printf("gobench %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("log", "", "write diagnostics to this rotating log file")

	// Tool-level settings (not per-case configuration) come from the
	// environment: GOBENCH_RESULTS_DIR, GOBENCH_LOG, GOBENCH_DASHBOARD_ADDR.
	viper.SetEnvPrefix("GOBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("results_dir", "")
	viper.SetDefault("dashboard_addr", ":8707")

	_ = viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))
}

// loadProject reads the project configuration file from the working
// directory.
func loadProject() (config.Override, error) {
	return config.LoadFile(config.DefaultFileName)
}

// resultsDir resolves where results and history live: the GOBENCH_RESULTS_DIR
// override, or <benchpath>/results.
func resultsDir(benchpath string) string {
	if dir := viper.GetString("results_dir"); dir != "" {
		return dir
	}
	return filepath.Join(benchpath, "results")
}

// diagLogger builds the rotating diagnostic logger when GOBENCH_LOG names a
// file; otherwise logging is discarded.
func diagLogger() *log.Logger {
	return logging.New(viper.GetString("log"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
