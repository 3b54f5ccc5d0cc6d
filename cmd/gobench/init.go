package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gobench-cli/gobench/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a gobench.toml project file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.DefaultFileName); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.DefaultFileName)
		}

		defaults := config.Default()
		benchpath := defaults.BenchPath
		repeat := strconv.FormatUint(uint64(defaults.Repeat), 10)
		number := strconv.FormatUint(uint64(defaults.Number), 10)
		warmups := strconv.FormatUint(uint64(defaults.Warmups), 10)
		gc := defaults.GarbageCollection

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Benchmark directory").
					Description("Directory scanned for bench_*.go modules").
					Value(&benchpath),
				huh.NewInput().
					Title("Repeat").
					Description("Independent timing samples per case").
					Value(&repeat).
					Validate(validatePositive),
				huh.NewInput().
					Title("Number").
					Description("Back-to-back calls per timing sample").
					Value(&number).
					Validate(validatePositive),
				huh.NewInput().
					Title("Warmups").
					Description("Untimed invocations before sampling").
					Value(&warmups).
					Validate(validateUint),
				huh.NewConfirm().
					Title("Keep garbage collection enabled while timing?").
					Value(&gc),
			),
		)

		if err := form.Run(); err != nil {
			return fmt.Errorf("init aborted: %w", err)
		}

		cfg := defaults
		cfg.BenchPath = benchpath
		cfg.Repeat = mustUint(repeat)
		cfg.Number = mustUint(number)
		cfg.Warmups = mustUint(warmups)
		cfg.GarbageCollection = gc

		f, err := os.Create(config.DefaultFileName)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", config.DefaultFileName, err)
		}
		defer f.Close()

		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.DefaultFileName, err)
		}

		fmt.Printf("wrote %s\n", config.DefaultFileName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing gobench.toml")
}

func validateUint(s string) error {
	if _, err := strconv.ParseUint(s, 10, 32); err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validatePositive(s string) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

// mustUint parses values already checked by the form validators.
func mustUint(s string) uint {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint(v)
}
