package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/discover"
	"github.com/gobench-cli/gobench/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list [benchpath]",
	Short: "List discovered benchmark cases without running them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileOverride, err := loadProject()
		if err != nil {
			return err
		}

		defaults := config.Default()
		benchpath := defaults.BenchPath
		if fileOverride.BenchPath != nil {
			benchpath = *fileOverride.BenchPath
		}
		if len(args) == 1 {
			benchpath = args[0]
		}

		res, err := discover.Discover(benchpath, registry.Default())
		if err != nil {
			return err
		}
		if len(res.Modules) == 0 {
			return fmt.Errorf("no benchmark modules found under %s", benchpath)
		}

		cases, specFailures, err := discover.BuildCases(res.Specs, defaults, fileOverride)
		if err != nil {
			return err
		}

		for _, c := range cases {
			fmt.Printf("%-48s repeat=%d number=%d warmups=%d gc=%v  (%s)\n",
				c.Label, c.Config.Repeat, c.Config.Number, c.Config.Warmups,
				c.Config.GarbageCollection, c.Spec.ModulePath)
		}

		for _, f := range res.Failures {
			fmt.Printf("LOAD FAILURE %s: %v\n", f.Module, f.Err)
		}
		for _, f := range specFailures {
			fmt.Printf("PARAMETRIZE FAILURE %s: %v\n", f.Spec, f.Err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
