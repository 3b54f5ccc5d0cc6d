package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gobench-cli/gobench/internal/history"
	"github.com/gobench-cli/gobench/internal/report"
	"github.com/gobench-cli/gobench/internal/ui"
)

var compareCmd = &cobra.Command{
	Use:   "compare <baseline-commit> <current-commit>",
	Short: "Compare recorded results between two commits",
	Long: `Compare matches cases by label between the newest recorded run of each
commit and reports relative mean changes. Negative deltas mean the current
commit is faster.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(nil)
		if err != nil {
			return err
		}
		defer store.Close()

		baseline, baseLabels, err := latestByLabel(store, args[0])
		if err != nil {
			return err
		}
		current, _, err := latestByLabel(store, args[1])
		if err != nil {
			return err
		}

		functions := make(map[string]string, len(baseLabels))
		for label, fn := range baseLabels {
			functions[label] = fn
		}

		labels := make([]string, 0, len(baseLabels))
		for label := range baseLabels {
			labels = append(labels, label)
		}

		comps := report.CompareTimings(sortLabels(labels), baseline, current, functions)
		if len(comps) == 0 {
			return fmt.Errorf("no common cases recorded for %s and %s", args[0], args[1])
		}

		ui.NewPrinter(os.Stdout).Comparisons(comps)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

// latestByLabel returns each case's timings from the newest run recorded at
// the given commit, plus the label→function mapping.
func latestByLabel(store *history.Store, commit string) (map[string][]float64, map[string]string, error) {
	entries, err := store.Query(history.Filter{Commit: commit})
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("no results recorded for commit %s", commit)
	}

	timings := make(map[string][]float64)
	functions := make(map[string]string)
	for _, e := range entries {
		// Entries arrive newest run first; keep the first occurrence
		// of every label.
		if _, seen := timings[e.Label]; seen {
			continue
		}
		if e.Skipped || e.Error != "" || len(e.Timings) == 0 {
			continue
		}
		timings[e.Label] = e.Timings
		functions[e.Label] = e.Function
	}

	return timings, functions, nil
}

func sortLabels(labels []string) []string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return sorted
}
