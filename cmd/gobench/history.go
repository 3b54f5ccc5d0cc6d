package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/gobench-cli/gobench/internal/config"
	"github.com/gobench-cli/gobench/internal/history"
	"github.com/gobench-cli/gobench/internal/report"
)

var (
	historyFunction string
	historyCommit   string
	historySince    string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history [benchpath]",
	Short: "Query recorded benchmark results",
	Long: `History reads the SQLite result store and prints per-case statistics for
past runs, newest first.

--since accepts RFC3339 timestamps or natural language ("2 weeks ago",
"last monday").`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(args)
		if err != nil {
			return err
		}
		defer store.Close()

		filter := history.Filter{
			Function: historyFunction,
			Commit:   historyCommit,
			Limit:    historyLimit,
		}

		if historySince != "" {
			since, err := parseSince(historySince)
			if err != nil {
				return err
			}
			filter.Since = since
		}

		entries, err := store.Query(filter)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no recorded results match")
			return nil
		}

		var lastRun int64 = -1
		for _, e := range entries {
			if e.RunID != lastRun {
				fmt.Printf("\nrun %d  %s  commit %.12s  branch %s\n",
					e.RunID, e.Timestamp.Format(time.RFC3339), e.Commit, e.Branch)
				lastRun = e.RunID
			}

			switch {
			case e.Skipped:
				fmt.Printf("  %-48s skipped\n", e.Label)
			case e.Error != "":
				fmt.Printf("  %-48s error: %s\n", e.Label, e.Error)
			default:
				st := report.ComputeStats(e.Timings)
				fmt.Printf("  %-48s mean=%.6gs median=%.6gs min=%.6gs max=%.6gs (n=%d)\n",
					e.Label, st.Mean, st.Median, st.Min, st.Max, st.Samples)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyFunction, "function", "f", "", "only show results for this function")
	historyCmd.Flags().StringVarP(&historyCommit, "commit", "c", "", "only show results recorded at this commit")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only show runs at or after this time")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 200, "maximum number of case results")
}

// openStore resolves the history database from the optional benchpath
// argument and the project file.
func openStore(args []string) (*history.Store, error) {
	fileOverride, err := loadProject()
	if err != nil {
		return nil, err
	}

	benchpath := config.Default().BenchPath
	if fileOverride.BenchPath != nil {
		benchpath = *fileOverride.BenchPath
	}
	if len(args) == 1 {
		benchpath = args[0]
	}

	return history.Open(filepath.Join(resultsDir(benchpath), history.DefaultFileName))
}

// parseSince accepts RFC3339 or natural-language time expressions.
func parseSince(text string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", text, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", text)
	}

	return result.Time, nil
}
