package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gobench-cli/gobench/internal/dashboard"
	"github.com/gobench-cli/gobench/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard [benchpath]",
	Short: "Run benchmarks with a live websocket feed",
	Long: `Dashboard starts a websocket server (GOBENCH_DASHBOARD_ADDR, default
:8707), runs the benchmark suite while broadcasting every case result, and
then keeps serving until interrupted so connected clients can inspect the
final summary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchpath := ""
		if len(args) == 1 {
			benchpath = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		board := dashboard.NewServer(&dashboard.Config{
			Addr:   viper.GetString("dashboard_addr"),
			Logger: diagLogger(),
		})
		if err := board.Start(); err != nil {
			return err
		}
		defer board.Stop()

		fmt.Printf("dashboard at ws://%s/ws\n\n", board.Addr())

		if _, err := executeRun(ctx, benchpath, ui.NewPrinter(os.Stdout), board); err != nil {
			return err
		}

		fmt.Println("\nrun finished; serving dashboard until interrupted (ctrl-c)")
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
