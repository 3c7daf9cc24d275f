package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pongogo/cotag/internal/metrics"
)

var metricsReport string

// metricsCmd represents the metrics command.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Render tagging-coverage reports from the destination store",
	Long: `Metrics renders aggregate reports over the tag corpus: headline
coverage, per-session iteration rates, and the breakdowns by
anti-pattern, request type, and iteration type. All aggregation runs in
the store; only the latest tag version per (event, tagger) counts.

Valid reports: ` + strings.Join(metrics.Names, ", ") + `, all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		store, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		qCtx, cancel := queryContext(ctx)
		defer cancel()

		return metrics.Render(qCtx, store, os.Stdout, metricsReport)
	},
}

func init() {
	metricsCmd.Flags().StringVarP(&metricsReport, "report", "r", "summary", "report to render")
	rootCmd.AddCommand(metricsCmd)
}
