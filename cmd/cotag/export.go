package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pongogo/cotag/internal/export"
	"github.com/pongogo/cotag/internal/storage"
)

var (
	exportOut            string
	exportLimit          int
	exportMinID          int64
	exportMaxID          int64
	exportUntaggedOnly   bool
	exportIncludeTainted bool
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events as a JSONL tagging batch template",
	Long: `Export writes events from the destination store as JSONL, one
object per line with the external event identifier and the context a
tagger needs. Events carrying an exclusion marker are skipped unless
--include-tainted is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		store, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		out := os.Stdout
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		filter := storage.ExportFilter{
			ExcludeTainted: !exportIncludeTainted,
			Limit:          exportLimit,
			UntaggedOnly:   exportUntaggedOnly,
		}
		if cmd.Flags().Changed("min-id") {
			filter.MinSourceID = &exportMinID
		}
		if cmd.Flags().Changed("max-id") {
			filter.MaxSourceID = &exportMaxID
		}

		qCtx, cancel := queryContext(ctx)
		defer cancel()

		n, err := export.Events(qCtx, store, out, filter)
		if err != nil {
			return err
		}
		logger.Info("export complete", "events", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum events to export (0 = all)")
	exportCmd.Flags().Int64Var(&exportMinID, "min-id", 0, "inclusive lower bound on the numeric source key")
	exportCmd.Flags().Int64Var(&exportMaxID, "max-id", 0, "inclusive upper bound on the numeric source key")
	exportCmd.Flags().BoolVar(&exportUntaggedOnly, "untagged-only", false, "only export events with no tags")
	exportCmd.Flags().BoolVar(&exportIncludeTainted, "include-tainted", false, "include events carrying an exclusion marker")
	rootCmd.AddCommand(exportCmd)
}
