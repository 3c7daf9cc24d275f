package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pongogo/cotag/internal/importer"
	"github.com/pongogo/cotag/internal/match"
)

var (
	importTagger   string
	importDryRun   bool
	importIDFormat string
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import [batch.jsonl]",
	Short: "Import a JSONL tag batch into the destination store",
	Long: `Import parses a JSONL batch (one {"event_id", "tags"} object per
line), validates every record, resolves each event identifier against
the destination store, and writes the surviving records as new immutable
tag versions. A bad line never aborts the batch; a missing tag schema
does. Pass - to read the batch from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		tagger := importTagger
		if tagger == "" {
			tagger = cfg.TaggerID
		}
		if tagger == "" {
			return fmt.Errorf("a tagger identity is required (--tagger or COTAG_TAGGER_ID)")
		}

		in, cleanup, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		store, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		var resolver match.Resolver
		switch importIDFormat {
		case "prefixed":
			resolver = match.PrefixedNumeric{Source: store}
		case "opaque":
			resolver = match.OpaqueKey{Source: store}
		default:
			return fmt.Errorf("unknown --id-format %q (valid: prefixed, opaque)", importIDFormat)
		}

		imp := importer.New(store, resolver, logger)
		report, err := imp.Run(ctx, in, importer.Options{
			TaggerID: tagger,
			Source:   args[0],
			DryRun:   importDryRun,
		})
		if err != nil {
			return err
		}

		report.Render(os.Stdout)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importTagger, "tagger", "t", "", "tagger identity recorded on written tags, e.g. llm:codex")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and validate only; write nothing")
	importCmd.Flags().StringVar(&importIDFormat, "id-format", "prefixed", "event identifier encoding: prefixed (evt_NNNNNN) or opaque")
	rootCmd.AddCommand(importCmd)
}
