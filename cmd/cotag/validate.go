package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pongogo/cotag/internal/batch"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate [batch.jsonl]",
	Short: "Validate a JSONL tag batch without touching any store",
	Long: `Validate runs the full batch validation pass (parse, required
fields, types, enums, cross-record session sequencing) and prints the
findings. No store is opened and nothing is written; the exit status is
nonzero when the batch has hard errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, cleanup, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := batch.Validate(in)
		if err != nil {
			return err
		}

		report.Render(os.Stdout)
		if len(report.Errors) > 0 {
			return fmt.Errorf("batch has %d invalid record(s)", len(report.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
