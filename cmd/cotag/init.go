package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the destination store schema",
	Long: `Init applies the embedded schema migrations to the destination
store. Applied migrations are tracked in schema_migrations, so running
init against an up-to-date store is a no-op. The import pipeline itself
never creates schema; it fails fast when this step was skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		store, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		fmt.Printf("Store at %s is up to date.\n", cfg.DatabaseURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
