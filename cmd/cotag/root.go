package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pongogo/cotag/internal/config"
	"github.com/pongogo/cotag/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg     config.Config
	verbose bool
	dbFlag  string

	otelShutdown telemetry.Shutdown
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cotag",
	Short: "Collaboration tagging for the assistant routing log",
	Long: `Cotag moves collaboration tags between JSONL batch files and a
destination store. Taggers (human or LLM) annotate exported events;
cotag validates the annotations and writes them back as immutable
versioned records, keyed by (event, tagger).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if present (non-fatal; CI won't have one).
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if dbFlag != "" {
			cfg.DatabaseURL = dbFlag
		}

		level := slog.LevelInfo
		if verbose || cfg.LogLevel == "debug" {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		otelShutdown, err = telemetry.Init(cmd.Context(), cfg.OTELEndpoint, cfg.ServiceName, version, true)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelShutdown != nil {
			_ = otelShutdown(context.Background())
		}
	},
}

// Execute runs the root command and exits nonzero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "destination store (SQLite path or postgres:// URL, overrides COTAG_DB)")
}

// openInput returns the batch input reader for path; "-" means stdin.
func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open batch file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
