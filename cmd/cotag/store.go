package main

import (
	"context"
	"log/slog"

	"github.com/pongogo/cotag/internal/storage"
	"github.com/pongogo/cotag/internal/storage/postgres"
	"github.com/pongogo/cotag/internal/storage/sqlite"
)

// openStore dispatches on the configured DSN: postgres:// URLs get the
// pgx-backed store, everything else is a SQLite file path.
func openStore(ctx context.Context, logger *slog.Logger) (storage.Store, error) {
	if cfg.IsPostgres() {
		return postgres.Open(ctx, cfg.DatabaseURL, logger, postgres.WithWriteRetries(cfg.WriteRetries))
	}
	return sqlite.Open(ctx, cfg.DatabaseURL, logger)
}

// queryContext bounds one read-only store operation by the configured
// query timeout.
func queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.QueryTimeout)
}
