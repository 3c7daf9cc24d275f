package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

// GetEventByID resolves an event by its opaque primary key.
func (s *Store) GetEventByID(ctx context.Context, eventID string) (model.EventRef, error) {
	return s.scanRef(s.pool.QueryRow(ctx,
		`SELECT event_id, source_event_id FROM events WHERE event_id = $1`, eventID))
}

// GetEventBySourceID resolves an event by its numeric source key.
func (s *Store) GetEventBySourceID(ctx context.Context, sourceID int64) (model.EventRef, error) {
	return s.scanRef(s.pool.QueryRow(ctx,
		`SELECT event_id, source_event_id FROM events WHERE source_event_id = $1`, sourceID))
}

func (s *Store) scanRef(row pgx.Row) (model.EventRef, error) {
	var ref model.EventRef
	if err := row.Scan(&ref.EventID, &ref.SourceEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EventRef{}, storage.ErrNotFound
		}
		return model.EventRef{}, fmt.Errorf("postgres: resolve event: %w", err)
	}
	return ref, nil
}

// ListEvents returns events matching the export filter, ordered by numeric
// source key with opaque-only events last.
func (s *Store) ListEvents(ctx context.Context, f storage.ExportFilter) ([]model.Event, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ExcludeTainted {
		conds = append(conds, "e.exclude_reason IS NULL")
	}
	if f.MinSourceID != nil {
		conds = append(conds, "e.source_event_id >= "+arg(*f.MinSourceID))
	}
	if f.MaxSourceID != nil {
		conds = append(conds, "e.source_event_id <= "+arg(*f.MaxSourceID))
	}
	if f.UntaggedOnly {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM collaboration_tags t WHERE t.event_id = e.event_id)")
	}

	query := `SELECT e.event_id, e.source_event_id, e.user_message, e.timestamp, e.session_id, e.routed_instructions, e.exclude_reason
		FROM events e`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.source_event_id NULLS LAST, e.event_id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var sessionID *string
		if err := rows.Scan(&e.EventID, &e.SourceEventID, &e.UserMessage, &e.Timestamp,
			&sessionID, &e.RoutedInstructions, &e.ExcludeReason); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		if sessionID != nil {
			e.SessionID = *sessionID
		}
		if e.RoutedInstructions == nil {
			e.RoutedInstructions = []string{}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	return events, nil
}
