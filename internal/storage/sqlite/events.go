package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

// GetEventByID resolves an event by its opaque primary key.
func (s *Store) GetEventByID(ctx context.Context, eventID string) (model.EventRef, error) {
	return s.scanRef(s.db.QueryRowContext(ctx,
		`SELECT event_id, source_event_id FROM events WHERE event_id = ?`, eventID))
}

// GetEventBySourceID resolves an event by its numeric source key.
func (s *Store) GetEventBySourceID(ctx context.Context, sourceID int64) (model.EventRef, error) {
	return s.scanRef(s.db.QueryRowContext(ctx,
		`SELECT event_id, source_event_id FROM events WHERE source_event_id = ?`, sourceID))
}

func (s *Store) scanRef(row *sql.Row) (model.EventRef, error) {
	var ref model.EventRef
	var sourceID sql.NullInt64
	if err := row.Scan(&ref.EventID, &sourceID); err != nil {
		if err == sql.ErrNoRows {
			return model.EventRef{}, storage.ErrNotFound
		}
		return model.EventRef{}, fmt.Errorf("sqlite: resolve event: %w", err)
	}
	if sourceID.Valid {
		ref.SourceEventID = &sourceID.Int64
	}
	return ref, nil
}

// ListEvents returns events matching the export filter, ordered by numeric
// source key with opaque-only events last.
func (s *Store) ListEvents(ctx context.Context, f storage.ExportFilter) ([]model.Event, error) {
	var conds []string
	var args []any

	if f.ExcludeTainted {
		conds = append(conds, "e.exclude_reason IS NULL")
	}
	if f.MinSourceID != nil {
		conds = append(conds, "e.source_event_id >= ?")
		args = append(args, *f.MinSourceID)
	}
	if f.MaxSourceID != nil {
		conds = append(conds, "e.source_event_id <= ?")
		args = append(args, *f.MaxSourceID)
	}
	if f.UntaggedOnly {
		conds = append(conds, "NOT EXISTS (SELECT 1 FROM collaboration_tags t WHERE t.event_id = e.event_id)")
	}

	query := `SELECT e.event_id, e.source_event_id, e.user_message, e.timestamp, e.session_id, e.routed_instructions, e.exclude_reason
		FROM events e`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.source_event_id IS NULL, e.source_event_id, e.event_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var sourceID sql.NullInt64
		var sessionID, excludeReason sql.NullString
		var routed string
		if err := rows.Scan(&e.EventID, &sourceID, &e.UserMessage, &e.Timestamp, &sessionID, &routed, &excludeReason); err != nil {
			return nil, fmt.Errorf("sqlite: scan event: %w", err)
		}
		if sourceID.Valid {
			e.SourceEventID = &sourceID.Int64
		}
		if sessionID.Valid {
			e.SessionID = sessionID.String
		}
		if excludeReason.Valid {
			e.ExcludeReason = &excludeReason.String
		}
		e.RoutedInstructions = decodeInstructions(routed)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list events: %w", err)
	}
	return events, nil
}

// decodeInstructions parses the stored JSON array of instruction ids.
// Legacy rows sometimes hold a bare string; wrap it rather than drop it.
func decodeInstructions(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return []string{raw}
}
