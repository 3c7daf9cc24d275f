// Package export writes routing-log events back out as a tagging batch
// template: one JSON object per line, carrying the external identifier
// token and the context a tagger needs (message, timestamp, routed
// instructions). The output of an export round-trips through the
// importer unchanged except for the tags object the tagger fills in.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pongogo/cotag/internal/match"
	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

// Line is one exported event in the shape taggers annotate. The event_id
// is the external token (evt_NNNNNN when the event has a numeric source
// key, the opaque primary key otherwise).
type Line struct {
	EventID            string   `json:"event_id"`
	UserMessage        string   `json:"user_message"`
	Timestamp          string   `json:"timestamp"`
	SessionID          string   `json:"session_id,omitempty"`
	RoutedInstructions []string `json:"routed_instructions"`
}

// Lister is the slice of the store the exporter needs.
type Lister interface {
	ListEvents(ctx context.Context, f storage.ExportFilter) ([]model.Event, error)
}

// Events writes the events matching f to w as JSONL and returns the
// number of lines written.
func Events(ctx context.Context, store Lister, w io.Writer, f storage.ExportFilter) (int, error) {
	events, err := store.ListEvents(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("export: list events: %w", err)
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, ev := range events {
		if err := enc.Encode(toLine(ev)); err != nil {
			return 0, fmt.Errorf("export: encode %s: %w", ev.EventID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("export: flush: %w", err)
	}
	return len(events), nil
}

func toLine(ev model.Event) Line {
	token := ev.EventID
	if ev.SourceEventID != nil {
		token = match.FormatPrefixed(*ev.SourceEventID)
	}
	return Line{
		EventID:            token,
		UserMessage:        ev.UserMessage,
		Timestamp:          ev.Timestamp,
		SessionID:          ev.SessionID,
		RoutedInstructions: ev.RoutedInstructions,
	}
}
