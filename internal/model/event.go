// Package model defines the core entities of the collaboration-tagging
// pipeline: routing-log events, versioned tags, and the ephemeral batch
// candidates that flow between them.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is one canonical interaction record from the assistant routing log.
// Source of truth. The pipeline only reads and matches against it.
type Event struct {
	EventID            string   `json:"event_id"`
	SourceEventID      *int64   `json:"source_event_id,omitempty"`
	UserMessage        string   `json:"user_message"`
	Timestamp          string   `json:"timestamp"`
	SessionID          string   `json:"session_id,omitempty"`
	RoutedInstructions []string `json:"routed_instructions"`
	ExcludeReason      *string  `json:"exclude_reason,omitempty"`
}

// Tainted reports whether the event carries an exclusion marker and
// should be skipped by exports that filter tainted data.
func (e Event) Tainted() bool {
	return e.ExcludeReason != nil && *e.ExcludeReason != ""
}

// EventRef is the resolved internal reference for an external event
// identifier token.
type EventRef struct {
	EventID       string
	SourceEventID *int64
}

// TagCandidate is one parsed batch line awaiting validation and import.
// It is never persisted; the raw tags map is consumed by the validator
// and then mapped onto a Tag for writing.
type TagCandidate struct {
	Line    int            // 1-based input line number
	EventID string         // external identifier token, unresolved
	Tags    map[string]any // raw tags object as decoded from JSON
}

// ImportRun is the provenance record of one committed batch import.
type ImportRun struct {
	RunID      uuid.UUID
	TaggerID   string
	Source     string // batch file name or other caller-supplied label
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Imported   int
	NotFound   int
	ErrorCount int
}
