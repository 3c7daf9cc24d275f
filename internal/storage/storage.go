// Package storage defines the destination-store contract for the tagging
// pipeline and the sentinel errors shared by its backends. Two backends
// implement it: SQLite (the original deployment format) and PostgreSQL.
// Schema creation is an explicit step (cotag init); the pipeline itself
// only probes for the tag table and fails fast when it is absent.
package storage

import (
	"context"
	"errors"

	"github.com/pongogo/cotag/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrSchemaMissing is returned when the destination store lacks the
	// collaboration_tags table. Batch-fatal: nothing is processed.
	ErrSchemaMissing = errors.New("storage: collaboration_tags table not found (run: cotag init --db PATH)")
)

// ExportFilter narrows which events an export lists.
type ExportFilter struct {
	ExcludeTainted bool   // skip events with a non-null exclude_reason
	MinSourceID    *int64 // inclusive lower bound on the numeric source key
	MaxSourceID    *int64 // inclusive upper bound on the numeric source key
	Limit          int    // 0 means no limit
	UntaggedOnly   bool   // only events with no tags at all
}

// Summary is the headline tagging-coverage metric.
type Summary struct {
	TotalEvents  int64
	TaggedEvents int64
	TaggerCount  int64
	ImportRuns   int64
}

// SessionIteration is one row of the iteration-rate-by-session metric.
type SessionIteration struct {
	SessionID     string
	Events        int64
	Followups     int64
	Corrections   int64
	IterationRate *float64 // nil when the session has no new requests
}

// AntiPatternRow is one row of the anti-pattern breakdown.
type AntiPatternRow struct {
	AntiPatternType       *string
	PreventiveInstruction *string
	Count                 int64
	Routed                int64
	PctRouted             float64
}

// RequestTypeRow is one row of the request-type breakdown.
type RequestTypeRow struct {
	RequestType *string
	Count       int64
	Pct         float64
	SuccessRate float64
}

// IterationTypeRow is one row of the iteration-type breakdown.
type IterationTypeRow struct {
	IterationType *string
	Count         int64
	Pct           float64
}

// Store is the full destination-store contract. All methods are safe for
// sequential use from a single importer; WriteTag additionally guarantees
// that its version computation serializes against concurrent importer
// processes targeting the same store.
type Store interface {
	// Event resolution (read-only).
	GetEventByID(ctx context.Context, eventID string) (model.EventRef, error)
	GetEventBySourceID(ctx context.Context, sourceID int64) (model.EventRef, error)

	// Schema probe for the tag table.
	HasTagSchema(ctx context.Context) (bool, error)

	// WriteTag persists tag as a new immutable version and returns the
	// version it was assigned. The next version is MAX(existing)+1 per
	// (event_id, tagger_id), computed and inserted as one atomic unit.
	WriteTag(ctx context.Context, tag model.Tag) (int, error)

	// TagHistory returns every version written for (eventID, taggerID),
	// oldest first.
	TagHistory(ctx context.Context, eventID, taggerID string) ([]model.Tag, error)

	// ListEvents returns events matching the export filter, ordered by
	// their numeric source key (falling back to event_id).
	ListEvents(ctx context.Context, f ExportFilter) ([]model.Event, error)

	// RecordImportRun appends the provenance row for a committed import.
	RecordImportRun(ctx context.Context, run model.ImportRun) error

	// Metrics queries over the tag corpus.
	MetricsSummary(ctx context.Context) (Summary, error)
	IterationRateBySession(ctx context.Context, limit int) ([]SessionIteration, error)
	AntiPatternBreakdown(ctx context.Context) ([]AntiPatternRow, error)
	RequestTypeBreakdown(ctx context.Context) ([]RequestTypeRow, error)
	IterationTypeBreakdown(ctx context.Context) ([]IterationTypeRow, error)

	// Migrate applies the embedded schema migrations (cotag init).
	Migrate(ctx context.Context) error

	Close(ctx context.Context) error
}
