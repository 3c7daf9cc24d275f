package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pongogo/cotag/internal/model"
)

// tagColumns is the full column list of collaboration_tags, in insert and
// scan order.
const tagColumns = `event_id, tagger_id, tag_version,
	is_new_request, tagged_session_id, request_sequence, is_followup, is_correction,
	iteration_type, request_type, expected_outcome, expected_first_pass_success,
	outcome_observed, outcome_notes, anti_pattern_detected, anti_pattern_type,
	preventive_instruction, preventive_instruction_was_routed, context_sufficient,
	missing_context, agent_response, agent_response_source, confidence, notes,
	requires_agent_response, created_at`

// WriteTag persists tag as a new immutable version and returns the version
// assigned. The transaction opens with the write lock held (txlock=immediate),
// so reading the current maximum and inserting the successor is one atomic
// unit even when several importer processes target the same database.
func (s *Store) WriteTag(ctx context.Context, tag model.Tag) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tag write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(tag_version), 0) + 1 FROM collaboration_tags WHERE event_id = ? AND tagger_id = ?`,
		tag.EventID, tag.TaggerID,
	).Scan(&next); err != nil {
		return 0, fmt.Errorf("sqlite: next tag version: %w", err)
	}

	createdAt := tag.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collaboration_tags (`+tagColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tag.EventID, tag.TaggerID, next,
		tag.IsNewRequest, tag.TaggedSessionID, tag.RequestSequence, tag.IsFollowup, tag.IsCorrection,
		tag.IterationType, tag.RequestType, tag.ExpectedOutcome, tag.ExpectedFirstPassSuccess,
		tag.OutcomeObserved, tag.OutcomeNotes, tag.AntiPatternDetected, tag.AntiPatternType,
		tag.PreventiveInstruction, tag.PreventiveInstructionWasRouted, tag.ContextSufficient,
		tag.MissingContext, tag.AgentResponse, tag.AgentResponseSource, tag.Confidence, tag.Notes,
		tag.RequiresAgentResponse, createdAt.Format(time.RFC3339Nano),
	); err != nil {
		return 0, fmt.Errorf("sqlite: insert tag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit tag write: %w", err)
	}
	return next, nil
}

// TagHistory returns every version written for (eventID, taggerID), oldest
// first.
func (s *Store) TagHistory(ctx context.Context, eventID, taggerID string) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM collaboration_tags
		 WHERE event_id = ? AND tagger_id = ?
		 ORDER BY tag_version ASC`,
		eventID, taggerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tag history: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		var createdAt string
		if err := rows.Scan(
			&t.EventID, &t.TaggerID, &t.TagVersion,
			&t.IsNewRequest, &t.TaggedSessionID, &t.RequestSequence, &t.IsFollowup, &t.IsCorrection,
			&t.IterationType, &t.RequestType, &t.ExpectedOutcome, &t.ExpectedFirstPassSuccess,
			&t.OutcomeObserved, &t.OutcomeNotes, &t.AntiPatternDetected, &t.AntiPatternType,
			&t.PreventiveInstruction, &t.PreventiveInstructionWasRouted, &t.ContextSufficient,
			&t.MissingContext, &t.AgentResponse, &t.AgentResponseSource, &t.Confidence, &t.Notes,
			&t.RequiresAgentResponse, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan tag: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: tag history: %w", err)
	}
	return tags, nil
}

// RecordImportRun appends the provenance row for a committed import.
func (s *Store) RecordImportRun(ctx context.Context, run model.ImportRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (run_id, tagger_id, source, started_at, finished_at, total, imported, not_found, error_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID.String(), run.TaggerID, run.Source,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total, run.Imported, run.NotFound, run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("sqlite: record import run: %w", err)
	}
	return nil
}
