package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pongogo/cotag/internal/model"
)

const tagColumns = `event_id, tagger_id, tag_version,
	is_new_request, tagged_session_id, request_sequence, is_followup, is_correction,
	iteration_type, request_type, expected_outcome, expected_first_pass_success,
	outcome_observed, outcome_notes, anti_pattern_detected, anti_pattern_type,
	preventive_instruction, preventive_instruction_was_routed, context_sufficient,
	missing_context, agent_response, agent_response_source, confidence, notes,
	requires_agent_response, created_at`

// WriteTag persists tag as a new immutable version and returns the version
// assigned. The version is computed inside the insert itself; if two
// importer processes race the computation, the loser hits the primary key
// and the write is retried with a fresh maximum.
func (s *Store) WriteTag(ctx context.Context, tag model.Tag) (int, error) {
	createdAt := tag.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var version int
	err := withRetry(ctx, s.retries, 10*time.Millisecond, func() error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO collaboration_tags (`+tagColumns+`)
			 SELECT $1, $2, COALESCE(MAX(tag_version), 0) + 1,
			        $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
			 FROM collaboration_tags WHERE event_id = $1 AND tagger_id = $2
			 RETURNING tag_version`,
			tag.EventID, tag.TaggerID,
			tag.IsNewRequest, tag.TaggedSessionID, tag.RequestSequence, tag.IsFollowup, tag.IsCorrection,
			tag.IterationType, tag.RequestType, tag.ExpectedOutcome, tag.ExpectedFirstPassSuccess,
			tag.OutcomeObserved, tag.OutcomeNotes, tag.AntiPatternDetected, tag.AntiPatternType,
			tag.PreventiveInstruction, tag.PreventiveInstructionWasRouted, tag.ContextSufficient,
			tag.MissingContext, tag.AgentResponse, tag.AgentResponseSource, tag.Confidence, tag.Notes,
			tag.RequiresAgentResponse, createdAt,
		).Scan(&version)
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: insert tag: %w", err)
	}
	return version, nil
}

// TagHistory returns every version written for (eventID, taggerID), oldest
// first.
func (s *Store) TagHistory(ctx context.Context, eventID, taggerID string) ([]model.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tagColumns+` FROM collaboration_tags
		 WHERE event_id = $1 AND tagger_id = $2
		 ORDER BY tag_version ASC`,
		eventID, taggerID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: tag history: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(
			&t.EventID, &t.TaggerID, &t.TagVersion,
			&t.IsNewRequest, &t.TaggedSessionID, &t.RequestSequence, &t.IsFollowup, &t.IsCorrection,
			&t.IterationType, &t.RequestType, &t.ExpectedOutcome, &t.ExpectedFirstPassSuccess,
			&t.OutcomeObserved, &t.OutcomeNotes, &t.AntiPatternDetected, &t.AntiPatternType,
			&t.PreventiveInstruction, &t.PreventiveInstructionWasRouted, &t.ContextSufficient,
			&t.MissingContext, &t.AgentResponse, &t.AgentResponseSource, &t.Confidence, &t.Notes,
			&t.RequiresAgentResponse, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: tag history: %w", err)
	}
	return tags, nil
}

// RecordImportRun appends the provenance row for a committed import.
func (s *Store) RecordImportRun(ctx context.Context, run model.ImportRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (run_id, tagger_id, source, started_at, finished_at, total, imported, not_found, error_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.RunID, run.TaggerID, run.Source, run.StartedAt, run.FinishedAt,
		run.Total, run.Imported, run.NotFound, run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: record import run: %w", err)
	}
	return nil
}
