package postgres

import (
	"context"
	"fmt"

	"github.com/pongogo/cotag/internal/storage"
)

// latestTags restricts aggregation to the newest version per
// (event_id, tagger_id). Superseded versions stay in history but never
// count toward metrics.
const latestTags = `latest AS (
	SELECT DISTINCT ON (event_id, tagger_id) *
	FROM collaboration_tags
	ORDER BY event_id, tagger_id, tag_version DESC
)`

// MetricsSummary reports tagging coverage over the evaluation dataset.
func (s *Store) MetricsSummary(ctx context.Context) (storage.Summary, error) {
	var sum storage.Summary
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(DISTINCT event_id) FROM collaboration_tags),
			(SELECT COUNT(DISTINCT tagger_id) FROM collaboration_tags),
			(SELECT COUNT(*) FROM import_runs)
	`).Scan(&sum.TotalEvents, &sum.TaggedEvents, &sum.TaggerCount, &sum.ImportRuns)
	if err != nil {
		return storage.Summary{}, fmt.Errorf("postgres: metrics summary: %w", err)
	}
	return sum, nil
}

// IterationRateBySession returns per-session iteration rates, highest first.
func (s *Store) IterationRateBySession(ctx context.Context, limit int) ([]storage.SessionIteration, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		WITH `+latestTags+`
		SELECT
			COALESCE(tagged_session_id, ''),
			COUNT(*) AS events,
			COUNT(*) FILTER (WHERE is_followup) AS followups,
			COUNT(*) FILTER (WHERE is_correction) AS corrections,
			ROUND(COUNT(*)::numeric /
				NULLIF(COUNT(*) FILTER (WHERE is_new_request), 0), 2)::float8 AS iteration_rate
		FROM latest
		GROUP BY tagged_session_id
		ORDER BY iteration_rate DESC NULLS LAST
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: iteration rate: %w", err)
	}
	defer rows.Close()

	var out []storage.SessionIteration
	for rows.Next() {
		var r storage.SessionIteration
		if err := rows.Scan(&r.SessionID, &r.Events, &r.Followups, &r.Corrections, &r.IterationRate); err != nil {
			return nil, fmt.Errorf("postgres: scan iteration rate: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AntiPatternBreakdown groups detected anti-patterns by type and
// preventive instruction.
func (s *Store) AntiPatternBreakdown(ctx context.Context) ([]storage.AntiPatternRow, error) {
	rows, err := s.pool.Query(ctx, `
		WITH `+latestTags+`
		SELECT
			anti_pattern_type,
			preventive_instruction,
			COUNT(*) AS count,
			COUNT(*) FILTER (WHERE preventive_instruction_was_routed) AS routed,
			ROUND(100.0 * COUNT(*) FILTER (WHERE preventive_instruction_was_routed) / COUNT(*), 1)::float8
		FROM latest
		WHERE anti_pattern_detected
		GROUP BY anti_pattern_type, preventive_instruction
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: anti-pattern breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.AntiPatternRow
	for rows.Next() {
		var r storage.AntiPatternRow
		if err := rows.Scan(&r.AntiPatternType, &r.PreventiveInstruction, &r.Count, &r.Routed, &r.PctRouted); err != nil {
			return nil, fmt.Errorf("postgres: scan anti-pattern row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RequestTypeBreakdown returns the distribution of request types with the
// observed success rate per type.
func (s *Store) RequestTypeBreakdown(ctx context.Context) ([]storage.RequestTypeRow, error) {
	rows, err := s.pool.Query(ctx, `
		WITH `+latestTags+`
		SELECT
			request_type,
			COUNT(*) AS count,
			ROUND(100.0 * COUNT(*) / (SELECT COUNT(*) FROM latest), 1)::float8,
			AVG(CASE WHEN outcome_observed = 'success' THEN 1.0 ELSE 0.0 END)::float8
		FROM latest
		GROUP BY request_type
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: request-type breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.RequestTypeRow
	for rows.Next() {
		var r storage.RequestTypeRow
		if err := rows.Scan(&r.RequestType, &r.Count, &r.Pct, &r.SuccessRate); err != nil {
			return nil, fmt.Errorf("postgres: scan request-type row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IterationTypeBreakdown returns the distribution of iteration types.
func (s *Store) IterationTypeBreakdown(ctx context.Context) ([]storage.IterationTypeRow, error) {
	rows, err := s.pool.Query(ctx, `
		WITH `+latestTags+`
		SELECT
			iteration_type,
			COUNT(*) AS count,
			ROUND(100.0 * COUNT(*) / (SELECT COUNT(*) FROM latest), 1)::float8
		FROM latest
		GROUP BY iteration_type
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: iteration-type breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.IterationTypeRow
	for rows.Next() {
		var r storage.IterationTypeRow
		if err := rows.Scan(&r.IterationType, &r.Count, &r.Pct); err != nil {
			return nil, fmt.Errorf("postgres: scan iteration-type row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
