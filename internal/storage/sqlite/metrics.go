package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pongogo/cotag/internal/storage"
)

// latestTags restricts aggregation to the newest version per
// (event_id, tagger_id). Superseded versions stay in history but never
// count toward metrics.
const latestTags = `latest AS (
	SELECT * FROM collaboration_tags t
	WHERE t.tag_version = (
		SELECT MAX(tag_version) FROM collaboration_tags
		WHERE event_id = t.event_id AND tagger_id = t.tagger_id
	)
)`

// MetricsSummary reports tagging coverage over the evaluation dataset.
func (s *Store) MetricsSummary(ctx context.Context) (storage.Summary, error) {
	var sum storage.Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(DISTINCT event_id) FROM collaboration_tags),
			(SELECT COUNT(DISTINCT tagger_id) FROM collaboration_tags),
			(SELECT COUNT(*) FROM import_runs)
	`).Scan(&sum.TotalEvents, &sum.TaggedEvents, &sum.TaggerCount, &sum.ImportRuns)
	if err != nil {
		return storage.Summary{}, fmt.Errorf("sqlite: metrics summary: %w", err)
	}
	return sum, nil
}

// IterationRateBySession returns per-session iteration rates, highest first.
// The rate is total events over new requests; sessions with no new requests
// have a NULL rate and sort last.
func (s *Store) IterationRateBySession(ctx context.Context, limit int) ([]storage.SessionIteration, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		WITH `+latestTags+`
		SELECT
			COALESCE(tagged_session_id, ''),
			COUNT(*) AS events,
			SUM(CASE WHEN is_followup = 1 THEN 1 ELSE 0 END) AS followups,
			SUM(CASE WHEN is_correction = 1 THEN 1 ELSE 0 END) AS corrections,
			ROUND(CAST(COUNT(*) AS REAL) /
				NULLIF(SUM(CASE WHEN is_new_request = 1 THEN 1 ELSE 0 END), 0), 2) AS iteration_rate
		FROM latest
		GROUP BY tagged_session_id
		ORDER BY iteration_rate DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: iteration rate: %w", err)
	}
	defer rows.Close()

	var out []storage.SessionIteration
	for rows.Next() {
		var r storage.SessionIteration
		var rate sql.NullFloat64
		if err := rows.Scan(&r.SessionID, &r.Events, &r.Followups, &r.Corrections, &rate); err != nil {
			return nil, fmt.Errorf("sqlite: scan iteration rate: %w", err)
		}
		if rate.Valid {
			r.IterationRate = &rate.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AntiPatternBreakdown groups detected anti-patterns by type and the
// preventive instruction that should have caught them. PctRouted is the
// share of cases where the instruction was routed yet the anti-pattern
// still occurred.
func (s *Store) AntiPatternBreakdown(ctx context.Context) ([]storage.AntiPatternRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH `+latestTags+`
		SELECT
			anti_pattern_type,
			preventive_instruction,
			COUNT(*) AS count,
			SUM(CASE WHEN preventive_instruction_was_routed = 1 THEN 1 ELSE 0 END) AS routed,
			ROUND(100.0 * SUM(CASE WHEN preventive_instruction_was_routed = 1 THEN 1 ELSE 0 END) / COUNT(*), 1)
		FROM latest
		WHERE anti_pattern_detected = 1
		GROUP BY anti_pattern_type, preventive_instruction
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: anti-pattern breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.AntiPatternRow
	for rows.Next() {
		var r storage.AntiPatternRow
		if err := rows.Scan(&r.AntiPatternType, &r.PreventiveInstruction, &r.Count, &r.Routed, &r.PctRouted); err != nil {
			return nil, fmt.Errorf("sqlite: scan anti-pattern row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RequestTypeBreakdown returns the distribution of request types with the
// observed success rate per type.
func (s *Store) RequestTypeBreakdown(ctx context.Context) ([]storage.RequestTypeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH `+latestTags+`
		SELECT
			request_type,
			COUNT(*) AS count,
			ROUND(100.0 * COUNT(*) / (SELECT COUNT(*) FROM latest), 1),
			AVG(CASE WHEN outcome_observed = 'success' THEN 1.0 ELSE 0.0 END)
		FROM latest
		GROUP BY request_type
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: request-type breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.RequestTypeRow
	for rows.Next() {
		var r storage.RequestTypeRow
		if err := rows.Scan(&r.RequestType, &r.Count, &r.Pct, &r.SuccessRate); err != nil {
			return nil, fmt.Errorf("sqlite: scan request-type row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IterationTypeBreakdown returns the distribution of iteration types.
func (s *Store) IterationTypeBreakdown(ctx context.Context) ([]storage.IterationTypeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH `+latestTags+`
		SELECT
			iteration_type,
			COUNT(*) AS count,
			ROUND(100.0 * COUNT(*) / (SELECT COUNT(*) FROM latest), 1)
		FROM latest
		GROUP BY iteration_type
		ORDER BY count DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: iteration-type breakdown: %w", err)
	}
	defer rows.Close()

	var out []storage.IterationTypeRow
	for rows.Next() {
		var r storage.IterationTypeRow
		if err := rows.Scan(&r.IterationType, &r.Count, &r.Pct); err != nil {
			return nil, fmt.Errorf("sqlite: scan iteration-type row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
