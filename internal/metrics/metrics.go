// Package metrics renders the tagging-coverage reports over a destination
// store: headline counts, per-session iteration rates, and the breakdowns
// by anti-pattern, request type, and iteration type. All aggregation
// happens in SQL; this package only dispatches and formats.
package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pongogo/cotag/internal/storage"
)

// Querier is the slice of the store the metric reports read from.
type Querier interface {
	MetricsSummary(ctx context.Context) (storage.Summary, error)
	IterationRateBySession(ctx context.Context, limit int) ([]storage.SessionIteration, error)
	AntiPatternBreakdown(ctx context.Context) ([]storage.AntiPatternRow, error)
	RequestTypeBreakdown(ctx context.Context) ([]storage.RequestTypeRow, error)
	IterationTypeBreakdown(ctx context.Context) ([]storage.IterationTypeRow, error)
}

// Names lists the report names accepted by Render, in display order.
var Names = []string{"summary", "iteration-rate", "anti-patterns", "request-types", "iteration-types"}

// sessionLimit caps the iteration-rate report; sessions beyond it are
// the long tail of one-shot interactions.
const sessionLimit = 25

// Render writes the named report to w. An unknown name lists the valid
// ones in the error.
func Render(ctx context.Context, q Querier, w io.Writer, name string) error {
	switch name {
	case "summary":
		return renderSummary(ctx, q, w)
	case "iteration-rate":
		return renderIterationRate(ctx, q, w)
	case "anti-patterns":
		return renderAntiPatterns(ctx, q, w)
	case "request-types":
		return renderRequestTypes(ctx, q, w)
	case "iteration-types":
		return renderIterationTypes(ctx, q, w)
	case "all":
		for _, n := range Names {
			if err := Render(ctx, q, w, n); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
		return nil
	default:
		return fmt.Errorf("metrics: unknown report %q (valid: %s, all)", name, strings.Join(Names, ", "))
	}
}

func renderSummary(ctx context.Context, q Querier, w io.Writer) error {
	s, err := q.MetricsSummary(ctx)
	if err != nil {
		return fmt.Errorf("metrics: summary: %w", err)
	}
	pct := 0.0
	if s.TotalEvents > 0 {
		pct = 100 * float64(s.TaggedEvents) / float64(s.TotalEvents)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Events\t%d\n", s.TotalEvents)
	fmt.Fprintf(tw, "Tagged\t%d (%.1f%%)\n", s.TaggedEvents, pct)
	fmt.Fprintf(tw, "Taggers\t%d\n", s.TaggerCount)
	fmt.Fprintf(tw, "Import runs\t%d\n", s.ImportRuns)
	return tw.Flush()
}

func renderIterationRate(ctx context.Context, q Querier, w io.Writer) error {
	rows, err := q.IterationRateBySession(ctx, sessionLimit)
	if err != nil {
		return fmt.Errorf("metrics: iteration rate: %w", err)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SESSION\tEVENTS\tFOLLOWUPS\tCORRECTIONS\tITER RATE")
	for _, r := range rows {
		rate := "n/a"
		if r.IterationRate != nil {
			rate = fmt.Sprintf("%.2f", *r.IterationRate)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", r.SessionID, r.Events, r.Followups, r.Corrections, rate)
	}
	return tw.Flush()
}

func renderAntiPatterns(ctx context.Context, q Querier, w io.Writer) error {
	rows, err := q.AntiPatternBreakdown(ctx)
	if err != nil {
		return fmt.Errorf("metrics: anti-patterns: %w", err)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ANTI-PATTERN\tPREVENTIVE INSTRUCTION\tCOUNT\tROUTED\t% ROUTED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\n",
			label(r.AntiPatternType), label(r.PreventiveInstruction), r.Count, r.Routed, r.PctRouted)
	}
	return tw.Flush()
}

func renderRequestTypes(ctx context.Context, q Querier, w io.Writer) error {
	rows, err := q.RequestTypeBreakdown(ctx)
	if err != nil {
		return fmt.Errorf("metrics: request types: %w", err)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "REQUEST TYPE\tCOUNT\t%\tSUCCESS RATE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f%%\n", label(r.RequestType), r.Count, r.Pct, r.SuccessRate)
	}
	return tw.Flush()
}

func renderIterationTypes(ctx context.Context, q Querier, w io.Writer) error {
	rows, err := q.IterationTypeBreakdown(ctx)
	if err != nil {
		return fmt.Errorf("metrics: iteration types: %w", err)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ITERATION TYPE\tCOUNT\t%")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", label(r.IterationType), r.Count, r.Pct)
	}
	return tw.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func label(s *string) string {
	if s == nil || *s == "" {
		return "(none)"
	}
	return *s
}
