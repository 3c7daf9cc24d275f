// Package importer drives the batch pipeline: parse each line, validate,
// resolve the event reference, and append the tag as a new version.
// Per-line failures are collected and never abort the batch; only a
// missing tag schema is batch-fatal, detected before any record is
// processed. Records are processed strictly in input order, one at a
// time, and each successful write is durable on its own — a later
// failure never rolls an earlier record back.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pongogo/cotag/internal/batch"
	"github.com/pongogo/cotag/internal/match"
	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
	"github.com/pongogo/cotag/internal/telemetry"
)

const scopeName = "github.com/pongogo/cotag/internal/importer"

// Store is the slice of the destination store the importer needs.
type Store interface {
	HasTagSchema(ctx context.Context) (bool, error)
	WriteTag(ctx context.Context, tag model.Tag) (int, error)
	RecordImportRun(ctx context.Context, run model.ImportRun) error
}

// Options configures one import run.
type Options struct {
	TaggerID string // identifier of the annotating agent, e.g. "llm:codex"
	Source   string // batch file name or other label for provenance
	DryRun   bool   // parse and validate only; nothing is written
}

// Importer runs batches against a destination store.
type Importer struct {
	store    Store
	resolver match.Resolver
	logger   *slog.Logger

	tracer   trace.Tracer
	imported metric.Int64Counter
	notFound metric.Int64Counter
	failed   metric.Int64Counter
}

// New creates an Importer. Metric instruments come from the global meter
// provider, so they are no-ops unless telemetry is initialized.
func New(store Store, resolver match.Resolver, logger *slog.Logger) *Importer {
	meter := telemetry.Meter(scopeName)
	imported, _ := meter.Int64Counter("cotag.import.imported",
		metric.WithDescription("Tags written as new versions"))
	notFound, _ := meter.Int64Counter("cotag.import.event_not_found",
		metric.WithDescription("Batch lines referencing events absent from the store"))
	failed, _ := meter.Int64Counter("cotag.import.errors",
		metric.WithDescription("Batch lines rejected with per-line errors"))

	return &Importer{
		store:    store,
		resolver: resolver,
		logger:   logger,
		tracer:   otel.Tracer(scopeName),
		imported: imported,
		notFound: notFound,
		failed:   failed,
	}
}

// Run processes one batch. The returned report is valid whenever err is
// nil; err is reserved for batch-fatal conditions (missing schema,
// unreadable input).
func (imp *Importer) Run(ctx context.Context, r io.Reader, opts Options) (*Report, error) {
	ctx, span := imp.tracer.Start(ctx, "import.run",
		trace.WithAttributes(
			attribute.String("tagger_id", opts.TaggerID),
			attribute.Bool("dry_run", opts.DryRun),
		))
	defer span.End()

	if !opts.DryRun {
		ok, err := imp.store.HasTagSchema(ctx)
		if err != nil {
			return nil, fmt.Errorf("importer: probe schema: %w", err)
		}
		if !ok {
			return nil, storage.ErrSchemaMissing
		}
	}

	report := &Report{RunID: uuid.New(), TaggerID: opts.TaggerID, DryRun: opts.DryRun}
	validator := batch.NewValidator()
	startedAt := time.Now().UTC()

	sc := batch.NewLineScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		report.Total++

		c, err := batch.ParseLine(sc.Bytes(), line)
		if err != nil {
			report.addError(err.Error())
			continue
		}

		errs, warns := validator.Check(c)
		for _, f := range warns {
			report.Warnings = append(report.Warnings, f.String())
		}
		if len(errs) > 0 {
			for _, f := range errs {
				report.addError(f.String())
			}
			continue
		}

		if opts.DryRun {
			report.Imported++
			continue
		}

		ref, err := imp.resolver.Resolve(ctx, c.EventID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Pruned or never-exported events are a counted statistic,
			// not an error.
			report.NotFound++
			continue
		case errors.Is(err, match.ErrInvalidIdentifier):
			report.addError(fmt.Sprintf("line %d: %v", line, err))
			continue
		case err != nil:
			report.addError(fmt.Sprintf("line %d: resolve %q: %v", line, c.EventID, err))
			continue
		}

		tag := model.TagFromFields(ref.EventID, opts.TaggerID, c.Tags)
		version, err := imp.store.WriteTag(ctx, tag)
		if err != nil {
			report.addError(fmt.Sprintf("line %d (%s): write tag: %v", line, c.EventID, err))
			continue
		}
		report.Imported++
		imp.logger.Debug("tag written",
			"event_id", ref.EventID, "tagger_id", opts.TaggerID, "tag_version", version)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("importer: read batch: %w", err)
	}

	for _, f := range validator.SequenceWarnings() {
		report.Warnings = append(report.Warnings, f.String())
	}

	if !opts.DryRun {
		run := model.ImportRun{
			RunID:      report.RunID,
			TaggerID:   opts.TaggerID,
			Source:     opts.Source,
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
			Total:      report.Total,
			Imported:   report.Imported,
			NotFound:   report.NotFound,
			ErrorCount: len(report.Errors),
		}
		if err := imp.store.RecordImportRun(ctx, run); err != nil {
			imp.logger.Warn("import run not recorded", "error", err)
		}
	}

	attrs := metric.WithAttributes(attribute.String("tagger_id", opts.TaggerID))
	imp.imported.Add(ctx, int64(report.Imported), attrs)
	imp.notFound.Add(ctx, int64(report.NotFound), attrs)
	imp.failed.Add(ctx, int64(len(report.Errors)), attrs)
	span.SetAttributes(
		attribute.Int("total", report.Total),
		attribute.Int("imported", report.Imported),
		attribute.Int("not_found", report.NotFound),
		attribute.Int("errors", len(report.Errors)),
	)

	return report, nil
}
