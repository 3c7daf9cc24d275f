package importer

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/pongogo/cotag/internal/batch"
)

// previewLimit caps how many error and warning strings the rendered
// report shows; the remainder is summarized as a count so nothing is
// silently dropped.
const previewLimit = 10

// Report aggregates the outcome of one import run.
type Report struct {
	RunID    uuid.UUID
	TaggerID string
	DryRun   bool

	Total    int // lines seen
	Imported int // tags written (or structurally valid lines in dry-run)
	NotFound int // lines referencing events absent from the store

	Errors   []string // per-line errors, in input order
	Warnings []string
}

func (r *Report) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) {
	if r.DryRun {
		fmt.Fprintf(w, "\nDry run — nothing written.\n")
	}
	fmt.Fprintf(w, "\nImport statistics (run %s):\n", r.RunID)
	fmt.Fprintf(w, "  Total lines:     %d\n", r.Total)
	if r.DryRun {
		fmt.Fprintf(w, "  Would import:    %d\n", r.Imported)
	} else {
		fmt.Fprintf(w, "  Imported:        %d\n", r.Imported)
		fmt.Fprintf(w, "  Event not found: %d\n", r.NotFound)
	}

	batch.WritePreview(w, "Errors", r.Errors, previewLimit)
	batch.WritePreview(w, "Warnings", r.Warnings, previewLimit)
}
