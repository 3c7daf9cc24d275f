package batch

import (
	"fmt"
	"io"
)

// ValidationReport aggregates the outcome of validating one batch file.
type ValidationReport struct {
	Total    int
	Valid    int
	Sessions int
	Errors   []string
	Warnings []string
}

// Clean reports whether the batch produced no errors and no warnings.
func (r *ValidationReport) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// Render writes the human-readable validation summary.
func (r *ValidationReport) Render(w io.Writer) {
	fmt.Fprintf(w, "Records:  %d\n", r.Total)
	fmt.Fprintf(w, "Valid:    %d\n", r.Valid)
	fmt.Fprintf(w, "Sessions: %d\n", r.Sessions)
	WritePreview(w, "Errors", r.Errors, 10)
	WritePreview(w, "Warnings", r.Warnings, 10)
	if r.Clean() {
		fmt.Fprintln(w, "Batch is clean.")
	}
}

// WritePreview prints up to max items followed by a remainder count, so
// large batches never flood the terminal while the totals stay honest.
func WritePreview(w io.Writer, label string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d):\n", label, len(items))
	for i, item := range items {
		if i == max {
			fmt.Fprintf(w, "  ... and %d more\n", len(items)-max)
			return
		}
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
