package batch

import (
	"bytes"
	"fmt"
	"io"
)

// Validate runs the parser and validator over an entire batch without
// touching any store. Running it twice on the same input produces the
// same report.
func Validate(r io.Reader) (*ValidationReport, error) {
	report := &ValidationReport{}
	v := NewValidator()

	sc := NewLineScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		report.Total++

		c, err := ParseLine(sc.Bytes(), line)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}

		errs, warns := v.Check(c)
		for _, f := range errs {
			report.Errors = append(report.Errors, f.String())
		}
		for _, f := range warns {
			report.Warnings = append(report.Warnings, f.String())
		}
		if len(errs) == 0 {
			report.Valid++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("batch: read input: %w", err)
	}

	for _, f := range v.SequenceWarnings() {
		report.Warnings = append(report.Warnings, f.String())
	}
	report.Sessions = v.SessionCount()

	return report, nil
}
