// Package batch parses and validates newline-delimited tag records before
// they are matched and imported. Per-line failures are reported as findings
// and never abort the surrounding batch.
package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pongogo/cotag/internal/model"
)

// MaxLineBytes caps a single batch line. Tagged events carry free-text
// notes and agent responses, so the default bufio limit is too small.
const MaxLineBytes = 1 << 20

// Sentinel causes for parse-level failures that are not JSON syntax errors.
var (
	ErrMissingEventID = errors.New(`missing "event_id" key`)
	ErrMissingTags    = errors.New(`missing "tags" key`)
)

// ParseError is a per-line parse failure. The line number is 1-based.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLine decodes one batch line into a TagCandidate. A missing
// "event_id" or "tags" key is reported distinctly from malformed JSON;
// both come back as a *ParseError carrying lineNum.
func ParseLine(data []byte, lineNum int) (model.TagCandidate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	idRaw, ok := raw["event_id"]
	if !ok {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: ErrMissingEventID}
	}
	var eventID string
	if err := json.Unmarshal(idRaw, &eventID); err != nil {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: fmt.Errorf(`"event_id" must be a string: %w`, err)}
	}

	tagsRaw, ok := raw["tags"]
	if !ok {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: ErrMissingTags}
	}
	var tags map[string]any
	if err := json.Unmarshal(tagsRaw, &tags); err != nil {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: fmt.Errorf(`"tags" must be an object: %w`, err)}
	}
	if tags == nil {
		return model.TagCandidate{}, &ParseError{Line: lineNum, Err: ErrMissingTags}
	}

	return model.TagCandidate{Line: lineNum, EventID: eventID, Tags: tags}, nil
}

// NewLineScanner returns a bufio.Scanner sized for batch lines.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), MaxLineBytes)
	return s
}
