package batch

import (
	"fmt"
	"sort"

	"github.com/pongogo/cotag/internal/model"
)

// RequiredFields are the tag fields whose absence invalidates a record.
var RequiredFields = []string{
	"is_new_request",
	"is_followup",
	"is_correction",
	"request_type",
	"expected_outcome",
	"session_id",
	"request_sequence",
}

// booleanFields must decode as JSON booleans, not strings or numbers.
var booleanFields = []string{"is_new_request", "is_followup", "is_correction"}

// Finding is one validation diagnostic. Line is 0 for cross-record
// findings (session-sequence warnings), which are scoped to a session
// rather than a single input line.
type Finding struct {
	Line    int
	EventID string
	Session string
	Message string
}

func (f Finding) String() string {
	switch {
	case f.Line == 0 && f.Session != "":
		return fmt.Sprintf("session %q: %s", f.Session, f.Message)
	case f.EventID != "":
		return fmt.Sprintf("line %d (%s): %s", f.Line, f.EventID, f.Message)
	default:
		return fmt.Sprintf("line %d: %s", f.Line, f.Message)
	}
}

type sessionRef struct {
	seq     int
	eventID string
}

// Validator classifies tag candidates. Per-record checks happen in Check;
// the cross-record session-sequence pass runs in SequenceWarnings once the
// whole batch has been seen. A Validator is single-use per batch: it
// accumulates seen event ids and session membership, and revalidating an
// unchanged batch with a fresh Validator yields identical findings.
type Validator struct {
	seen         map[string]bool
	sessions     map[string][]sessionRef
	sessionOrder []string
}

func NewValidator() *Validator {
	return &Validator{
		seen:     make(map[string]bool),
		sessions: make(map[string][]sessionRef),
	}
}

// Check runs the per-record checks on one candidate. Errors invalidate the
// record; warnings do not. Candidates that pass the hard checks are
// registered for the cross-record session-sequence pass. Check never
// mutates the candidate.
func (v *Validator) Check(c model.TagCandidate) (errs, warns []Finding) {
	finding := func(msg string, args ...any) Finding {
		return Finding{Line: c.Line, EventID: c.EventID, Message: fmt.Sprintf(msg, args...)}
	}

	// A duplicate identifier is flagged at the second occurrence and
	// excludes that record, whether or not its tags differ.
	if v.seen[c.EventID] {
		errs = append(errs, finding("duplicate event_id %q", c.EventID))
	}
	v.seen[c.EventID] = true

	for _, field := range RequiredFields {
		if _, ok := c.Tags[field]; !ok {
			errs = append(errs, finding("missing required field %q", field))
		}
	}
	if len(errs) > 0 {
		return errs, nil
	}

	for _, field := range booleanFields {
		if _, ok := c.Tags[field].(bool); !ok {
			errs = append(errs, finding("%q must be a boolean, got %s", field, jsonTypeName(c.Tags[field])))
		}
	}

	if rt, ok := c.Tags["request_type"].(string); !ok {
		errs = append(errs, finding(`"request_type" must be a string, got %s`, jsonTypeName(c.Tags["request_type"])))
	} else if !model.ValidRequestType(rt) {
		errs = append(errs, finding("invalid request_type %q (must be one of: procedural, query, action, meta, unclear)", rt))
	}

	seq, seqOK := wholeNumber(c.Tags["request_sequence"])
	if !seqOK || seq < 1 {
		errs = append(errs, finding(`"request_sequence" must be a positive integer`))
	}

	sessionID, ok := c.Tags["session_id"].(string)
	if !ok {
		// Grouping needs a string correlator, so a non-string value is a
		// hard failure even though the naming convention is only advisory.
		errs = append(errs, finding(`"session_id" must be a string, got %s`, jsonTypeName(c.Tags["session_id"])))
	} else if len(sessionID) < len("session_") || sessionID[:len("session_")] != "session_" {
		warns = append(warns, finding("session_id %q does not follow the session_<id> convention", sessionID))
	}

	if conf, present := c.Tags["confidence"]; present {
		if s, isStr := conf.(string); !isStr || !model.ValidConfidence(s) {
			warns = append(warns, finding("invalid confidence %v (should be one of: high, medium, low)", conf))
		}
	}

	if len(errs) > 0 {
		return errs, warns
	}

	if _, known := v.sessions[sessionID]; !known {
		v.sessionOrder = append(v.sessionOrder, sessionID)
	}
	v.sessions[sessionID] = append(v.sessions[sessionID], sessionRef{seq: seq, eventID: c.EventID})
	return nil, warns
}

// SequenceWarnings walks each tagging session in first-seen order, sorts
// its members by request_sequence, and flags every value that is not
// exactly one greater than its predecessor (starting expectation 1).
// Gaps are warnings, not rejections: sparse batches that tag only part
// of a session are tolerated.
func (v *Validator) SequenceWarnings() []Finding {
	var warns []Finding
	for _, sessionID := range v.sessionOrder {
		refs := append([]sessionRef(nil), v.sessions[sessionID]...)
		sort.SliceStable(refs, func(i, j int) bool { return refs[i].seq < refs[j].seq })

		prev := 0
		for _, ref := range refs {
			if ref.seq != prev+1 {
				warns = append(warns, Finding{
					Session: sessionID,
					Message: fmt.Sprintf("non-sequential request_sequence: expected %d, got %d for %s", prev+1, ref.seq, ref.eventID),
				})
			}
			prev = ref.seq
		}
	}
	return warns
}

// SessionCount returns the number of distinct tagging sessions seen so far.
func (v *Validator) SessionCount() int {
	return len(v.sessions)
}

// wholeNumber extracts an integral value from a decoded JSON number.
func wholeNumber(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// jsonTypeName names a decoded JSON value's type the way a tagger would
// see it in the input, for error messages.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
