package model

import "time"

// RequestType classifies what kind of work a tagged request asked for.
type RequestType string

const (
	RequestProcedural RequestType = "procedural"
	RequestQuery      RequestType = "query"
	RequestAction     RequestType = "action"
	RequestMeta       RequestType = "meta"
	RequestUnclear    RequestType = "unclear"
)

// requestTypes is the closed set of accepted request_type values.
var requestTypes = map[RequestType]bool{
	RequestProcedural: true,
	RequestQuery:      true,
	RequestAction:     true,
	RequestMeta:       true,
	RequestUnclear:    true,
}

// ValidRequestType reports whether s is an accepted request_type value.
func ValidRequestType(s string) bool {
	return requestTypes[RequestType(s)]
}

// Confidence is the tagger's self-reported confidence in a tag.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidConfidence reports whether s is an accepted confidence value.
func ValidConfidence(s string) bool {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Tag is one versioned collaboration annotation on an event.
// Identity is (EventID, TaggerID, TagVersion); rows are append-only.
// Re-tagging the same event by the same tagger writes a new version,
// it never touches an existing row.
type Tag struct {
	EventID    string `json:"event_id"`
	TaggerID   string `json:"tagger_id"`
	TagVersion int    `json:"tag_version"`

	// Request classification.
	IsNewRequest  *bool   `json:"is_new_request,omitempty"`
	IsFollowup    *bool   `json:"is_followup,omitempty"`
	IsCorrection  *bool   `json:"is_correction,omitempty"`
	RequestType   *string `json:"request_type,omitempty"`
	IterationType *string `json:"iteration_type,omitempty"`

	// Tagging-session correlator.
	TaggedSessionID *string `json:"tagged_session_id,omitempty"`
	RequestSequence *int    `json:"request_sequence,omitempty"`

	// Expected vs. observed outcome.
	ExpectedOutcome          *string `json:"expected_outcome,omitempty"`
	ExpectedFirstPassSuccess *bool   `json:"expected_first_pass_success,omitempty"`
	OutcomeObserved          *string `json:"outcome_observed,omitempty"`
	OutcomeNotes             *string `json:"outcome_notes,omitempty"`

	// Anti-pattern diagnostics.
	AntiPatternDetected            *bool   `json:"anti_pattern_detected,omitempty"`
	AntiPatternType                *string `json:"anti_pattern_type,omitempty"`
	PreventiveInstruction          *string `json:"preventive_instruction,omitempty"`
	PreventiveInstructionWasRouted *bool   `json:"preventive_instruction_was_routed,omitempty"`

	// Context sufficiency.
	ContextSufficient *bool   `json:"context_sufficient,omitempty"`
	MissingContext    *string `json:"missing_context,omitempty"`

	// Provenance.
	AgentResponse         *string `json:"agent_response,omitempty"`
	AgentResponseSource   *string `json:"agent_response_source,omitempty"`
	Confidence            *string `json:"confidence,omitempty"`
	Notes                 *string `json:"notes,omitempty"`
	RequiresAgentResponse *bool   `json:"requires_agent_response,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TagFromFields maps a raw tags object onto a Tag. Callers validate the
// fields first; here a value of the wrong JSON type is simply left nil.
// Unknown keys are ignored, matching the tagging export contract.
func TagFromFields(eventID, taggerID string, fields map[string]any) Tag {
	t := Tag{EventID: eventID, TaggerID: taggerID}

	t.IsNewRequest = boolField(fields, "is_new_request")
	t.IsFollowup = boolField(fields, "is_followup")
	t.IsCorrection = boolField(fields, "is_correction")
	t.RequestType = stringField(fields, "request_type")
	t.IterationType = stringField(fields, "iteration_type")

	// The batch format calls the correlator session_id; it is stored as
	// tagged_session_id to keep it distinct from the event's original
	// conversation session.
	t.TaggedSessionID = stringField(fields, "session_id")
	t.RequestSequence = intField(fields, "request_sequence")

	t.ExpectedOutcome = stringField(fields, "expected_outcome")
	t.ExpectedFirstPassSuccess = boolField(fields, "expected_first_pass_success")
	t.OutcomeObserved = stringField(fields, "outcome_observed")
	t.OutcomeNotes = stringField(fields, "outcome_notes")

	t.AntiPatternDetected = boolField(fields, "anti_pattern_detected")
	t.AntiPatternType = stringField(fields, "anti_pattern_type")
	t.PreventiveInstruction = stringField(fields, "preventive_instruction")
	t.PreventiveInstructionWasRouted = boolField(fields, "preventive_instruction_was_routed")

	t.ContextSufficient = boolField(fields, "context_sufficient")
	t.MissingContext = stringField(fields, "missing_context")

	t.AgentResponse = stringField(fields, "agent_response")
	t.AgentResponseSource = stringField(fields, "agent_response_source")
	t.Confidence = stringField(fields, "confidence")
	t.Notes = stringField(fields, "notes")
	t.RequiresAgentResponse = boolField(fields, "requires_agent_response")

	return t
}

func boolField(fields map[string]any, key string) *bool {
	if v, ok := fields[key].(bool); ok {
		return &v
	}
	return nil
}

func stringField(fields map[string]any, key string) *string {
	if v, ok := fields[key].(string); ok {
		return &v
	}
	return nil
}

// intField accepts whole JSON numbers. encoding/json decodes all numbers
// into float64, so a fractional value is treated as absent.
func intField(fields map[string]any, key string) *int {
	f, ok := fields[key].(float64)
	if !ok || f != float64(int(f)) {
		return nil
	}
	v := int(f)
	return &v
}
