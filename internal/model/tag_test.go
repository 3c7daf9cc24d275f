package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRequestType(t *testing.T) {
	for _, v := range []string{"procedural", "query", "action", "meta", "unclear"} {
		assert.True(t, ValidRequestType(v), v)
	}
	assert.False(t, ValidRequestType("command"))
	assert.False(t, ValidRequestType(""))
	assert.False(t, ValidRequestType("Query"))
}

func TestValidConfidence(t *testing.T) {
	assert.True(t, ValidConfidence("high"))
	assert.True(t, ValidConfidence("medium"))
	assert.True(t, ValidConfidence("low"))
	assert.False(t, ValidConfidence("certain"))
	assert.False(t, ValidConfidence(""))
}

func TestTagFromFields_MapsAllFields(t *testing.T) {
	fields := map[string]any{
		"is_new_request":                    true,
		"is_followup":                       false,
		"is_correction":                     false,
		"request_type":                      "action",
		"iteration_type":                    "refinement",
		"session_id":                        "session_007",
		"request_sequence":                  float64(3), // as decoded by encoding/json
		"expected_outcome":                  "file created",
		"expected_first_pass_success":       true,
		"outcome_observed":                  "success",
		"outcome_notes":                     "worked first try",
		"anti_pattern_detected":             true,
		"anti_pattern_type":                 "premature_implementation",
		"preventive_instruction":            "plan-before-code",
		"preventive_instruction_was_routed": false,
		"context_sufficient":                true,
		"missing_context":                   "",
		"agent_response":                    "done",
		"agent_response_source":             "transcript",
		"confidence":                        "high",
		"notes":                             "clean run",
		"requires_agent_response":           false,
	}

	tag := TagFromFields("evt_000042", "llm:codex", fields)

	assert.Equal(t, "evt_000042", tag.EventID)
	assert.Equal(t, "llm:codex", tag.TaggerID)
	require.NotNil(t, tag.IsNewRequest)
	assert.True(t, *tag.IsNewRequest)
	require.NotNil(t, tag.TaggedSessionID)
	assert.Equal(t, "session_007", *tag.TaggedSessionID)
	require.NotNil(t, tag.RequestSequence)
	assert.Equal(t, 3, *tag.RequestSequence)
	require.NotNil(t, tag.AntiPatternType)
	assert.Equal(t, "premature_implementation", *tag.AntiPatternType)
	require.NotNil(t, tag.RequiresAgentResponse)
	assert.False(t, *tag.RequiresAgentResponse)
}

func TestTagFromFields_WrongTypesLeftNil(t *testing.T) {
	fields := map[string]any{
		"is_new_request":   "yes",        // string, not bool
		"request_sequence": float64(1.5), // fractional
		"notes":            float64(7),   // number, not string
	}

	tag := TagFromFields("evt_000001", "human:max", fields)

	assert.Nil(t, tag.IsNewRequest)
	assert.Nil(t, tag.RequestSequence)
	assert.Nil(t, tag.Notes)
}

func TestTagFromFields_UnknownKeysIgnored(t *testing.T) {
	fields := map[string]any{
		"is_followup":  true,
		"extra_field":  "whatever",
		"another_blob": map[string]any{"x": 1},
	}

	tag := TagFromFields("evt_000002", "llm:codex", fields)

	require.NotNil(t, tag.IsFollowup)
	assert.True(t, *tag.IsFollowup)
}

func TestEventTainted(t *testing.T) {
	reason := "test data"
	empty := ""
	assert.True(t, Event{ExcludeReason: &reason}.Tainted())
	assert.False(t, Event{ExcludeReason: &empty}.Tainted())
	assert.False(t, Event{}.Tainted())
}
