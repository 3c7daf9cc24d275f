package batch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Valid(t *testing.T) {
	line := []byte(`{"event_id": "evt_000042", "tags": {"is_new_request": true, "request_sequence": 1}}`)

	c, err := ParseLine(line, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Line)
	assert.Equal(t, "evt_000042", c.EventID)
	assert.Equal(t, true, c.Tags["is_new_request"])
	assert.Equal(t, float64(1), c.Tags["request_sequence"])
}

func TestParseLine_InvalidJSON(t *testing.T) {
	_, err := ParseLine([]byte(`{"event_id": "evt_000001", "tags":`), 3)
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.Contains(t, perr.Error(), "line 3")
	assert.NotErrorIs(t, err, ErrMissingEventID)
	assert.NotErrorIs(t, err, ErrMissingTags)
}

func TestParseLine_MissingEventID(t *testing.T) {
	_, err := ParseLine([]byte(`{"tags": {"is_new_request": true}}`), 1)
	require.ErrorIs(t, err, ErrMissingEventID)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestParseLine_MissingTags(t *testing.T) {
	_, err := ParseLine([]byte(`{"event_id": "evt_000001"}`), 2)
	require.ErrorIs(t, err, ErrMissingTags)
}

func TestParseLine_NullTags(t *testing.T) {
	_, err := ParseLine([]byte(`{"event_id": "evt_000001", "tags": null}`), 2)
	require.ErrorIs(t, err, ErrMissingTags)
}

func TestParseLine_NonObjectTags(t *testing.T) {
	_, err := ParseLine([]byte(`{"event_id": "evt_000001", "tags": [1, 2]}`), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tags" must be an object`)
}

func TestParseLine_NonStringEventID(t *testing.T) {
	_, err := ParseLine([]byte(`{"event_id": 42, "tags": {}}`), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"event_id" must be a string`)
}

func TestParseLine_EmptyLine(t *testing.T) {
	_, err := ParseLine([]byte(``), 9)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 9, perr.Line)
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ParseError{Line: 1, Err: inner}
	assert.ErrorIs(t, err, inner)
}
