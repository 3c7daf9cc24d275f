package export

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

type fakeLister struct {
	events []model.Event
	filter storage.ExportFilter
}

func (f *fakeLister) ListEvents(ctx context.Context, filter storage.ExportFilter) ([]model.Event, error) {
	f.filter = filter
	return f.events, nil
}

func src(id int64) *int64 { return &id }

func TestEvents_WritesJSONL(t *testing.T) {
	lister := &fakeLister{events: []model.Event{
		{
			EventID:            "row-1",
			SourceEventID:      src(1),
			UserMessage:        "add retries to the fetcher",
			Timestamp:          "2026-03-01T10:00:00Z",
			SessionID:          "session_1",
			RoutedInstructions: []string{"go-style", "error-handling"},
		},
		{
			EventID:       "01J8ZC3F9G",
			UserMessage:   "what does the cache key encode",
			Timestamp:     "2026-03-01T10:05:00Z",
			SourceEventID: nil,
		},
	}}

	var buf strings.Builder
	n, err := Events(context.Background(), lister, &buf, storage.ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first Line
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "evt_000001", first.EventID)
	assert.Equal(t, "add retries to the fetcher", first.UserMessage)
	assert.Equal(t, []string{"go-style", "error-handling"}, first.RoutedInstructions)

	// An event without a numeric source key keeps its opaque primary key.
	var second Line
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "01J8ZC3F9G", second.EventID)
}

func TestEvents_PassesFilterThrough(t *testing.T) {
	lister := &fakeLister{}
	min := int64(10)

	var buf strings.Builder
	n, err := Events(context.Background(), lister, &buf, storage.ExportFilter{
		ExcludeTainted: true,
		MinSourceID:    &min,
		Limit:          5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, buf.String())

	assert.True(t, lister.filter.ExcludeTainted)
	require.NotNil(t, lister.filter.MinSourceID)
	assert.Equal(t, int64(10), *lister.filter.MinSourceID)
	assert.Equal(t, 5, lister.filter.Limit)
}
