package importer_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongogo/cotag/internal/importer"
	"github.com/pongogo/cotag/internal/match"
	"github.com/pongogo/cotag/internal/metrics"
	"github.com/pongogo/cotag/internal/storage/postgres"
	"github.com/pongogo/cotag/internal/testutil"
)

// testStore holds a migrated postgres store shared by the tests below.
var testStore *postgres.Store

func TestMain(m *testing.M) {
	// The unit tests in this package must run even without Docker, so the
	// container is optional; TestRoundTrip skips when it is absent.
	if os.Getenv("COTAG_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	tc := testutil.MustStartPostgres()
	defer tc.Terminate()

	var err error
	testStore, err = tc.NewTestStore(context.Background(), testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test store: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// TestRoundTrip imports a small batch end to end and checks both the tag
// history and the metrics derived from it.
func TestRoundTrip(t *testing.T) {
	if testStore == nil {
		t.Skip("set COTAG_TEST_INTEGRATION=1 to run against a postgres container")
	}
	ctx := context.Background()
	seedEvents(t, 3)

	batch := strings.Join([]string{
		record(1, `"is_new_request": true, "is_followup": false, "is_correction": false, "request_type": "query", "expected_outcome": "x", "session_id": "session_1", "request_sequence": 1`),
		record(2, `"is_new_request": false, "is_followup": true, "is_correction": false, "request_type": "action", "expected_outcome": "x", "session_id": "session_1", "request_sequence": 2`),
		record(3, `"is_new_request": false, "is_followup": true, "is_correction": true, "request_type": "action", "expected_outcome": "x", "session_id": "session_1", "request_sequence": 3`),
	}, "\n")

	imp := importer.New(testStore, match.PrefixedNumeric{Source: testStore}, slog.New(slog.DiscardHandler))
	report, err := imp.Run(ctx, strings.NewReader(batch), importer.Options{
		TaggerID: "llm:codex",
		Source:   "roundtrip.jsonl",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)

	history, err := testStore.TagHistory(ctx, eventKey(t, 2), "llm:codex")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, true, *history[0].IsFollowup)
	assert.Equal(t, "session_1", *history[0].TaggedSessionID)

	var out strings.Builder
	require.NoError(t, metrics.Render(ctx, testStore, &out, "iteration-rate"))
	assert.Contains(t, out.String(), "session_1")
	assert.Contains(t, out.String(), "3.00")
}

func seedEvents(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		_, err := testStore.Pool().Exec(ctx,
			`INSERT INTO events (event_id, source_event_id, user_message, timestamp, session_id, routed_instructions)
			 VALUES ($1, $2, 'hello', '2026-03-01T10:00:00Z', 'session_1', '[]')
			 ON CONFLICT (event_id) DO NOTHING`,
			fmt.Sprintf("e2e-row-%d", i), i)
		require.NoError(t, err)
	}
}

func record(sourceID int, tags string) string {
	return fmt.Sprintf(`{"event_id": "%s", "tags": {%s}}`, match.FormatPrefixed(int64(sourceID)), tags)
}

func eventKey(t *testing.T, sourceID int64) string {
	t.Helper()
	ref, err := testStore.GetEventBySourceID(context.Background(), sourceID)
	require.NoError(t, err)
	return ref.EventID
}
