package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// testStore holds a shared store for all tests in this package.
var testStore *Store

func TestMain(m *testing.M) {
	if os.Getenv("COTAG_TEST_INTEGRATION") == "" {
		fmt.Println("skipping postgres integration tests (set COTAG_TEST_INTEGRATION=1)")
		os.Exit(0)
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "cotag",
			"POSTGRES_PASSWORD": "cotag",
			"POSTGRES_DB":       "cotag",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://cotag:cotag@%s:%s/cotag?sslmode=disable", host, port.Port())
	testStore, err = Open(ctx, dsn, testLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	if err := testStore.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = testStore.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testStore.pool.Exec(context.Background(),
		`TRUNCATE collaboration_tags, import_runs, events CASCADE`)
	require.NoError(t, err)
}

func seedEvent(t *testing.T, eventID string, sourceID *int64, excludeReason *string) {
	t.Helper()
	_, err := testStore.pool.Exec(context.Background(),
		`INSERT INTO events (event_id, source_event_id, user_message, timestamp, session_id, routed_instructions, exclude_reason)
		 VALUES ($1, $2, 'hello', '2026-03-01T10:00:00Z', 'session_1', '["go-style"]', $3)`,
		eventID, sourceID, excludeReason)
	require.NoError(t, err)
}

func srcp(id int64) *int64  { return &id }
func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestHasTagSchema(t *testing.T) {
	ok, err := testStore.HasTagSchema(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveEvents(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedEvent(t, "row-1", srcp(42), nil)
	seedEvent(t, "opaque-1", nil, nil)

	ref, err := testStore.GetEventBySourceID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "row-1", ref.EventID)

	ref, err = testStore.GetEventByID(ctx, "opaque-1")
	require.NoError(t, err)
	assert.Nil(t, ref.SourceEventID)

	_, err = testStore.GetEventBySourceID(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriteTag_VersionsAreMonotonic(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedEvent(t, "row-1", srcp(1), nil)

	for want := 1; want <= 3; want++ {
		got, err := testStore.WriteTag(ctx, model.Tag{
			EventID:  "row-1",
			TaggerID: "llm:codex",
			Notes:    strp(fmt.Sprintf("pass %d", want)),
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	history, err := testStore.TagHistory(ctx, "row-1", "llm:codex")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "pass 1", *history[0].Notes)
	assert.Equal(t, "pass 3", *history[2].Notes)
}

func TestWriteTag_ConcurrentWritersGetDistinctVersions(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedEvent(t, "row-1", srcp(1), nil)

	const writers = 8
	versions := make([]int, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			versions[i], errs[i] = testStore.WriteTag(ctx, model.Tag{
				EventID:  "row-1",
				TaggerID: "llm:codex",
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[versions[i]], "version %d assigned twice", versions[i])
		seen[versions[i]] = true
	}
	// The versions must be exactly 1..writers with no gaps.
	for v := 1; v <= writers; v++ {
		assert.True(t, seen[v], "version %d missing", v)
	}
}

func TestListEvents_Filters(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedEvent(t, "row-1", srcp(1), nil)
	seedEvent(t, "row-2", srcp(2), strp("pii"))
	seedEvent(t, "row-3", srcp(3), nil)

	events, err := testStore.ListEvents(ctx, storage.ExportFilter{ExcludeTainted: true})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "row-1", events[0].EventID)
	assert.Equal(t, []string{"go-style"}, events[0].RoutedInstructions)

	_, err = testStore.WriteTag(ctx, model.Tag{EventID: "row-1", TaggerID: "llm:codex"})
	require.NoError(t, err)

	events, err = testStore.ListEvents(ctx, storage.ExportFilter{UntaggedOnly: true})
	require.NoError(t, err)
	for _, e := range events {
		assert.NotEqual(t, "row-1", e.EventID)
	}
}

func TestMetrics_OnlyLatestVersionCounts(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedEvent(t, "row-1", srcp(1), nil)

	_, err := testStore.WriteTag(ctx, model.Tag{
		EventID: "row-1", TaggerID: "llm:codex",
		AntiPatternDetected: boolp(true),
		AntiPatternType:     strp("over-engineering"),
	})
	require.NoError(t, err)
	_, err = testStore.WriteTag(ctx, model.Tag{
		EventID: "row-1", TaggerID: "llm:codex",
		AntiPatternDetected: boolp(false),
	})
	require.NoError(t, err)

	antis, err := testStore.AntiPatternBreakdown(ctx)
	require.NoError(t, err)
	assert.Empty(t, antis)

	sum, err := testStore.MetricsSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.TaggedEvents)
}
