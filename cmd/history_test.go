package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biothings/trapi-testing-tools/internal/formatting"
	"github.com/biothings/trapi-testing-tools/internal/history"
)

func seededStore(t *testing.T) *history.SQLiteStore {
	t.Helper()
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	runs := []*history.Run{
		{
			ID: "aaaaaaaa-1111-4000-8000-000000000001", StartedAt: started, Duration: 2 * time.Second,
			Environment: "bte.ci", BaseURL: "https://bte.ci.transltr.io/v1", Passed: 1, Failed: 1,
			Queries: []history.QueryRecord{
				{Name: "routine/sync/general", Result: "PASSED", StatusCode: 200, LatencyMs: 150},
				{Name: "routine/async/general", Result: "FAILED", StatusCode: 200, LatencyMs: 4000, FailedAssertions: []string{"result_count"}},
			},
		},
		{
			ID: "bbbbbbbb-2222-4000-8000-000000000002", StartedAt: started.Add(time.Hour), Duration: time.Second,
			Environment: "bte.prod", BaseURL: "https://bte.transltr.io/v1", Errored: 1,
			Queries: []history.QueryRecord{
				{Name: "routine/sync/general", Result: "ERROR", Error: "Network error reaching https://bte.transltr.io/v1/query"},
			},
		},
	}
	for _, r := range runs {
		require.NoError(t, store.RecordRun(context.Background(), r))
	}
	return store
}

func TestListRuns(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, listRuns(context.Background(), &buf, store, history.ListFilter{}, formatting.FormatPlain))
	out := buf.String()
	assert.Contains(t, out, "bbbbbbbb")
	assert.Contains(t, out, "aaaaaaaa")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("bbbbbbbb")), bytes.Index(buf.Bytes(), []byte("aaaaaaaa")), "newest first")

	buf.Reset()
	require.NoError(t, listRuns(context.Background(), &buf, store, history.ListFilter{Environment: "bte.ci"}, formatting.FormatPlain))
	assert.NotContains(t, buf.String(), "bbbbbbbb")
}

func TestShowRun(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, showRun(context.Background(), &buf, store, "aaaa", formatting.FormatTable))
	out := buf.String()
	assert.Contains(t, out, "routine/async/general")
	assert.Contains(t, out, "failed: result_count")
	assert.Contains(t, out, "1 passed, 1 failed, 0 errors")

	err := showRun(context.Background(), &buf, store, "cccc", formatting.FormatTable)
	assert.True(t, errors.Is(err, history.ErrNotFound))
}
