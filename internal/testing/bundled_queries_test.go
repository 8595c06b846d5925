package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	querysuite "github.com/biothings/trapi-testing-tools/queries"
)

func TestBundledQueries_LoadAll(t *testing.T) {
	root := filepath.Join(t.TempDir(), "queries")
	_, err := querysuite.Seed(root)
	require.NoError(t, err)

	loaded, err := NewQueryLoader(root, nil, nil).Load(RoutineDir + "/**")
	require.NoError(t, err)

	names := make([]string, 0, len(loaded))
	for _, q := range loaded {
		names = append(names, q.Name)
	}
	assert.Equal(t, []string{
		"routine/async/bad-api",
		"routine/feature/loglevel/sync",
		"routine/feature/pathfinder-constrained/pftq4-slc6a20-covid19",
		"routine/feature/source-record-urls",
		"routine/sync/general",
	}, names)
}

func TestBundledQueries_RunSyncAndAsync(t *testing.T) {
	root := filepath.Join(t.TempDir(), "queries")
	_, err := querysuite.Seed(root)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{
  "description": "Query processed successfully, retrieved 2 results.",
  "message": {
    "knowledge_graph": {"nodes": {"n0": {}, "n1": {}}, "edges": {"e0": {}}},
    "results": [{}, {}]
  },
  "logs": [{"level": "INFO", "message": "Sub-querying 3 APIs"}]
}`))
	})
	mux.HandleFunc("/smartapi/lalala/asyncquery", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "Accepted", "job_id": "job-1"}`))
	})
	mux.HandleFunc("/asyncquery_status/job-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "Failed", "logs": [{"level": "WARNING", "message": "smartapi id lalala not found"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	framework := NewTestFramework(FrameworkOptions{
		Mode:         ExecutionModeMCPServer,
		QueriesDir:   root,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  2 * time.Second,
	})

	selected, err := framework.Loader.Load("routine/sync/general", "routine/async/bad-api")
	require.NoError(t, err)
	require.Len(t, selected, 2)

	result, err := framework.Runner.Run(context.Background(), TestConfiguration{Environment: "bte.ci", BaseURL: srv.URL}, selected)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, ResultPassed, r.Result, "%s: %s %v", r.Query.Name, r.Error, r.Report.FailureNames())
	}
	assert.Equal(t, "job-1", result.Results[0].JobID)
	assert.True(t, result.Succeeded())
}
