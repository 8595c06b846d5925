package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/environment"
)

func mcpTestServer(t *testing.T, handler http.HandlerFunc) *mcpServer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.History.Enabled = false
	cfg.Environments = config.Environments{
		Default: "bte",
		Apps: []config.App{{
			Name:         "bte",
			DefaultLevel: "ci",
			Levels: []config.Level{
				{Name: "ci", URL: srv.URL},
				{Name: "local", URL: "http://127.0.0.1:1"},
			},
		}},
	}

	query := "endpoint: /query\nbody:\n  message: {}\ntests:\n  - status: 200\n  - result_count\n"
	path := filepath.Join(cfg.QueriesDir, "routine", "sync", "general.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(query), 0644))

	return newMCPServer(cfg)
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func TestMCP_ListEnvironments(t *testing.T) {
	m := mcpTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	res, err := m.handleListEnvironments(context.Background(), toolRequest("list_environments", nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var entries []environment.Entry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &entries))
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	assert.Contains(t, keys, "bte.ci")
	assert.Contains(t, keys, "bte")
}

func TestMCP_Ping(t *testing.T) {
	m := mcpTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res, err := m.handlePing(context.Background(), toolRequest("ping", map[string]any{}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, `"responsive": true`)
	assert.NotContains(t, text, "127.0.0.1:1", "local instances are not probed")

	res, err = m.handlePing(context.Background(), toolRequest("ping", map[string]any{"app": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCP_RunQuery(t *testing.T) {
	m := mcpTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"description": "1 results", "message": {"results": [{}]}}`))
	})

	res, err := m.handleRunQuery(context.Background(), toolRequest("run_query", map[string]any{
		"path":        "routine/sync/general",
		"environment": "bte.ci",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
	assert.Equal(t, float64(1), report["total_queries"])
	assert.Equal(t, float64(1), report["passed_queries"])
}

func TestMCP_RunQueryErrors(t *testing.T) {
	m := mcpTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing path", args: map[string]any{}},
		{name: "unknown environment", args: map[string]any{"path": "routine", "environment": "bte.nope"}},
		{name: "unknown query", args: map[string]any{"path": "missing", "environment": "bte.ci"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.handleRunQuery(context.Background(), toolRequest("run_query", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}
