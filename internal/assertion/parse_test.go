package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		entry    any
		wantName string
		wantErr  string
	}{
		{name: "bare name", entry: "node_count", wantName: "node_count"},
		{name: "status from yaml int", entry: map[string]any{"status": 200}, wantName: "status(200)"},
		{name: "status from json number", entry: map[string]any{"status": float64(404)}, wantName: "status(404)"},
		{name: "status from string", entry: map[string]any{"status": "500"}, wantName: "status(500)"},
		{name: "has_path", entry: map[string]any{"has_path": "message.results"}, wantName: "has_path(message.results)"},
		{name: "log_contains", entry: map[string]any{"log_contains": "(?i)sub-querying"}, wantName: "log_contains((?i)sub-querying)"},
		{name: "no_error_logs", entry: "no_error_logs", wantName: "no_error_logs"},
		{name: "bare status", entry: "status", wantErr: "requires an expected code"},
		{name: "fractional status", entry: map[string]any{"status": 200.5}, wantErr: "expected an integer"},
		{name: "unknown", entry: "node_cuont", wantErr: `unknown assertion "node_cuont"`},
		{name: "bad regex", entry: map[string]any{"log_absent": "("}, wantErr: "invalid pattern"},
		{name: "arg on bare assertion", entry: map[string]any{"node_count": 3}, wantErr: "takes no argument"},
		{name: "two keys", entry: map[string]any{"status": 200, "node_count": nil}, wantErr: "exactly one key"},
		{name: "wrong type", entry: 42.0, wantErr: "single-key map"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.entry, "")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, a.Name())
		})
	}
}

func TestParse_RequestedLevelReachesNoDebugLogs(t *testing.T) {
	a, err := Parse("no_debug_logs", "DEBUG")
	require.NoError(t, err)
	assert.Equal(t, NoDebugLogs{RequestedLevel: "DEBUG"}, a)
}

func TestParseAll_ReportsIndex(t *testing.T) {
	_, err := ParseAll([]any{"node_count", map[string]any{"status": 200}, "bogus"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tests[2]")

	list, err := ParseAll([]any{"node_count", "edge_count"}, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
