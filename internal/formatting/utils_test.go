package formatting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{
			name:     "simple object",
			input:    map[string]interface{}{"name": "test", "value": 42},
			expected: "{\n  \"name\": \"test\",\n  \"value\": 42\n}",
		},
		{
			name:     "array",
			input:    []string{"a", "b"},
			expected: "[\n  \"a\",\n  \"b\"\n]",
		},
		{
			name:     "nil",
			input:    nil,
			expected: "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PrettyJSON(tt.input))
		})
	}

	assert.NotEmpty(t, PrettyJSON(make(chan int)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "850ms", Duration(850*time.Millisecond))
	assert.Equal(t, "2.4s", Duration(2400*time.Millisecond))
	assert.Equal(t, "3m12s", Duration(3*time.Minute+12*time.Second+200*time.Millisecond))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

type row struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func sampleTable() Table {
	return Table{
		Headers: []string{"key", "url"},
		Rows: [][]string{
			{"bte.prod", "https://bte.transltr.io/v1"},
			{"bte.ci", "https://bte.ci.transltr.io/v1"},
		},
	}
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatPlain, Writer: &buf}).Format(sampleTable(), nil))
	assert.Equal(t,
		"KEY        URL\n"+
			"bte.prod   https://bte.transltr.io/v1\n"+
			"bte.ci     https://bte.ci.transltr.io/v1\n",
		buf.String())

	buf.Reset()
	require.NoError(t, New(Options{Format: FormatPlain, NoHeaders: true, Writer: &buf}).Format(sampleTable(), nil))
	assert.NotContains(t, buf.String(), "KEY")
}

func TestMachineFormatters(t *testing.T) {
	data := []row{{Key: "bte.prod", URL: "https://bte.transltr.io/v1"}}

	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON, Writer: &buf}).Format(sampleTable(), data))
	assert.JSONEq(t, `[{"key":"bte.prod","url":"https://bte.transltr.io/v1"}]`, buf.String())

	buf.Reset()
	require.NoError(t, New(Options{Format: FormatYAML, Writer: &buf}).Format(sampleTable(), data))
	assert.YAMLEq(t, "- key: bte.prod\n  url: https://bte.transltr.io/v1\n", buf.String())
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	tbl := sampleTable()
	tbl.Footer = "2 environments"
	require.NoError(t, New(Options{Format: FormatTable, Writer: &buf}).Format(tbl, nil))
	assert.Contains(t, buf.String(), "bte.prod")
	assert.Contains(t, buf.String(), "2 environments")

	buf.Reset()
	require.NoError(t, New(Options{Format: FormatTable, Writer: &buf}).Format(Table{Headers: []string{"a"}}, nil))
	assert.Contains(t, buf.String(), "No items found")
}
