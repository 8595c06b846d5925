package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfirm(t *testing.T) {
	tests := []struct {
		answer string
		def    bool
		want   bool
		valid  bool
	}{
		{"", true, true, true},
		{"", false, false, true},
		{"y", false, true, true},
		{"YES", false, true, true},
		{"n", true, false, true},
		{" no ", true, false, true},
		{"maybe", true, false, false},
	}
	for _, tt := range tests {
		got, valid := parseConfirm(tt.answer, tt.def)
		assert.Equal(t, tt.valid, valid, tt.answer)
		assert.Equal(t, tt.want, got, tt.answer)
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"bte.prod", "bte.test", "retriever.prod"}

	got, err := matchOption("2", options)
	require.NoError(t, err)
	assert.Equal(t, "bte.test", got)

	got, err = matchOption("retriever.prod", options)
	require.NoError(t, err)
	assert.Equal(t, "retriever.prod", got)

	got, err = matchOption("retr", options)
	require.NoError(t, err)
	assert.Equal(t, "retriever.prod", got)

	_, err = matchOption("prod", options)
	assert.ErrorContains(t, err, "matches 2 options")

	_, err = matchOption("4", options)
	assert.ErrorContains(t, err, "between 1 and 3")

	_, err = matchOption("ci", options)
	assert.ErrorContains(t, err, "no option matches")
}

func TestParseSelection(t *testing.T) {
	options := []string{"routine/sync/a", "routine/async/b", "feature/c"}

	got, err := parseSelection("1, feature/c, 1", options)
	require.NoError(t, err)
	assert.Equal(t, []string{"routine/sync/a", "feature/c"}, got)

	got, err = parseSelection("all", options)
	require.NoError(t, err)
	assert.Equal(t, options, got)

	_, err = parseSelection(" , ", options)
	assert.ErrorContains(t, err, "at least one")
}

func TestPathCompleter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "responses"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte(""), 0o644))

	c := PathCompleter{Root: root}

	line := []rune("re")
	got, offset := c.Do(line, len(line))
	assert.Equal(t, 2, offset)
	assert.Equal(t, [][]rune{[]rune("port.json"), []rune("sponses" + string(filepath.Separator))}, got)

	line = []rune("")
	got, _ = c.Do(line, 0)
	assert.Len(t, got, 2)

	line = []rune("missing/x")
	got, offset = c.Do(line, len(line))
	assert.Nil(t, got)
	assert.Equal(t, 0, offset)
}
