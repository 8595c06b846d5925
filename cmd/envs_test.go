package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biothings/trapi-testing-tools/internal/formatting"
)

func TestRenderEnvironments_Plain(t *testing.T) {
	var buf bytes.Buffer
	err := renderEnvironments(&buf, formatting.Options{Format: formatting.FormatPlain}, testRegistry())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))

	var keys []string
	for _, line := range lines[1:] {
		keys = append(keys, strings.Fields(line)[0])
	}
	assert.Equal(t, []string{"bte", "bte.ci", "bte.prod", "ci", "prod"}, keys)
}

func TestRenderEnvironments_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	err := renderEnvironments(&buf, formatting.Options{Format: formatting.FormatPlain, NoHeaders: true}, testRegistry())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "KEY")
}
