package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, Default(tempDir), cfg)
	assert.Equal(t, "bte", cfg.Environments.Default)
	assert.Equal(t, filepath.Join(tempDir, "queries"), cfg.QueriesDir)
}

func TestLoadConfig_Override(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
environments:
  default: arax
  bte:
    prod: https://bte.example.org/v1
    local: http://localhost:3000/v1
  arax:
    default: test
    test: https://arax.test.example.org
    prod: https://arax.example.org
queries_dir: /srv/queries
poll:
  interval: 2s
  timeout: 1m
`)

	cfg, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "arax", cfg.Environments.Default)
	require.Len(t, cfg.Environments.Apps, 2)
	assert.Equal(t, "bte", cfg.Environments.Apps[0].Name)
	assert.Equal(t, "arax", cfg.Environments.Apps[1].Name)
	assert.Equal(t, "test", cfg.Environments.Apps[1].DefaultLevel)
	assert.Equal(t, []Level{
		{Name: "test", URL: "https://arax.test.example.org"},
		{Name: "prod", URL: "https://arax.example.org"},
	}, cfg.Environments.Apps[1].Levels)

	assert.Equal(t, "/srv/queries", cfg.QueriesDir)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, time.Minute, cfg.Poll.Timeout)
	// Untouched sections keep their defaults
	assert.Equal(t, DefaultProbeTimeout, cfg.Probe.Timeout)
	assert.Equal(t, "fx", cfg.Viewer.JSON)
}

func TestLoadConfig_Malformed(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "environments: [not, a, mapping]\n")

	_, err := LoadConfig(tempDir)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "parse", cfgErr.ErrorType)
}

func TestLoadConfig_InvalidURL(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
environments:
  bte:
    prod: not a url
`)

	_, err := LoadConfig(tempDir)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "validation", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.Field, "URL")
	assert.Equal(t, filepath.Join(tempDir, configFileName), cfgErr.FilePath)
}

func TestLoadConfig_UnknownDefaultApp(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
environments:
  default: nope
  bte:
    prod: https://bte.example.org/v1
`)

	_, err := LoadConfig(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default application "nope" is not defined`)
}

func TestLoadConfig_UnknownDefaultLevel(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
environments:
  bte:
    default: staging
    prod: https://bte.example.org/v1
`)

	_, err := LoadConfig(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default level "staging" is not defined`)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "queries_dir: ~/tt-queries\n")

	cfg, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tt-queries"), cfg.QueriesDir)
}

func TestEnvironments_MarshalRoundTrip(t *testing.T) {
	envs := Default(t.TempDir()).Environments

	data, err := yaml.Marshal(envs)
	require.NoError(t, err)

	var decoded Environments
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, envs, decoded)
}

func TestLoadEnvFile(t *testing.T) {
	tempDir := t.TempDir()

	// Missing file is fine
	assert.NoError(t, LoadEnvFile(filepath.Join(tempDir, ".env")))

	path := filepath.Join(tempDir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TT_TEST_TOKEN=abc123\n"), 0600))
	t.Setenv("TT_TEST_TOKEN", "")
	require.NoError(t, os.Unsetenv("TT_TEST_TOKEN"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "abc123", os.Getenv("TT_TEST_TOKEN"))
}
