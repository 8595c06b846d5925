package config

import (
	"path/filepath"
	"time"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
	DefaultProbeTimeout = 10 * time.Second
	DefaultProbePath    = "/asyncquery_status/HopefullyNonExistentHash"
)

// Default returns the configuration used when no config.yaml exists.
// configPath is the directory the config would have been read from; the
// queries directory and history database live beneath it.
func Default(configPath string) Config {
	return Config{
		Environments: Environments{
			Default: "bte",
			Apps: []App{
				{
					Name:         "bte",
					DefaultLevel: "prod",
					Levels: []Level{
						{Name: "prod", URL: "https://bte.transltr.io/v1"},
						{Name: "test", URL: "https://bte.test.transltr.io/v1"},
						{Name: "ci", URL: "https://bte.ci.transltr.io/v1"},
						{Name: "dev", URL: "https://bte.dev.transltr.io/v1"},
						{Name: "local", URL: "http://localhost:3000/v1"},
					},
				},
			},
		},
		QueriesDir: filepath.Join(configPath, "queries"),
		Poll: PollConfig{
			Interval: DefaultPollInterval,
			Timeout:  DefaultPollTimeout,
		},
		Probe: ProbeConfig{
			Timeout: DefaultProbeTimeout,
			Path:    DefaultProbePath,
		},
		Viewer: ViewerConfig{
			JSON: "fx",
			Text: "less",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(configPath, "history.db"),
		},
	}
}
