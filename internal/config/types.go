package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of config.yaml.
type Config struct {
	// Environments maps applications to their deployment levels.
	Environments Environments `yaml:"environments"`
	// QueriesDir is the directory holding query definition files.
	QueriesDir string `yaml:"queries_dir" validate:"required"`
	// Poll controls async job polling.
	Poll PollConfig `yaml:"poll"`
	// Probe controls the liveness probe used by `tt ping`.
	Probe ProbeConfig `yaml:"probe"`
	// Viewer names the pager commands used to view response bodies.
	Viewer ViewerConfig `yaml:"viewer"`
	// Auth holds optional per-application credentials, keyed by app name.
	Auth map[string]AuthConfig `yaml:"auth,omitempty" validate:"dive"`
	// History controls the local run history database.
	History HistoryConfig `yaml:"history"`
}

// PollConfig controls the cadence and budget of async status polling.
type PollConfig struct {
	Interval time.Duration `yaml:"interval" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" validate:"required"`
}

// ProbeConfig controls the health probe.
type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout" validate:"required"`
	Path    string        `yaml:"path" validate:"required,startswith=/"`
	// Concurrency caps in-flight probes. Zero means one goroutine per instance.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`
}

// ViewerConfig names external pagers.
type ViewerConfig struct {
	JSON string `yaml:"json"`
	Text string `yaml:"text"`
}

// AuthConfig describes how to authenticate against one application.
type AuthConfig struct {
	// TokenEnv is the name of an environment variable holding a bearer token.
	TokenEnv string `yaml:"token_env" validate:"required"`
}

// HistoryConfig controls run persistence.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// Environments is the two-level application -> level -> URL table.
//
// The YAML form is a mapping whose "default" key names the default
// application and whose other keys are applications. Inside an application
// a "default" key names that application's default level. Order is kept so
// listings and probes follow the file.
type Environments struct {
	Default string
	Apps    []App `validate:"dive"`
}

// App is one application and its deployment levels.
type App struct {
	Name         string  `validate:"required"`
	DefaultLevel string
	Levels       []Level `validate:"dive"`
}

// Level is one deployment of an application.
type Level struct {
	Name string `validate:"required"`
	URL  string `validate:"required,url"`
}

// App returns the named application.
func (e Environments) App(name string) (App, bool) {
	for _, app := range e.Apps {
		if app.Name == name {
			return app, true
		}
	}
	return App{}, false
}

// Level returns the named level of an application.
func (a App) Level(name string) (Level, bool) {
	for _, level := range a.Levels {
		if level.Name == name {
			return level, true
		}
	}
	return Level{}, false
}

// UnmarshalYAML decodes the environments mapping while keeping key order.
func (e *Environments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: environments must be a mapping", node.Line)
	}

	parsed := Environments{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if key.Value == "default" {
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: environments.default must name an application", value.Line)
			}
			parsed.Default = value.Value
			continue
		}

		app, err := decodeApp(key.Value, value)
		if err != nil {
			return err
		}
		parsed.Apps = append(parsed.Apps, app)
	}

	*e = parsed
	return nil
}

// MarshalYAML writes the environments back out in the same shape they are read.
func (e Environments) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	if e.Default != "" {
		root.Content = append(root.Content, scalar("default"), scalar(e.Default))
	}
	for _, app := range e.Apps {
		levels := &yaml.Node{Kind: yaml.MappingNode}
		if app.DefaultLevel != "" {
			levels.Content = append(levels.Content, scalar("default"), scalar(app.DefaultLevel))
		}
		for _, level := range app.Levels {
			levels.Content = append(levels.Content, scalar(level.Name), scalar(level.URL))
		}
		root.Content = append(root.Content, scalar(app.Name), levels)
	}
	return root, nil
}

func decodeApp(name string, node *yaml.Node) (App, error) {
	if node.Kind != yaml.MappingNode {
		return App{}, fmt.Errorf("line %d: application %q must map levels to URLs", node.Line, name)
	}

	app := App{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return App{}, fmt.Errorf("line %d: %s.%s must be a URL string", value.Line, name, key.Value)
		}
		if key.Value == "default" {
			app.DefaultLevel = value.Value
			continue
		}
		app.Levels = append(app.Levels, Level{Name: key.Value, URL: value.Value})
	}
	return app, nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
