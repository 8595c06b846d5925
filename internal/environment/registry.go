package environment

import (
	"sort"
	"strings"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// fallbackLevel is used as an application's default level when none is configured.
const fallbackLevel = "prod"

// Entry is one resolvable environment key.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	App   string `json:"app" yaml:"app"`
	Level string `json:"level" yaml:"level"`
	URL   string `json:"url" yaml:"url"`
}

// Registry resolves environment keys to base URLs. It is built once from
// configuration and never modified.
type Registry struct {
	entries    map[string]Entry
	apps       []config.App
	defaultApp string
}

// New flattens the environments table into a Registry.
//
// Keys registered, in order of precedence:
//   - "app.level" for every level of every application
//   - "level" for every level of the default application
//   - "app" for every application with a default level (explicit, or "prod")
func New(envs config.Environments) *Registry {
	r := &Registry{
		entries:    make(map[string]Entry),
		apps:       envs.Apps,
		defaultApp: envs.Default,
	}

	for _, app := range envs.Apps {
		if app.Name == "default" {
			continue
		}
		for _, level := range app.Levels {
			r.register(Entry{Key: app.Name + "." + level.Name, App: app.Name, Level: level.Name, URL: level.URL})
		}
	}

	if app, ok := envs.App(envs.Default); ok {
		for _, level := range app.Levels {
			r.register(Entry{Key: level.Name, App: app.Name, Level: level.Name, URL: level.URL})
		}
	}

	for _, app := range envs.Apps {
		level, ok := defaultLevel(app)
		if !ok {
			logging.Debug("Environments", "Application %s has no default level; bare name will not resolve", app.Name)
			continue
		}
		r.register(Entry{Key: app.Name, App: app.Name, Level: level.Name, URL: level.URL})
	}

	return r
}

func (r *Registry) register(e Entry) {
	if existing, ok := r.entries[e.Key]; ok {
		logging.Debug("Environments", "Key %s already maps to %s, ignoring %s", e.Key, existing.URL, e.URL)
		return
	}
	r.entries[e.Key] = e
}

func defaultLevel(app config.App) (config.Level, bool) {
	if app.DefaultLevel != "" {
		return app.Level(app.DefaultLevel)
	}
	return app.Level(fallbackLevel)
}

// Resolve returns the base URL for key.
func (r *Registry) Resolve(key string) (string, error) {
	entry, err := r.Lookup(key)
	if err != nil {
		return "", err
	}
	return entry.URL, nil
}

// Lookup returns the full entry for key.
func (r *Registry) Lookup(key string) (Entry, error) {
	entry, ok := r.entries[key]
	if !ok {
		return Entry{}, &UnknownEnvironmentError{Key: key, Valid: r.Keys()}
	}
	return entry, nil
}

// Keys returns every resolvable key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// QualifiedKeys returns only "app.level" keys, sorted.
func (r *Registry) QualifiedKeys() []string {
	var keys []string
	for _, key := range r.Keys() {
		if strings.Contains(key, ".") {
			keys = append(keys, key)
		}
	}
	return keys
}

// Entries returns every entry ordered by key.
func (r *Registry) Entries() []Entry {
	keys := r.Keys()
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.entries[key])
	}
	return out
}

// Apps returns the configured applications in configuration order.
func (r *Registry) Apps() []config.App {
	return r.apps
}

// App returns one application by name.
func (r *Registry) App(name string) (config.App, bool) {
	for _, app := range r.apps {
		if app.Name == name {
			return app, true
		}
	}
	return config.App{}, false
}

// AppNames lists applications in configuration order.
func (r *Registry) AppNames() []string {
	names := make([]string, 0, len(r.apps))
	for _, app := range r.apps {
		names = append(names, app.Name)
	}
	return names
}

// DefaultApp returns the name of the globally designated application.
func (r *Registry) DefaultApp() string {
	return r.defaultApp
}
