package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"sigs.k8s.io/yaml"

	"github.com/biothings/trapi-testing-tools/internal/assertion"
	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

// RoutineDir holds the queries selected by tt test --all.
const RoutineDir = "routine"

// queryFile is the on-disk shape of a query definition, after templating
// and YAML to JSON conversion.
type queryFile struct {
	Description string          `json:"description"`
	Method      string          `json:"method"`
	Endpoint    string          `json:"endpoint"`
	Body        json.RawMessage `json:"body"`
	Tests       []any           `json:"tests"`
}

// queryLoader implements the QueryLoader interface
type queryLoader struct {
	root   string
	vars   map[string]any
	logger TestLogger
}

// NewQueryLoader creates a loader rooted at the queries directory. vars are
// exposed to query templates as {{ .Name }}.
func NewQueryLoader(root string, vars map[string]any, logger TestLogger) QueryLoader {
	if logger == nil {
		logger = NewSilentLogger(false, false)
	}
	return &queryLoader{
		root:   root,
		vars:   vars,
		logger: logger,
	}
}

// Root returns the queries directory
func (l *queryLoader) Root() string {
	return l.root
}

// Load resolves each argument and parses the files it selects. An argument
// may be a file or directory path, a query name relative to the root with or
// without extension, a name ending in /** for a whole subtree, or a glob over
// query names.
func (l *queryLoader) Load(args ...string) ([]QueryDefinition, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, arg := range args {
		matched, err := l.resolve(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range matched {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}

	queries := make([]QueryDefinition, 0, len(paths))
	for _, p := range paths {
		q, err := l.loadFile(p)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Name < queries[j].Name
	})

	l.logger.Debug("📋 Loaded %d queries\n", len(queries))
	return queries, nil
}

// ListQueries returns the names of all queries under the root, sorted
func (l *queryLoader) ListQueries() ([]string, error) {
	paths, err := l.walk(l.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, l.nameFor(p))
	}
	sort.Strings(names)
	return names, nil
}

func (l *queryLoader) resolve(arg string) ([]string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("empty query selection")
	}

	if strings.HasSuffix(arg, "/**") {
		arg = strings.TrimSuffix(arg, "/**")
	}

	candidates := []string{arg}
	if !filepath.IsAbs(arg) {
		rooted := filepath.Join(l.root, filepath.FromSlash(arg))
		candidates = append(candidates, rooted, rooted+".yaml", rooted+".yml")
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			continue
		}
		if info.IsDir() {
			paths, err := l.walk(c)
			if err != nil {
				return nil, err
			}
			if len(paths) == 0 {
				return nil, fmt.Errorf("no query files in %s", c)
			}
			return paths, nil
		}
		abs, err := filepath.Abs(c)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	if strings.ContainsAny(arg, "*?[") {
		return l.glob(arg)
	}

	return nil, fmt.Errorf("query %q not found in %s", arg, l.root)
}

func (l *queryLoader) glob(pattern string) ([]string, error) {
	paths, err := l.walk(l.root)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, p := range paths {
		ok, err := filepath.Match(pattern, l.nameFor(p))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no queries match %q", pattern)
	}
	return matched, nil
}

// walk returns every YAML file beneath dir as an absolute path.
func (l *queryLoader) walk(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isYAMLFile(path) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		paths = append(paths, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return paths, nil
}

// nameFor derives the query name: the path relative to the root with
// forward slashes and no extension. Files outside the root use their base
// name.
func (l *queryLoader) nameFor(path string) string {
	name := filepath.Base(path)
	if root, err := filepath.Abs(l.root); err == nil {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			name = rel
		}
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.ToSlash(name)
}

func (l *queryLoader) loadFile(path string) (QueryDefinition, error) {
	l.logger.Debug("📄 Loading query file: %s\n", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return QueryDefinition{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	def, err := l.parse(l.nameFor(path), content)
	if err != nil {
		return QueryDefinition{}, fmt.Errorf("invalid query in %s: %w", path, err)
	}
	def.Path = path
	return def, nil
}

// parse renders, converts and validates one query file.
func (l *queryLoader) parse(name string, content []byte) (QueryDefinition, error) {
	rendered, err := render(name, content, l.vars)
	if err != nil {
		return QueryDefinition{}, err
	}

	data, err := yaml.YAMLToJSON(rendered)
	if err != nil {
		return QueryDefinition{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var file queryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return QueryDefinition{}, fmt.Errorf("failed to decode query: %w", err)
	}

	if file.Endpoint == "" {
		return QueryDefinition{}, fmt.Errorf("endpoint is required")
	}
	if !strings.HasPrefix(file.Endpoint, "/") {
		return QueryDefinition{}, fmt.Errorf("endpoint %q must start with /", file.Endpoint)
	}

	method := strings.ToUpper(strings.TrimSpace(file.Method))
	if method == "" {
		method = "POST"
	}

	var body json.RawMessage
	if len(file.Body) > 0 && !bytes.Equal(file.Body, []byte("null")) {
		body = file.Body
	}

	logLevel := requestedLogLevel(body)
	assertions, err := assertion.ParseAll(file.Tests, logLevel)
	if err != nil {
		return QueryDefinition{}, err
	}

	return QueryDefinition{
		Name:        name,
		Description: file.Description,
		Query: trapi.Query{
			Method:   method,
			Endpoint: file.Endpoint,
			Body:     body,
		},
		Assertions:        assertions,
		RequestedLogLevel: logLevel,
	}, nil
}

func render(name string, content []byte, vars map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}

func requestedLogLevel(body json.RawMessage) string {
	if len(body) == 0 {
		return ""
	}
	var fields struct {
		LogLevel string `json:"log_level"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	return fields.LogLevel
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
