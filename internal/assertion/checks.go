package assertion

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

const (
	nodesPath   = "message.knowledge_graph.nodes"
	edgesPath   = "message.knowledge_graph.edges"
	resultsPath = "message.results"
)

var (
	declaredCountPattern = regexp.MustCompile(`(?i)(\d+)\s+results?\b`)

	// missingIDPattern matches log messages reporting an identifier that
	// could not be found or resolved.
	missingIDPattern = regexp.MustCompile(`(?i)(\bids?\b|identifiers?|curies?|smartapi)[^.]*\b(not found|missing|could not be (found|resolved)|unrecognized|unknown|invalid)\b|\b(no|missing|unknown|invalid|unrecognized)\b[^.]*\b(ids?|identifiers?|curies?)\b`)
)

// StatusCode checks the HTTP status code for an exact match.
type StatusCode struct {
	Expected int
}

func (a StatusCode) Name() string { return fmt.Sprintf("status(%d)", a.Expected) }

func (a StatusCode) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	if resp == nil {
		return failf("", "no response")
	}
	actual := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != a.Expected {
		return failf(actual, "expected status %d, got %d", a.Expected, resp.StatusCode)
	}
	return pass(actual)
}

// NodeCount checks that the knowledge graph has a node collection.
type NodeCount struct{}

func (NodeCount) Name() string { return "node_count" }

func (NodeCount) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	return checkCollection(resp, nodesPath, "nodes")
}

// EdgeCount checks that the knowledge graph has an edge collection.
type EdgeCount struct{}

func (EdgeCount) Name() string { return "edge_count" }

func (EdgeCount) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	return checkCollection(resp, edgesPath, "edges")
}

func checkCollection(resp *trapi.Response, path, noun string) Result {
	if !resp.Structured() {
		return failf("", "response body is not JSON")
	}
	v, err := walkPath(resp.JSON, path)
	if err != nil {
		return failf("", "%s: %v", path, err)
	}
	n, ok := collectionSize(v)
	if !ok {
		return failf(describeType(v), "%s is %s, expected object or array", path, describeType(v))
	}
	return passf(strconv.Itoa(n), "%d %s", n, noun)
}

// SourceRecordURLs checks that every edge's first source lists at least one
// record URL and that all of them are well-formed.
type SourceRecordURLs struct{}

func (SourceRecordURLs) Name() string { return "source_record_urls" }

func (SourceRecordURLs) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	if !resp.Structured() {
		return failf("", "response body is not JSON")
	}
	v, err := walkPath(resp.JSON, edgesPath)
	if err != nil {
		return failf("", "%s: %v", edgesPath, err)
	}

	edges, err := edgeList(v)
	if err != nil {
		return failf(describeType(v), "%v", err)
	}

	for _, e := range edges {
		if msg := checkEdgeSource(e.value); msg != "" {
			return failf(strconv.Itoa(len(edges)), "edge %s: %s", e.id, msg)
		}
	}
	return passf(strconv.Itoa(len(edges)), "%d edges checked", len(edges))
}

type namedEdge struct {
	id    string
	value any
}

// edgeList returns edges in a stable order: sorted by id for objects,
// positional for arrays.
func edgeList(v any) ([]namedEdge, error) {
	switch c := v.(type) {
	case map[string]any:
		ids := make([]string, 0, len(c))
		for id := range c {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		edges := make([]namedEdge, 0, len(ids))
		for _, id := range ids {
			edges = append(edges, namedEdge{id: id, value: c[id]})
		}
		return edges, nil
	case []any:
		edges := make([]namedEdge, 0, len(c))
		for i, e := range c {
			edges = append(edges, namedEdge{id: "#" + strconv.Itoa(i), value: e})
		}
		return edges, nil
	default:
		return nil, fmt.Errorf("%s is %s, expected object or array", edgesPath, describeType(v))
	}
}

func checkEdgeSource(edge any) string {
	obj, ok := edge.(map[string]any)
	if !ok {
		return "edge is not an object"
	}
	sources, ok := obj["sources"].([]any)
	if !ok || len(sources) == 0 {
		return "no sources listed"
	}
	first, ok := sources[0].(map[string]any)
	if !ok {
		return "sources[0] is not an object"
	}

	var urls []any
	switch raw := first["source_record_urls"].(type) {
	case nil:
		return "sources[0].source_record_urls missing"
	case string:
		urls = []any{raw}
	case []any:
		urls = raw
	default:
		return fmt.Sprintf("sources[0].source_record_urls is %s", describeType(raw))
	}
	if len(urls) == 0 {
		return "sources[0].source_record_urls is empty"
	}
	for _, u := range urls {
		s, ok := u.(string)
		if !ok {
			return fmt.Sprintf("source record URL is %s, expected string", describeType(u))
		}
		if !wellFormedURL(s) {
			return fmt.Sprintf("malformed source record URL %q", s)
		}
	}
	return ""
}

func wellFormedURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HasPath checks that a path exists in the response body.
type HasPath struct {
	Path string
}

func (a HasPath) Name() string { return fmt.Sprintf("has_path(%s)", a.Path) }

func (a HasPath) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	if !resp.Structured() {
		return failf("", "response body is not JSON")
	}
	v, err := walkPath(resp.JSON, a.Path)
	if err != nil {
		return failf("", "%v", err)
	}
	return pass(describeType(v))
}

// ResultCount checks that the results list has as many entries as the
// response description declares.
type ResultCount struct{}

func (ResultCount) Name() string { return "result_count" }

func (ResultCount) Check(resp *trapi.Response, _ []trapi.LogEntry) Result {
	if !resp.Structured() {
		return failf("", "response body is not JSON")
	}
	v, err := walkPath(resp.JSON, resultsPath)
	if err != nil {
		return failf("", "%s: %v", resultsPath, err)
	}
	results, ok := v.([]any)
	if !ok {
		return failf(describeType(v), "%s is %s, expected array", resultsPath, describeType(v))
	}
	actual := strconv.Itoa(len(results))

	declared, ok := declaredResultCount(resp.JSON)
	if !ok {
		return failf(actual, "response description does not declare a result count")
	}
	if declared != len(results) {
		return failf(actual, "description declares %d results, found %d", declared, len(results))
	}
	return passf(actual, "%d results", declared)
}

func declaredResultCount(body any) (int, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return 0, false
	}
	desc, ok := obj["description"].(string)
	if !ok {
		return 0, false
	}
	m := declaredCountPattern.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NoLogsAtLevel checks that no log entry has the given level.
type NoLogsAtLevel struct {
	Label string
	Level string
}

func (a NoLogsAtLevel) Name() string { return a.Label }

func (a NoLogsAtLevel) Check(_ *trapi.Response, logs []trapi.LogEntry) Result {
	want := normalizeLevel(a.Level)
	var hits []trapi.LogEntry
	for _, entry := range logs {
		if normalizeLevel(entry.Level) == want {
			hits = append(hits, entry)
		}
	}
	if len(hits) > 0 {
		return failf(strconv.Itoa(len(hits)), "%d %s log entries, first: %s", len(hits), want, truncate(hits[0].Message, 120))
	}
	return pass("0")
}

// NoDebugLogs checks that DEBUG entries only appear when DEBUG was requested.
type NoDebugLogs struct {
	// RequestedLevel is the log_level sent in the query body, if any.
	RequestedLevel string
}

func (NoDebugLogs) Name() string { return "no_debug_logs" }

func (a NoDebugLogs) Check(resp *trapi.Response, logs []trapi.LogEntry) Result {
	if normalizeLevel(a.RequestedLevel) == "DEBUG" {
		return passf("", "DEBUG logs were requested")
	}
	return NoLogsAtLevel{Label: "no_debug_logs", Level: "DEBUG"}.Check(resp, logs)
}

// MissingIDLog checks for a warning that an identifier could not be resolved.
type MissingIDLog struct{}

func (MissingIDLog) Name() string { return "missing_id_log" }

func (MissingIDLog) Check(_ *trapi.Response, logs []trapi.LogEntry) Result {
	for _, entry := range logs {
		if levelRank(entry.Level) >= levelRank("WARNING") && missingIDPattern.MatchString(entry.Message) {
			return passf(entry.Level, "%s", truncate(entry.Message, 120))
		}
	}
	return failf(strconv.Itoa(len(logs)), "no WARNING or ERROR entry reports a missing identifier")
}

// LogMatch checks for the presence or absence of a message pattern.
type LogMatch struct {
	Pattern *regexp.Regexp
	// Present selects log_contains (true) or log_absent (false).
	Present bool
}

func (a LogMatch) Name() string {
	if a.Present {
		return fmt.Sprintf("log_contains(%s)", a.Pattern)
	}
	return fmt.Sprintf("log_absent(%s)", a.Pattern)
}

func (a LogMatch) Check(_ *trapi.Response, logs []trapi.LogEntry) Result {
	for _, entry := range logs {
		if a.Pattern.MatchString(entry.Message) {
			if a.Present {
				return passf(entry.Level, "%s", truncate(entry.Message, 120))
			}
			return failf(entry.Level, "unexpected log entry: %s", truncate(entry.Message, 120))
		}
	}
	if a.Present {
		return failf(strconv.Itoa(len(logs)), "no log entry matches %s", a.Pattern)
	}
	return pass(strconv.Itoa(len(logs)))
}

func normalizeLevel(level string) string {
	l := strings.ToUpper(strings.TrimSpace(level))
	if l == "WARN" {
		return "WARNING"
	}
	return l
}

func levelRank(level string) int {
	switch normalizeLevel(level) {
	case "DEBUG":
		return 0
	case "INFO":
		return 1
	case "WARNING":
		return 2
	case "ERROR", "CRITICAL":
		return 3
	default:
		return -1
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
