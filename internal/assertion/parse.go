package assertion

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Names lists every assertion name accepted in query files.
var Names = []string{
	"status",
	"node_count",
	"edge_count",
	"source_record_urls",
	"has_path",
	"result_count",
	"no_error_logs",
	"no_debug_logs",
	"missing_id_log",
	"log_contains",
	"log_absent",
}

// Parse builds an Assertion from one entry of a query file's tests list.
// An entry is either a bare name ("node_count") or a single-key map whose
// value is the argument ({"status": 200}). requestedLogLevel is the
// log_level of the query body and only affects no_debug_logs.
func Parse(entry any, requestedLogLevel string) (Assertion, error) {
	name, arg, hasArg, err := splitEntry(entry)
	if err != nil {
		return nil, err
	}

	switch name {
	case "status":
		if !hasArg {
			return nil, fmt.Errorf("status requires an expected code")
		}
		code, err := toInt(arg)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		return StatusCode{Expected: code}, nil
	case "node_count":
		return NodeCount{}, noArg(name, hasArg)
	case "edge_count":
		return EdgeCount{}, noArg(name, hasArg)
	case "source_record_urls":
		return SourceRecordURLs{}, noArg(name, hasArg)
	case "result_count":
		return ResultCount{}, noArg(name, hasArg)
	case "no_error_logs":
		return NoLogsAtLevel{Label: name, Level: "ERROR"}, noArg(name, hasArg)
	case "no_debug_logs":
		return NoDebugLogs{RequestedLevel: requestedLogLevel}, noArg(name, hasArg)
	case "missing_id_log":
		return MissingIDLog{}, noArg(name, hasArg)
	case "has_path":
		path, ok := arg.(string)
		if !hasArg || !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("has_path requires a path string")
		}
		return HasPath{Path: path}, nil
	case "log_contains", "log_absent":
		pattern, ok := arg.(string)
		if !hasArg || !ok || pattern == "" {
			return nil, fmt.Errorf("%s requires a pattern string", name)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid pattern: %w", name, err)
		}
		return LogMatch{Pattern: re, Present: name == "log_contains"}, nil
	default:
		return nil, fmt.Errorf("unknown assertion %q (valid: %s)", name, strings.Join(Names, ", "))
	}
}

// ParseAll parses a tests list, reporting the index of the first bad entry.
func ParseAll(entries []any, requestedLogLevel string) ([]Assertion, error) {
	out := make([]Assertion, 0, len(entries))
	for i, entry := range entries {
		a, err := Parse(entry, requestedLogLevel)
		if err != nil {
			return nil, fmt.Errorf("tests[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func splitEntry(entry any) (name string, arg any, hasArg bool, err error) {
	switch e := entry.(type) {
	case string:
		return strings.TrimSpace(e), nil, false, nil
	case map[string]any:
		if len(e) != 1 {
			keys := make([]string, 0, len(e))
			for k := range e {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return "", nil, false, fmt.Errorf("assertion entry must have exactly one key, got %v", keys)
		}
		for k, v := range e {
			return strings.TrimSpace(k), v, v != nil, nil
		}
	}
	return "", nil, false, fmt.Errorf("assertion entry must be a name or a single-key map, got %s", describeType(entry))
}

func noArg(name string, hasArg bool) error {
	if hasArg {
		return fmt.Errorf("%s takes no argument", name)
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %s", describeType(v))
	}
}
