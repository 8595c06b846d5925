package assertion

import (
	"fmt"
	"strconv"
	"strings"
)

// walkPath follows a dotted path such as "message.results[0].analyses"
// through a decoded JSON value.
func walkPath(root any, path string) (any, error) {
	current := root

	for _, part := range splitPath(path) {
		key, idx, hasIdx := parsePathPart(part)

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %s", key)
			}
			val, exists := obj[key]
			if !exists {
				return nil, fmt.Errorf("key %s not found", key)
			}
			current = val
		}

		if hasIdx {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array at index %d", idx)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}

	return current, nil
}

// splitPath splits "a.b[0].c" into ["a", "b[0]", "c"]
func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, ".") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// parsePathPart parses "name[0]" into ("name", 0, true) or "name" into ("name", 0, false)
func parsePathPart(part string) (string, int, bool) {
	bracketIdx := strings.Index(part, "[")
	if bracketIdx == -1 || !strings.HasSuffix(part, "]") {
		return part, 0, false
	}

	key := part[:bracketIdx]
	idx, err := strconv.Atoi(part[bracketIdx+1 : len(part)-1])
	if err != nil {
		return part, 0, false
	}
	return key, idx, true
}

// collectionSize returns the number of members of a JSON object or array.
func collectionSize(v any) (int, bool) {
	switch c := v.(type) {
	case map[string]any:
		return len(c), true
	case []any:
		return len(c), true
	default:
		return 0, false
	}
}

func describeType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
