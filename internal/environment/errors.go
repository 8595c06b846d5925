package environment

import (
	"fmt"
	"strings"
)

// UnknownEnvironmentError is returned when a key does not resolve.
type UnknownEnvironmentError struct {
	// Key is the key that was requested.
	Key string
	// Valid lists every key that would have resolved.
	Valid []string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q: must be one of %s", e.Key, strings.Join(e.Valid, ", "))
}

// UnknownAppError is returned when an application name is not configured.
type UnknownAppError struct {
	App   string
	Valid []string
}

func (e *UnknownAppError) Error() string {
	return fmt.Sprintf("unknown app %q: must be one of configured apps: %s", e.App, strings.Join(e.Valid, ", "))
}
