package config

import (
	"fmt"
	"strings"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`    // Path of the file that caused the error, if any
	Field       string   `json:"field"`       // Offending field, e.g. environments.bte.prod
	ErrorType   string   `json:"errorType"`   // parse, validation, io
	Message     string   `json:"message"`     // Human-readable error message
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if ce.FilePath != "" {
		fmt.Fprintf(&b, " in %s", ce.FilePath)
	}
	if ce.Field != "" {
		fmt.Fprintf(&b, " (%s)", ce.Field)
	}
	fmt.Fprintf(&b, ": %s", ce.Message)
	return b.String()
}

// DetailedError returns the error followed by any suggestions, one per line.
func (ce *ConfigurationError) DetailedError() string {
	if len(ce.Suggestions) == 0 {
		return ce.Error()
	}
	parts := []string{ce.Error(), "  Suggestions:"}
	for _, suggestion := range ce.Suggestions {
		parts = append(parts, fmt.Sprintf("    - %s", suggestion))
	}
	return strings.Join(parts, "\n")
}
