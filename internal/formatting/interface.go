// Package formatting renders listing output for the CLI in several
// formats: rich tables, plain kubectl-style columns, JSON and YAML.
//
// Callers describe their data twice: once as a Table for the human
// formats, and once as a plain value for the machine formats.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatPlain OutputFormat = "plain" // Borderless columns for grep and awk
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: table, plain, json, yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool
	// Writer defaults to stdout.
	Writer io.Writer
}

// Table is the human readable view of a listing.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Footer is printed under the table, e.g. a tally.
	Footer string
}

// Formatter writes one listing.
type Formatter interface {
	// Format renders t for human formats and data for machine formats.
	Format(t Table, data any) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	switch options.Format {
	case FormatJSON:
		return &jsonFormatter{options: options}
	case FormatYAML:
		return &yamlFormatter{options: options}
	case FormatPlain:
		return &plainFormatter{options: options}
	default:
		return &tableFormatter{options: options}
	}
}
