package testing

import (
	"fmt"
	"io"
	"os"
)

// consoleLogger implements TestLogger for CLI mode. Everything goes to
// stderr so pipe mode keeps stdout for the response body.
type consoleLogger struct {
	out     io.Writer
	verbose bool
	debug   bool
}

// NewConsoleLogger creates a logger that writes to stderr
func NewConsoleLogger(verbose, debug bool) TestLogger {
	return &consoleLogger{
		out:     os.Stderr,
		verbose: verbose,
		debug:   debug,
	}
}

func (l *consoleLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *consoleLogger) Info(format string, args ...interface{}) {
	if l.verbose || l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *consoleLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format, args...)
}

func (l *consoleLogger) IsDebugEnabled() bool {
	return l.debug
}

func (l *consoleLogger) IsVerboseEnabled() bool {
	return l.verbose
}

// silentLogger implements TestLogger for MCP server mode, suppressing all output
type silentLogger struct {
	verbose bool
	debug   bool
}

// NewSilentLogger creates a logger that suppresses all output (for MCP server mode)
func NewSilentLogger(verbose, debug bool) TestLogger {
	return &silentLogger{
		verbose: verbose,
		debug:   debug,
	}
}

func (l *silentLogger) Debug(format string, args ...interface{}) {}

func (l *silentLogger) Info(format string, args ...interface{}) {}

func (l *silentLogger) Error(format string, args ...interface{}) {}

func (l *silentLogger) IsDebugEnabled() bool {
	return l.debug
}

func (l *silentLogger) IsVerboseEnabled() bool {
	return l.verbose
}
