package testing

import (
	"context"
	"time"

	"github.com/biothings/trapi-testing-tools/internal/assertion"
	"github.com/biothings/trapi-testing-tools/internal/history"
	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

// TestResult represents the result of running one query
type TestResult string

const (
	// ResultPassed indicates every assertion passed
	ResultPassed TestResult = "PASSED"
	// ResultFailed indicates at least one assertion failed, or polling timed out
	ResultFailed TestResult = "FAILED"
	// ResultSkipped indicates the query was not run
	ResultSkipped TestResult = "SKIPPED"
	// ResultError indicates the query could not be executed
	ResultError TestResult = "ERROR"
)

// ExecutionMode represents the mode of test execution
type ExecutionMode string

const (
	// ExecutionModeCLI reports to the terminal
	ExecutionModeCLI ExecutionMode = "cli"
	// ExecutionModeMCPServer keeps stdio clean for the MCP protocol stream
	ExecutionModeMCPServer ExecutionMode = "mcp-server"
)

// TestLogger provides centralized logging for test execution
type TestLogger interface {
	// Debug logs debug-level messages (only shown when debug=true)
	Debug(format string, args ...interface{})
	// Info logs info-level messages (shown when verbose=true or debug=true)
	Info(format string, args ...interface{})
	// Error logs error-level messages (always shown)
	Error(format string, args ...interface{})
	// IsDebugEnabled returns whether debug logging is enabled
	IsDebugEnabled() bool
	// IsVerboseEnabled returns whether verbose logging is enabled
	IsVerboseEnabled() bool
}

// TestConfiguration defines one batch run
type TestConfiguration struct {
	// Environment is the key the base URL was resolved from
	Environment string `json:"environment"`
	// BaseURL is the resolved environment URL
	BaseURL string `json:"base_url"`
	// Debug restricts disposition to failing queries
	Debug bool `json:"debug"`
	// Verbose prints every assertion, not only failures
	Verbose bool `json:"verbose"`
	// ReportPath is a directory to save a JSON run report to
	ReportPath string `json:"report_path,omitempty"`
	// Selection is how the queries were chosen, for the re-run hint
	Selection []string `json:"selection,omitempty"`
}

// QueryDefinition is one loaded query file
type QueryDefinition struct {
	// Name is the file path relative to the queries root, without extension
	Name string `json:"name"`
	// Path is the file the definition was loaded from
	Path string `json:"path"`
	// Description is optional human-readable text
	Description string `json:"description,omitempty"`
	// Query is what gets sent
	Query trapi.Query `json:"-"`
	// Assertions are evaluated in order against the response
	Assertions []assertion.Assertion `json:"-"`
	// RequestedLogLevel is the log_level of the body, if any
	RequestedLogLevel string `json:"log_level,omitempty"`
}

// QueryRunResult is the outcome of one query
type QueryRunResult struct {
	Query     QueryDefinition `json:"query"`
	Result    TestResult      `json:"result"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	// StatusCode is the HTTP status of the terminal response
	StatusCode int `json:"status_code,omitempty"`
	// JobID is set for async queries
	JobID string `json:"job_id,omitempty"`
	// Report holds assertion outcomes; empty when the query did not complete
	Report assertion.Report `json:"report"`
	// Error message if the query errored or timed out
	Error string `json:"error,omitempty"`
	// Response is the normalized response, kept for disposition
	Response *trapi.Response `json:"-"`
}

// TestSuiteResult represents the overall result of a batch
type TestSuiteResult struct {
	RunID         string        `json:"run_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration"`
	TotalQueries  int           `json:"total_queries"`
	PassedQueries int           `json:"passed_queries"`
	FailedQueries int           `json:"failed_queries"`
	ErrorQueries  int           `json:"error_queries"`
	// SkippedQueries were not run because the batch was cancelled
	SkippedQueries int               `json:"skipped_queries"`
	Results        []QueryRunResult  `json:"results"`
	Configuration  TestConfiguration `json:"configuration"`
}

// Succeeded reports whether every query passed
func (s *TestSuiteResult) Succeeded() bool {
	return s.FailedQueries == 0 && s.ErrorQueries == 0
}

// TestRunner executes a batch of queries
type TestRunner interface {
	// Run executes queries sequentially in the given order
	Run(ctx context.Context, config TestConfiguration, queries []QueryDefinition) (*TestSuiteResult, error)
}

// QueryExecutor sends a query and returns its normalized terminal response.
// *trapi.Client satisfies it.
type QueryExecutor interface {
	Execute(ctx context.Context, q trapi.Query, baseURL string) (*trapi.Response, error)
}

// QueryLoader finds and parses query files
type QueryLoader interface {
	// Load resolves each argument (file, directory or query name) and parses
	// the matching files, sorted by name
	Load(args ...string) ([]QueryDefinition, error)
	// ListQueries returns the names of every query under the root
	ListQueries() ([]string, error)
	// Root is the queries directory
	Root() string
}

// TestReporter interface defines how query results are reported
type TestReporter interface {
	// ReportStart is called when a batch begins
	ReportStart(config TestConfiguration, queries []QueryDefinition)
	// ReportQueryStart is called before a query is sent
	ReportQueryStart(query QueryDefinition)
	// ReportPollStatus is called for every async status poll
	ReportPollStatus(jobID, status string, attempt int)
	// ReportQueryResult is called when a query completes
	ReportQueryResult(result QueryRunResult)
	// ReportSuiteResult is called when all queries complete
	ReportSuiteResult(suiteResult TestSuiteResult)
}

// Recorder persists a finished batch.
// *history.SQLiteStore satisfies it.
type Recorder interface {
	RecordRun(ctx context.Context, run *history.Run) error
}

// Disposer decides what happens to each response body.
// *disposition.Controller satisfies it.
type Disposer interface {
	Dispose(name string, body any) error
}
