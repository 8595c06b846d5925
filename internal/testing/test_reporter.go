package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/biothings/trapi-testing-tools/internal/formatting"
)

// testReporter implements the TestReporter interface. It writes to stderr
// so that pipe mode owns stdout.
type testReporter struct {
	out        io.Writer
	verbose    bool
	debug      bool
	reportPath string

	mu      sync.Mutex
	spin    bool
	spinner *spinner.Spinner
	current string
}

// NewTestReporter creates a reporter that writes to stderr with a spinner
// while queries are in flight
func NewTestReporter(verbose, debug bool, reportPath string) TestReporter {
	r := newTestReporter(os.Stderr, verbose, debug, reportPath)
	r.spin = true
	return r
}

func newTestReporter(out io.Writer, verbose, debug bool, reportPath string) *testReporter {
	return &testReporter{
		out:        out,
		verbose:    verbose,
		debug:      debug,
		reportPath: reportPath,
	}
}

// ReportStart is called when a batch begins
func (r *testReporter) ReportStart(config TestConfiguration, queries []QueryDefinition) {
	fmt.Fprintf(r.out, "🧪 Running %d %s against %s (%s)\n",
		len(queries), plural(len(queries), "query", "queries"), config.Environment, config.BaseURL)

	if r.verbose {
		fmt.Fprintf(r.out, "\n⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Environment: %s\n", config.Environment)
		fmt.Fprintf(r.out, "   • Base URL: %s\n", config.BaseURL)
		fmt.Fprintf(r.out, "   • Debug mode: %t\n", config.Debug)
		if config.ReportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", config.ReportPath)
		}
		fmt.Fprintf(r.out, "\n")
	}
}

// ReportQueryStart is called before a query is sent
func (r *testReporter) ReportQueryStart(query QueryDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = query.Name
	if r.verbose {
		fmt.Fprintf(r.out, "🎯 %s: %s %s\n", query.Name, query.Query.Method, query.Query.Endpoint)
		if query.Description != "" {
			fmt.Fprintf(r.out, "   📝 Description: %s\n", query.Description)
		}
		fmt.Fprintf(r.out, "   📋 Assertions: %d\n", len(query.Assertions))
	}

	if r.spin {
		r.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.out))
		r.spinner.Suffix = fmt.Sprintf(" %s", query.Name)
		r.spinner.Start()
		return
	}
	if !r.verbose {
		fmt.Fprintf(r.out, "🎯 %s... ", query.Name)
	}
}

// ReportPollStatus updates the spinner with the latest job status
func (r *testReporter) ReportPollStatus(jobID, status string, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spinner != nil {
		r.spinner.Lock()
		r.spinner.Suffix = fmt.Sprintf(" %s (job %s: %s, poll %d)", r.current, jobID, status, attempt)
		r.spinner.Unlock()
		return
	}
	if r.debug {
		fmt.Fprintf(r.out, "\n   ⏳ job %s: %s (poll %d)", jobID, status, attempt)
	}
}

func (r *testReporter) stopSpinner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
}

// ReportQueryResult is called when a query completes
func (r *testReporter) ReportQueryResult(result QueryRunResult) {
	r.stopSpinner()

	symbol := r.getResultSymbol(result.Result)
	detail := formatting.Duration(result.Duration)
	if result.StatusCode != 0 {
		detail = fmt.Sprintf("HTTP %d, %s", result.StatusCode, detail)
	}

	if r.spin || r.verbose {
		fmt.Fprintf(r.out, "%s %s %s (%s)\n", symbol, result.Query.Name, colorResult(result.Result), detail)
	} else {
		fmt.Fprintf(r.out, "%s %s (%s)\n", symbol, colorResult(result.Result), detail)
	}

	if result.JobID != "" && (r.verbose || r.debug) {
		fmt.Fprintf(r.out, "   🆔 Job: %s\n", result.JobID)
	}
	if result.Error != "" {
		fmt.Fprintf(r.out, "   ❌ Error: %s\n", result.Error)
	}

	r.renderAssertions(result)
}

// renderAssertions prints the assertion table: every outcome in verbose
// mode, only failures otherwise.
func (r *testReporter) renderAssertions(result QueryRunResult) {
	outcomes := result.Report.Outcomes
	if !r.verbose {
		outcomes = result.Report.Failures()
	}
	if len(outcomes) == 0 {
		return
	}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		mark := text.FgGreen.Sprint("PASS")
		if !o.Pass {
			mark = text.FgRed.Sprint("FAIL")
		}
		rows = append(rows, []string{mark, o.Name, formatting.Truncate(o.Actual, 24), formatting.Truncate(o.Message, 80)})
	}

	formatter := formatting.New(formatting.Options{Format: formatting.FormatTable, Writer: r.out})
	_ = formatter.Format(formatting.Table{
		Headers: []string{"", "Assertion", "Actual", "Detail"},
		Rows:    rows,
		Footer:  "   " + result.Report.Summary(),
	}, nil)
}

// ReportSuiteResult is called when all queries complete
func (r *testReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	r.stopSpinner()

	fmt.Fprintf(r.out, "\n🏁 Test Run Complete\n")
	fmt.Fprintf(r.out, "⏱️  Duration: %s\n", formatting.Duration(suiteResult.Duration))
	fmt.Fprintf(r.out, "📊 Results:\n")
	fmt.Fprintf(r.out, "   ✅ Passed: %d\n", suiteResult.PassedQueries)

	if suiteResult.FailedQueries > 0 {
		fmt.Fprintf(r.out, "   ❌ Failed: %d\n", suiteResult.FailedQueries)
	}
	if suiteResult.ErrorQueries > 0 {
		fmt.Fprintf(r.out, "   💥 Errors: %d\n", suiteResult.ErrorQueries)
	}
	if suiteResult.SkippedQueries > 0 {
		fmt.Fprintf(r.out, "   ⏭️  Skipped: %d\n", suiteResult.SkippedQueries)
	}
	fmt.Fprintf(r.out, "   📈 Total: %d\n", suiteResult.TotalQueries)

	successRate := 0.0
	if suiteResult.TotalQueries > 0 {
		successRate = float64(suiteResult.PassedQueries) / float64(suiteResult.TotalQueries) * 100
	}
	fmt.Fprintf(r.out, "   📏 Success Rate: %.1f%%\n", successRate)

	if suiteResult.Succeeded() && suiteResult.SkippedQueries == 0 {
		fmt.Fprintf(r.out, "\n🎉 All queries passed!\n")
	} else {
		fmt.Fprintf(r.out, "\n💔 Some queries failed\n")
	}

	if r.debug && suiteResult.RunID != "" {
		fmt.Fprintf(r.out, "🆔 Run: %s\n", suiteResult.RunID)
	}

	if r.reportPath != "" {
		path, err := saveDetailedReport(r.reportPath, suiteResult)
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Detailed report saved to: %s\n", path)
		}
	}
}

// saveDetailedReport saves a detailed JSON report into dir and returns the
// file written
func saveDetailedReport(dir string, suiteResult TestSuiteResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := suiteResult.StartTime.Format("20060102-150405")
	fullPath := filepath.Join(dir, fmt.Sprintf("tt-report-%s.json", timestamp))

	jsonData, err := json.MarshalIndent(suiteResult, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}

// getResultSymbol returns an appropriate symbol for the test result
func (r *testReporter) getResultSymbol(result TestResult) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

func colorResult(result TestResult) string {
	switch result {
	case ResultPassed:
		return text.FgGreen.Sprint(string(result))
	case ResultFailed, ResultError:
		return text.FgRed.Sprint(string(result))
	default:
		return text.FgYellow.Sprint(string(result))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// NewQuietReporter creates a reporter that only outputs essential information
func NewQuietReporter(out io.Writer) TestReporter {
	if out == nil {
		out = os.Stderr
	}
	return &quietReporter{out: out}
}

// quietReporter implements minimal output for CI/CD integration
type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart(config TestConfiguration, queries []QueryDefinition) {}

func (r *quietReporter) ReportQueryStart(query QueryDefinition) {}

func (r *quietReporter) ReportPollStatus(jobID, status string, attempt int) {}

func (r *quietReporter) ReportQueryResult(result QueryRunResult) {
	// Only report failures
	switch result.Result {
	case ResultFailed:
		msg := result.Error
		if msg == "" {
			msg = result.Report.Summary()
		}
		fmt.Fprintf(r.out, "❌ %s: %s\n", result.Query.Name, msg)
	case ResultError:
		fmt.Fprintf(r.out, "💥 %s: %s\n", result.Query.Name, result.Error)
	}
}

func (r *quietReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	if suiteResult.Succeeded() {
		fmt.Fprintf(r.out, "✅ All %d queries passed (%v)\n", suiteResult.TotalQueries, suiteResult.Duration)
	} else {
		fmt.Fprintf(r.out, "❌ %d/%d queries failed (%v)\n",
			suiteResult.FailedQueries+suiteResult.ErrorQueries,
			suiteResult.TotalQueries,
			suiteResult.Duration)
	}
}

// StructuredReporter collects results without writing anything, for the
// MCP server where stdio carries the protocol
type StructuredReporter struct {
	mu     sync.Mutex
	result *TestSuiteResult
}

// NewStructuredReporter creates a reporter that only records the final result
func NewStructuredReporter() *StructuredReporter {
	return &StructuredReporter{}
}

func (r *StructuredReporter) ReportStart(config TestConfiguration, queries []QueryDefinition) {}

func (r *StructuredReporter) ReportQueryStart(query QueryDefinition) {}

func (r *StructuredReporter) ReportPollStatus(jobID, status string, attempt int) {}

func (r *StructuredReporter) ReportQueryResult(result QueryRunResult) {}

func (r *StructuredReporter) ReportSuiteResult(suiteResult TestSuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &suiteResult
}

// ResultsAsJSON returns the last suite result as indented JSON
func (r *StructuredReporter) ResultsAsJSON() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return "", fmt.Errorf("no results recorded")
	}
	data, err := json.MarshalIndent(r.result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
