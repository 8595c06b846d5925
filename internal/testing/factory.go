package testing

import (
	"net/http"
	"os"
	"time"

	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

// FrameworkOptions configures NewTestFramework
type FrameworkOptions struct {
	Mode       ExecutionMode
	Verbose    bool
	Debug      bool
	ReportPath string
	// Quiet prints only failures in CLI mode
	Quiet bool

	// QueriesDir is the root of the query files
	QueriesDir string
	// TemplateVars are exposed to query templates
	TemplateVars map[string]any

	// HTTPClient carries per-environment auth; nil means http.DefaultClient
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
	UserAgent    string

	Disposer Disposer
	Recorder Recorder
}

// TestFramework holds all components needed for testing
type TestFramework struct {
	Runner   TestRunner
	Client   *trapi.Client
	Loader   QueryLoader
	Reporter TestReporter
	Logger   TestLogger
}

// NewTestFramework creates a fully configured test framework
//
// Execution Modes:
//   - ExecutionModeCLI: emoji progress, spinner and assertion tables on stderr
//   - ExecutionModeMCPServer: nothing is written; the final result is kept
//     by a StructuredReporter so it can be returned to the caller
func NewTestFramework(opts FrameworkOptions) *TestFramework {
	var logger TestLogger
	var reporter TestReporter
	switch opts.Mode {
	case ExecutionModeMCPServer:
		logger = NewSilentLogger(opts.Verbose, opts.Debug)
		reporter = NewStructuredReporter()
	default:
		logger = NewConsoleLogger(opts.Verbose, opts.Debug)
		if opts.Quiet {
			reporter = NewQuietReporter(os.Stderr)
		} else {
			reporter = NewTestReporter(opts.Verbose, opts.Debug, opts.ReportPath)
		}
	}

	clientOpts := []trapi.Option{trapi.WithPollObserver(reporter.ReportPollStatus)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, trapi.WithHTTPClient(opts.HTTPClient))
	}
	if opts.PollInterval > 0 {
		clientOpts = append(clientOpts, trapi.WithPollInterval(opts.PollInterval))
	}
	if opts.PollTimeout > 0 {
		clientOpts = append(clientOpts, trapi.WithPollTimeout(opts.PollTimeout))
	}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, trapi.WithUserAgent(opts.UserAgent))
	}
	client := trapi.NewClient(clientOpts...)

	loader := NewQueryLoader(opts.QueriesDir, opts.TemplateVars, logger)

	runnerOpts := []RunnerOption{WithLogger(logger)}
	if opts.Disposer != nil {
		runnerOpts = append(runnerOpts, WithDisposer(opts.Disposer))
	}
	if opts.Recorder != nil {
		runnerOpts = append(runnerOpts, WithRecorder(opts.Recorder))
	}
	runner := NewTestRunner(client, reporter, runnerOpts...)

	return &TestFramework{
		Runner:   runner,
		Client:   client,
		Loader:   loader,
		Reporter: reporter,
		Logger:   logger,
	}
}
