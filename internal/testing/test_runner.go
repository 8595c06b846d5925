package testing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/biothings/trapi-testing-tools/internal/assertion"
	"github.com/biothings/trapi-testing-tools/internal/history"
	"github.com/biothings/trapi-testing-tools/internal/trapi"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// testRunner implements the TestRunner interface
type testRunner struct {
	executor QueryExecutor
	reporter TestReporter
	disposer Disposer
	recorder Recorder
	logger   TestLogger
	now      func() time.Time
}

// RunnerOption configures a runner
type RunnerOption func(*testRunner)

// WithDisposer sets what happens to response bodies. Without one, bodies
// are dropped.
func WithDisposer(d Disposer) RunnerOption {
	return func(r *testRunner) { r.disposer = d }
}

// WithRecorder persists every finished batch.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *testRunner) { r.recorder = rec }
}

// WithLogger replaces the default console logger.
func WithLogger(l TestLogger) RunnerOption {
	return func(r *testRunner) { r.logger = l }
}

// NewTestRunner creates a new test runner
func NewTestRunner(executor QueryExecutor, reporter TestReporter, opts ...RunnerOption) TestRunner {
	r := &testRunner{
		executor: executor,
		reporter: reporter,
		logger:   NewConsoleLogger(false, false),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes queries one after another: execute, evaluate, report,
// dispose. A cancelled context stops the batch; the queries not yet run are
// counted as skipped and the partial result is still reported and recorded.
func (r *testRunner) Run(ctx context.Context, config TestConfiguration, queries []QueryDefinition) (*TestSuiteResult, error) {
	result := &TestSuiteResult{
		RunID:         uuid.NewString(),
		StartTime:     r.now(),
		TotalQueries:  len(queries),
		Results:       make([]QueryRunResult, 0, len(queries)),
		Configuration: config,
	}

	r.reporter.ReportStart(config, queries)

	var runErr error
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			result.SkippedQueries = len(queries) - i
			runErr = err
			break
		}

		r.reporter.ReportQueryStart(query)
		queryResult := r.runQuery(ctx, query, config)
		result.Results = append(result.Results, queryResult)
		r.updateCounters(result, queryResult)
		r.reporter.ReportQueryResult(queryResult)

		r.dispose(query, queryResult, config)
	}

	result.EndTime = r.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	r.record(ctx, result)
	r.reporter.ReportSuiteResult(*result)

	return result, runErr
}

// runQuery executes one query and evaluates its assertions. A poll timeout
// fails the query without evaluation; any other execution error is an ERROR.
func (r *testRunner) runQuery(ctx context.Context, query QueryDefinition, config TestConfiguration) QueryRunResult {
	result := QueryRunResult{
		Query:     query,
		StartTime: r.now(),
	}
	defer func() {
		result.EndTime = r.now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	r.logger.Debug("📤 %s %s%s\n", query.Query.Method, config.BaseURL, query.Query.Endpoint)

	resp, err := r.executor.Execute(ctx, query.Query, config.BaseURL)
	if err != nil {
		result.Error = err.Error()
		var timeout *trapi.PollTimeoutError
		if errors.As(err, &timeout) {
			result.Result = ResultFailed
			result.JobID = timeout.JobID
		} else {
			result.Result = ResultError
		}
		logging.Debug("TestRunner", "Query %s did not complete: %v", query.Name, err)
		return result
	}

	result.Response = resp
	result.StatusCode = resp.StatusCode
	result.JobID = resp.JobID
	result.Report = assertion.Evaluate(query.Assertions, resp, resp.Logs)
	if result.Report.Passed() {
		result.Result = ResultPassed
	} else {
		result.Result = ResultFailed
	}

	r.logger.Debug("📥 %s: HTTP %d in %v, %s\n", query.Name, resp.StatusCode, resp.Latency, result.Report.Summary())
	return result
}

// dispose hands the body to the disposer. In debug mode only failing
// queries are offered.
func (r *testRunner) dispose(query QueryDefinition, result QueryRunResult, config TestConfiguration) {
	if r.disposer == nil || result.Response == nil {
		return
	}
	if config.Debug && result.Result == ResultPassed {
		return
	}
	if err := r.disposer.Dispose(query.Name, result.Response.Body()); err != nil {
		r.logger.Error("⚠️  %s: %v\n", query.Name, err)
	}
}

func (r *testRunner) record(ctx context.Context, result *TestSuiteResult) {
	if r.recorder == nil {
		return
	}
	run := toRun(result)
	if err := r.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logging.Warn("TestRunner", "Failed to record run %s: %v", run.ID, err)
		return
	}
	logging.Debug("TestRunner", "Recorded run %s", run.ID)
}

// toRun converts a suite result into its history record
func toRun(result *TestSuiteResult) *history.Run {
	run := &history.Run{
		ID:          result.RunID,
		StartedAt:   result.StartTime,
		Duration:    result.Duration,
		Environment: result.Configuration.Environment,
		BaseURL:     result.Configuration.BaseURL,
		Passed:      result.PassedQueries,
		Failed:      result.FailedQueries,
		Errored:     result.ErrorQueries,
		Queries:     make([]history.QueryRecord, 0, len(result.Results)),
	}
	for _, qr := range result.Results {
		var latency time.Duration
		if qr.Response != nil {
			latency = qr.Response.Latency
		} else {
			latency = qr.Duration
		}
		run.Queries = append(run.Queries, history.QueryRecord{
			Name:             qr.Query.Name,
			Result:           string(qr.Result),
			StatusCode:       qr.StatusCode,
			LatencyMs:        latency.Milliseconds(),
			JobID:            qr.JobID,
			Error:            qr.Error,
			FailedAssertions: qr.Report.FailureNames(),
		})
	}
	return run
}

// updateCounters updates the result counters based on a query result
func (r *testRunner) updateCounters(suiteResult *TestSuiteResult, queryResult QueryRunResult) {
	switch queryResult.Result {
	case ResultPassed:
		suiteResult.PassedQueries++
	case ResultFailed:
		suiteResult.FailedQueries++
	case ResultSkipped:
		suiteResult.SkippedQueries++
	case ResultError:
		suiteResult.ErrorQueries++
	}
}
