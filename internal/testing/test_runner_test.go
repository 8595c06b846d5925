package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biothings/trapi-testing-tools/internal/assertion"
	"github.com/biothings/trapi-testing-tools/internal/history"
	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

// fakeExecutor answers queries by endpoint.
type fakeExecutor struct {
	responses map[string]*trapi.Response
	errs      map[string]error
	calls     []string
	onCall    func(endpoint string)
}

func (f *fakeExecutor) Execute(ctx context.Context, q trapi.Query, baseURL string) (*trapi.Response, error) {
	f.calls = append(f.calls, q.Endpoint)
	if f.onCall != nil {
		f.onCall(q.Endpoint)
	}
	if err, ok := f.errs[q.Endpoint]; ok {
		return nil, err
	}
	return f.responses[q.Endpoint], nil
}

type recordingDisposer struct {
	names []string
	err   error
}

func (d *recordingDisposer) Dispose(name string, body any) error {
	d.names = append(d.names, name)
	return d.err
}

type memoryRecorder struct {
	runs []*history.Run
}

func (m *memoryRecorder) RecordRun(ctx context.Context, run *history.Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func response(t *testing.T, status int, body string) *trapi.Response {
	t.Helper()
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	return &trapi.Response{
		StatusCode: status,
		Latency:    120 * time.Millisecond,
		JSON:       decoded,
		Raw:        []byte(body),
		Logs:       trapi.ExtractLogs(decoded),
	}
}

func query(name, endpoint string, assertions ...assertion.Assertion) QueryDefinition {
	return QueryDefinition{
		Name:       name,
		Query:      trapi.Query{Method: "POST", Endpoint: endpoint},
		Assertions: assertions,
	}
}

func quietRunner(exec QueryExecutor, opts ...RunnerOption) TestRunner {
	opts = append([]RunnerOption{WithLogger(NewSilentLogger(false, false))}, opts...)
	return NewTestRunner(exec, NewQuietReporter(&bytes.Buffer{}), opts...)
}

func TestRunner_Results(t *testing.T) {
	exec := &fakeExecutor{
		responses: map[string]*trapi.Response{
			"/pass": response(t, 200, `{"description": "1 results", "message": {"results": [{}]}}`),
			"/fail": response(t, 200, `{"description": "3 results", "message": {"results": [{}]}}`),
		},
		errs: map[string]error{
			"/timeout": &trapi.PollTimeoutError{JobID: "job-1", Budget: time.Minute, LastStatus: "Running"},
			"/down":    &trapi.TransportError{URL: "http://x/down", Type: trapi.TransportErrorNetwork, Reason: errors.New("connection refused")},
		},
	}

	queries := []QueryDefinition{
		query("a/pass", "/pass", assertion.StatusCode{Expected: 200}, assertion.ResultCount{}),
		query("a/fail", "/fail", assertion.StatusCode{Expected: 200}, assertion.ResultCount{}),
		query("a/timeout", "/timeout", assertion.StatusCode{Expected: 200}),
		query("a/down", "/down", assertion.StatusCode{Expected: 200}),
	}

	result, err := quietRunner(exec).Run(context.Background(), TestConfiguration{BaseURL: "http://x"}, queries)
	require.NoError(t, err)

	assert.Equal(t, []string{"/pass", "/fail", "/timeout", "/down"}, exec.calls)
	assert.Equal(t, 4, result.TotalQueries)
	assert.Equal(t, 1, result.PassedQueries)
	assert.Equal(t, 2, result.FailedQueries)
	assert.Equal(t, 1, result.ErrorQueries)
	assert.False(t, result.Succeeded())
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Results, 4)
	assert.Equal(t, ResultPassed, result.Results[0].Result)
	assert.Equal(t, ResultFailed, result.Results[1].Result)
	assert.Equal(t, []string{"result_count"}, result.Results[1].Report.FailureNames())

	timeout := result.Results[2]
	assert.Equal(t, ResultFailed, timeout.Result)
	assert.Empty(t, timeout.Report.Outcomes, "a timed out query is not evaluated")
	assert.Equal(t, "job-1", timeout.JobID)
	assert.Contains(t, timeout.Error, "did not finish")

	assert.Equal(t, ResultError, result.Results[3].Result)
	assert.Contains(t, result.Results[3].Error, "connection refused")
}

func TestRunner_Disposition(t *testing.T) {
	exec := &fakeExecutor{
		responses: map[string]*trapi.Response{
			"/ok":  response(t, 200, `{}`),
			"/bad": response(t, 500, `{}`),
		},
		errs: map[string]error{"/down": errors.New("boom")},
	}
	queries := []QueryDefinition{
		query("ok", "/ok", assertion.StatusCode{Expected: 200}),
		query("bad", "/bad", assertion.StatusCode{Expected: 200}),
		query("down", "/down"),
	}

	t.Run("every completed query is disposed", func(t *testing.T) {
		d := &recordingDisposer{}
		_, err := quietRunner(exec, WithDisposer(d)).Run(context.Background(), TestConfiguration{}, queries)
		require.NoError(t, err)
		assert.Equal(t, []string{"ok", "bad"}, d.names)
	})

	t.Run("debug only disposes failures", func(t *testing.T) {
		d := &recordingDisposer{}
		_, err := quietRunner(exec, WithDisposer(d)).Run(context.Background(), TestConfiguration{Debug: true}, queries)
		require.NoError(t, err)
		assert.Equal(t, []string{"bad"}, d.names)
	})

	t.Run("disposal errors do not stop the batch", func(t *testing.T) {
		d := &recordingDisposer{err: errors.New("disk full")}
		result, err := quietRunner(exec, WithDisposer(d)).Run(context.Background(), TestConfiguration{}, queries)
		require.NoError(t, err)
		assert.Len(t, result.Results, 3)
	})
}

func TestRunner_RecordsRun(t *testing.T) {
	exec := &fakeExecutor{
		responses: map[string]*trapi.Response{"/ok": response(t, 200, `{}`)},
		errs:      map[string]error{"/down": errors.New("boom")},
	}
	rec := &memoryRecorder{}

	result, err := quietRunner(exec, WithRecorder(rec)).Run(context.Background(),
		TestConfiguration{Environment: "bte.ci", BaseURL: "https://bte.ci.transltr.io/v1"},
		[]QueryDefinition{
			query("ok", "/ok", assertion.StatusCode{Expected: 200}, assertion.StatusCode{Expected: 201}),
			query("down", "/down"),
		})
	require.NoError(t, err)

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, "bte.ci", run.Environment)
	assert.Equal(t, 0, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Errored)

	require.Len(t, run.Queries, 2)
	assert.Equal(t, "ok", run.Queries[0].Name)
	assert.Equal(t, "FAILED", run.Queries[0].Result)
	assert.Equal(t, 200, run.Queries[0].StatusCode)
	assert.Equal(t, int64(120), run.Queries[0].LatencyMs)
	assert.Equal(t, []string{"status(201)"}, run.Queries[0].FailedAssertions)
	assert.Equal(t, "ERROR", run.Queries[1].Result)
	assert.Equal(t, "boom", run.Queries[1].Error)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &fakeExecutor{
		responses: map[string]*trapi.Response{"/one": response(t, 200, `{}`)},
		onCall:    func(string) { cancel() },
	}
	rec := &memoryRecorder{}

	result, err := quietRunner(exec, WithRecorder(rec)).Run(ctx, TestConfiguration{}, []QueryDefinition{
		query("one", "/one"),
		query("two", "/two"),
		query("three", "/three"),
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"/one"}, exec.calls)
	assert.Len(t, result.Results, 1)
	assert.Equal(t, 2, result.SkippedQueries)
	assert.Len(t, rec.runs, 1, "a cancelled batch is still recorded")
}

func TestRunner_Empty(t *testing.T) {
	result, err := quietRunner(&fakeExecutor{}).Run(context.Background(), TestConfiguration{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalQueries)
	assert.True(t, result.Succeeded())
}
