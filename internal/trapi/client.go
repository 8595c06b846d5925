package trapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/biothings/trapi-testing-tools/pkg/logging"

	"golang.org/x/time/rate"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 10 * time.Minute
)

// PollObserver is told about every status poll of an async job.
type PollObserver func(jobID, status string, attempt int)

// Client executes queries against a TRAPI service.
type Client struct {
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	observer     PollObserver
	userAgent    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. with an oauth2 client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollTimeout sets the total polling budget for one job.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithPollObserver registers a callback for poll progress.
func WithPollObserver(fn PollObserver) Option {
	return func(c *Client) {
		c.observer = fn
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client. The default HTTP client follows redirects and
// has no overall timeout; poll requests are bounded by the polling budget.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		userAgent:    "trapi-testing-tools",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rawResponse is an HTTP response with its body fully read.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// Execute runs q against baseURL and returns the terminal response.
//
// Synchronous queries return whatever the server answered, whatever the
// status. Async queries return the final polled payload, or the submission
// response itself when the submission was not accepted.
func (c *Client) Execute(ctx context.Context, q Query, baseURL string) (*Response, error) {
	start := time.Now()
	target := joinURL(baseURL, q.Endpoint)

	method := strings.ToUpper(q.Method)
	if method == "" {
		method = http.MethodPost
	}

	logging.Debug("TRAPI", "%s %s", method, target)
	submitted, err := c.do(ctx, method, target, q.Body)
	if err != nil {
		return nil, err
	}

	if !q.IsAsync() || !is2xx(submitted.status) {
		resp := normalize(submitted, nil)
		resp.Latency = time.Since(start)
		return resp, nil
	}

	ack, err := parseJobStatus(submitted.body)
	if err != nil {
		return nil, &ProtocolError{URL: target, StatusCode: submitted.status, Reason: "async submission did not return JSON"}
	}
	jobID := ack.handle()
	if jobID == "" {
		return nil, &ProtocolError{URL: target, StatusCode: submitted.status, Reason: "async submission returned no job_id or job_url"}
	}
	logging.Debug("TRAPI", "Submitted async job %s", jobID)

	final, err := c.poll(ctx, jobID, statusURL(baseURL, ack))
	if err != nil {
		return nil, err
	}

	final.JobID = jobID
	final.Latency = time.Since(start)
	return final, nil
}

// poll waits for a job to reach a terminal state and returns the final
// response. A 404 means the status is not available yet.
func (c *Client) poll(ctx context.Context, jobID, statusURL string) (*Response, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	// Spend the initial token so the first poll waits a full interval.
	limiter.Allow()

	var lastStatus string
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(pollCtx); err != nil {
			return nil, c.pollStopped(ctx, jobID, lastStatus, err)
		}

		raw, err := c.do(pollCtx, http.MethodGet, statusURL, nil)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return nil, &PollTimeoutError{JobID: jobID, Budget: c.pollTimeout, LastStatus: lastStatus}
			}
			return nil, err
		}

		if raw.status == http.StatusNotFound {
			c.notify(jobID, "pending", attempt)
			continue
		}
		if !is2xx(raw.status) {
			return nil, &ProtocolError{URL: statusURL, StatusCode: raw.status, Reason: "status endpoint returned an error"}
		}

		status, err := parseJobStatus(raw.body)
		if err != nil {
			return nil, &ProtocolError{URL: statusURL, StatusCode: raw.status, Reason: "status payload is not JSON"}
		}
		lastStatus = status.Status
		c.notify(jobID, status.Status, attempt)
		logging.Debug("TRAPI", "Job %s status %q (attempt %d)", jobID, status.Status, attempt)

		if !status.terminal() {
			continue
		}

		if strings.EqualFold(status.Status, StatusCompleted) && status.ResponseURL != "" {
			return c.fetchResult(ctx, status)
		}
		return normalize(raw, nil), nil
	}
}

// fetchResult retrieves the final response from a completed job's response_url.
func (c *Client) fetchResult(ctx context.Context, status jobStatus) (*Response, error) {
	raw, err := c.do(ctx, http.MethodGet, status.ResponseURL, nil)
	if err != nil {
		return nil, err
	}
	if !is2xx(raw.status) {
		return nil, &ProtocolError{URL: status.ResponseURL, StatusCode: raw.status, Reason: "completed job result could not be retrieved"}
	}
	return normalize(raw, status.Logs), nil
}

func (c *Client) pollStopped(ctx context.Context, jobID, lastStatus string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("polling job %s: %w", jobID, ctxErr)
	}
	logging.Debug("TRAPI", "Polling job %s stopped: %v", jobID, err)
	return &PollTimeoutError{JobID: jobID, Budget: c.pollTimeout, LastStatus: lastStatus}
}

func (c *Client) notify(jobID, status string, attempt int) {
	if c.observer != nil {
		c.observer(jobID, status, attempt)
	}
}

// do sends one request and reads the whole body. Transport failures are
// returned as *TransportError.
func (c *Client) do(ctx context.Context, method, target string, body []byte) (*rawResponse, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(err, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransportError(err, target)
	}

	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// normalize builds a Response from a raw HTTP response. fallbackLogs are used
// when the body carries no logs of its own.
func normalize(raw *rawResponse, fallbackLogs []LogEntry) *Response {
	resp := &Response{
		StatusCode: raw.status,
		Header:     raw.header,
		Raw:        raw.body,
	}

	if len(bytes.TrimSpace(raw.body)) > 0 {
		var decoded any
		if err := json.Unmarshal(raw.body, &decoded); err == nil {
			resp.JSON = decoded
		}
	}

	resp.Logs = ExtractLogs(resp.JSON)
	if len(resp.Logs) == 0 {
		resp.Logs = fallbackLogs
	}
	return resp
}

// ExtractLogs reads the top-level "logs" array of a decoded TRAPI body.
// Entries that are not objects are skipped.
func ExtractLogs(body any) []LogEntry {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := obj["logs"].([]any)
	if !ok {
		return nil
	}

	logs := make([]LogEntry, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		logs = append(logs, LogEntry{
			Timestamp: stringField(entry, "timestamp"),
			Level:     stringField(entry, "level"),
			Message:   stringField(entry, "message"),
			Code:      stringField(entry, "code"),
		})
	}
	return logs
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func statusURL(baseURL string, ack jobStatus) string {
	if ack.JobURL != "" {
		if u, err := url.Parse(ack.JobURL); err == nil && u.IsAbs() {
			return ack.JobURL
		}
	}
	return joinURL(baseURL, "/asyncquery_status/"+url.PathEscape(ack.handle()))
}

func joinURL(base, endpoint string) string {
	if endpoint == "" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
