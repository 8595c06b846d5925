package trapi

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"
)

// Query is what gets sent: an HTTP method, a path relative to the
// environment base URL, and a JSON body.
type Query struct {
	Method   string
	Endpoint string
	Body     json.RawMessage
}

// IsAsync reports whether the endpoint uses the submit-then-poll flow.
func (q Query) IsAsync() bool {
	endpoint := strings.TrimRight(q.Endpoint, "/")
	if i := strings.IndexAny(endpoint, "?#"); i >= 0 {
		endpoint = endpoint[:i]
	}
	return path.Base(endpoint) == "asyncquery"
}

// Response is the normalized terminal response of a query. For async
// submissions it describes the final polled payload.
type Response struct {
	StatusCode int
	Header     http.Header
	// Latency spans submission to terminal response, including polling.
	Latency time.Duration
	// JSON holds the decoded body when it parsed as JSON.
	JSON any
	// Raw is the body exactly as received.
	Raw []byte
	// JobID is set for async submissions.
	JobID string
	// Logs is the log stream that accompanied the response.
	Logs []LogEntry
}

// Structured reports whether the body decoded as JSON.
func (r *Response) Structured() bool {
	return r != nil && r.JSON != nil
}

// Body returns the decoded JSON when present, the raw text otherwise, and
// nil when there is no body at all.
func (r *Response) Body() any {
	if r == nil {
		return nil
	}
	if r.JSON != nil {
		return r.JSON
	}
	if len(r.Raw) == 0 {
		return nil
	}
	return string(r.Raw)
}

// LogEntry is one element of a TRAPI response's top-level logs array.
type LogEntry struct {
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
}

// jobStatus is the payload returned by asyncquery and asyncquery_status.
type jobStatus struct {
	JobID       string     `json:"job_id"`
	JobURL      string     `json:"job_url"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	ResponseURL string     `json:"response_url"`
	Logs        []LogEntry `json:"-"`
}

// parseJobStatus decodes a status payload. Logs go through ExtractLogs so
// entries with non-string fields do not reject the whole payload.
func parseJobStatus(data []byte) (jobStatus, error) {
	var s jobStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return jobStatus{}, err
	}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return jobStatus{}, err
	}
	s.Logs = ExtractLogs(body)
	return s, nil
}

// Job states that end polling.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

func (s jobStatus) terminal() bool {
	switch strings.ToLower(s.Status) {
	case StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// handle extracts the job identifier from a submission acknowledgement.
func (s jobStatus) handle() string {
	if s.JobID != "" {
		return s.JobID
	}
	if s.JobURL != "" {
		return path.Base(strings.TrimRight(s.JobURL, "/"))
	}
	return ""
}
