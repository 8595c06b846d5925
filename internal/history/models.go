package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no run matches an id.
var ErrNotFound = errors.New("run not found")

// Run is one invocation of tt test against one environment.
type Run struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Environment string        `json:"environment"`
	BaseURL     string        `json:"base_url"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Errored     int           `json:"errored"`
	Queries     []QueryRecord `json:"queries,omitempty"`
}

// Total is the number of queries in the run.
func (r *Run) Total() int {
	return r.Passed + r.Failed + r.Errored
}

// QueryRecord is the outcome of one query within a run.
type QueryRecord struct {
	Name             string   `json:"name"`
	Result           string   `json:"result"`
	StatusCode       int      `json:"status_code,omitempty"`
	LatencyMs        int64    `json:"latency_ms"`
	JobID            string   `json:"job_id,omitempty"`
	Error            string   `json:"error,omitempty"`
	FailedAssertions []string `json:"failed_assertions,omitempty"`
}

// ListFilter narrows ListRuns.
type ListFilter struct {
	Environment string
	// Limit caps the number of runs returned; zero means 20.
	Limit int
}

// Store persists runs.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, f ListFilter) ([]*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}
