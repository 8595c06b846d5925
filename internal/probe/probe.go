package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/trapi"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultPath    = "/asyncquery_status/HopefullyNonExistentHash"

	// excludedInstance and excludedApp are never probed.
	excludedInstance = "local"
	excludedApp      = "default"
)

// Result is the outcome of probing one instance.
type Result struct {
	App        string    `json:"app"`
	Instance   string    `json:"instance"`
	URL        string    `json:"url"`
	Responsive bool      `json:"responsive"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// EnvironmentResult groups the results of one app, in config order.
type EnvironmentResult struct {
	App     string   `json:"app"`
	Results []Result `json:"results"`
}

// Responsive counts responsive instances.
func (e EnvironmentResult) Responsive() int {
	n := 0
	for _, r := range e.Results {
		if r.Responsive {
			n++
		}
	}
	return n
}

// Total is the number of instances probed.
func (e EnvironmentResult) Total() int {
	return len(e.Results)
}

// AllResponsive reports whether every probed instance answered.
func (e EnvironmentResult) AllResponsive() bool {
	return e.Responsive() == e.Total()
}

// Tally renders the environment summary line.
func (e EnvironmentResult) Tally() string {
	if e.AllResponsive() {
		return "✓ All Green!"
	}
	return fmt.Sprintf("%d/%d Responding.", e.Responsive(), e.Total())
}

// Report is the joined outcome of one Probe call.
type Report struct {
	Environments []EnvironmentResult `json:"environments"`
	Duration     time.Duration       `json:"duration"`
}

// AllResponsive reports whether every environment is fully responsive.
func (r Report) AllResponsive() bool {
	for _, e := range r.Environments {
		if !e.AllResponsive() {
			return false
		}
	}
	return true
}

// Prober checks liveness of TRAPI instances in parallel.
type Prober struct {
	client   *http.Client
	timeout  time.Duration
	path     string
	limit    int
	observer func(Result)
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient replaces the HTTP client used for probes.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Prober) {
		if hc != nil {
			p.client = hc
		}
	}
}

// WithTimeout sets the per-instance timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPath sets the path appended to each instance URL.
func WithPath(path string) Option {
	return func(p *Prober) {
		if path != "" {
			p.path = path
		}
	}
}

// WithConcurrency caps in-flight probes. Zero means one per instance.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		p.limit = n
	}
}

// WithObserver registers a callback run as each probe finishes. It is
// called from probe goroutines and must be safe for concurrent use.
func WithObserver(fn func(Result)) Option {
	return func(p *Prober) {
		p.observer = fn
	}
}

// NewProber creates a Prober.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		path:    DefaultPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromConfig returns the options matching the probe section of cfg.
func FromConfig(cfg config.ProbeConfig) []Option {
	return []Option{
		WithTimeout(cfg.Timeout),
		WithPath(cfg.Path),
		WithConcurrency(cfg.Concurrency),
	}
}

type target struct {
	env      int
	slot     int
	app      string
	instance string
	url      string
}

// Probe checks every instance of every app and returns once all probes have
// finished. Failures are reported per instance and never returned as errors.
func (p *Prober) Probe(ctx context.Context, apps []config.App) Report {
	start := time.Now()
	report := Report{}
	var targets []target

	for _, app := range apps {
		if app.Name == excludedApp {
			continue
		}
		env := EnvironmentResult{App: app.Name}
		for _, level := range app.Levels {
			if level.Name == excludedInstance {
				continue
			}
			targets = append(targets, target{
				env:      len(report.Environments),
				slot:     len(env.Results),
				app:      app.Name,
				instance: level.Name,
				url:      level.URL,
			})
			env.Results = append(env.Results, Result{App: app.Name, Instance: level.Name, URL: level.URL})
		}
		if len(env.Results) > 0 {
			report.Environments = append(report.Environments, env)
		}
	}

	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for _, t := range targets {
		g.Go(func() error {
			res := p.probeOne(ctx, t)
			report.Environments[t.env].Results[t.slot] = res
			if p.observer != nil {
				p.observer(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	logging.Debug("Probe", "Probed %d instances in %v", len(targets), report.Duration)
	return report
}

func (p *Prober) probeOne(ctx context.Context, t target) Result {
	res := Result{App: t.app, Instance: t.instance, URL: t.url, CheckedAt: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := strings.TrimRight(t.url, "/") + p.path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	res.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = trapi.ClassifyTransportError(err, endpoint).Type.String()
		logging.Debug("Probe", "%s.%s unreachable: %v", t.app, t.instance, err)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.StatusCode = resp.StatusCode
	if alive(resp.StatusCode) {
		res.Responsive = true
	} else {
		res.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return res
}

// alive treats 404 and 405 as live: the instance answered, it just has no
// such job or does not route the status endpoint.
func alive(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusNotFound || status == http.StatusMethodNotAllowed
}
