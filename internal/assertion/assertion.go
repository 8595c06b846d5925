package assertion

import (
	"fmt"
	"strings"

	"github.com/biothings/trapi-testing-tools/internal/trapi"
)

// Assertion is a named predicate over a response and its log stream.
// Implementations must not modify resp or logs.
type Assertion interface {
	Name() string
	Check(resp *trapi.Response, logs []trapi.LogEntry) Result
}

// Result is the raw outcome of one Check.
type Result struct {
	Pass bool
	// Actual is the observed value, when one makes sense.
	Actual string
	// Message explains a failure, or adds a note to a pass.
	Message string
}

func pass(actual string) Result {
	return Result{Pass: true, Actual: actual}
}

func passf(actual, format string, args ...any) Result {
	return Result{Pass: true, Actual: actual, Message: fmt.Sprintf(format, args...)}
}

func failf(actual, format string, args ...any) Result {
	return Result{Pass: false, Actual: actual, Message: fmt.Sprintf(format, args...)}
}

// Outcome is one line of a Report.
type Outcome struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Actual  string `json:"actual,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report holds the outcomes of one evaluation in declaration order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Passed reports whether every outcome passed. An empty report passes.
func (r Report) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.Pass {
			return false
		}
	}
	return true
}

// Failures returns the failing outcomes in order.
func (r Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Pass {
			failed = append(failed, o)
		}
	}
	return failed
}

// FailureNames returns the names of failing assertions.
func (r Report) FailureNames() []string {
	var names []string
	for _, o := range r.Failures() {
		names = append(names, o.Name)
	}
	return names
}

// Summary renders "passed/total assertions passed".
func (r Report) Summary() string {
	passed := len(r.Outcomes) - len(r.Failures())
	return fmt.Sprintf("%d/%d assertions passed", passed, len(r.Outcomes))
}

// String renders one line per outcome.
func (r Report) String() string {
	var b strings.Builder
	for _, o := range r.Outcomes {
		mark := "PASS"
		if !o.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s", mark, o.Name)
		if o.Message != "" {
			fmt.Fprintf(&b, ": %s", o.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Func adapts a plain function into an Assertion.
type Func struct {
	Label string
	Fn    func(resp *trapi.Response, logs []trapi.LogEntry) Result
}

func (f Func) Name() string { return f.Label }

func (f Func) Check(resp *trapi.Response, logs []trapi.LogEntry) Result {
	return f.Fn(resp, logs)
}
