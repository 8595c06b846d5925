package assertion

import (
	"fmt"

	"github.com/biothings/trapi-testing-tools/internal/trapi"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// Evaluate runs every assertion against resp and logs, in order. Each runs
// regardless of earlier failures; a panicking assertion is recorded as a
// failure and evaluation continues.
func Evaluate(assertions []Assertion, resp *trapi.Response, logs []trapi.LogEntry) Report {
	report := Report{Outcomes: make([]Outcome, 0, len(assertions))}
	for _, a := range assertions {
		report.Outcomes = append(report.Outcomes, evaluateSingle(a, resp, logs))
	}
	return report
}

func evaluateSingle(a Assertion, resp *trapi.Response, logs []trapi.LogEntry) (outcome Outcome) {
	name := nameOf(a)
	outcome.Name = name

	defer func() {
		if r := recover(); r != nil {
			logging.Debug("Assertions", "Assertion %s panicked: %v", name, r)
			outcome = Outcome{
				Name:    name,
				Pass:    false,
				Message: fmt.Sprintf("assertion could not interpret the response: %v", r),
			}
		}
	}()

	if a == nil {
		return Outcome{Name: name, Pass: false, Message: "nil assertion"}
	}

	res := a.Check(resp, logs)
	return Outcome{Name: name, Pass: res.Pass, Actual: res.Actual, Message: res.Message}
}

func nameOf(a Assertion) (name string) {
	defer func() {
		if recover() != nil {
			name = "<unnamed>"
		}
	}()
	if a == nil {
		return "<nil>"
	}
	return a.Name()
}
