package suite

import (
	"fmt"
	"strings"
	"time"

	"github.com/netcheck-network/netcheck/pkg/binding"
	"github.com/netcheck-network/netcheck/pkg/session"
)

// StepResult is one step's outcome. Exactly the fields matching the action
// are set; Err carries infrastructure errors, never assertion mismatches.
type StepResult struct {
	Step    string
	Device  string
	Action  string
	Skipped bool
	Err     error

	Response  *session.RawResponse
	Assertion *binding.AssertionResult
	ForEach   *binding.ForEachResult
	CrossRef  *binding.CrossRefResult
}

// Failed reports whether the step counts against the run: an infrastructure
// error, a failed assertion, cross-reference mismatches, or failed for-each
// elements.
func (sr *StepResult) Failed() bool {
	if sr.Err != nil {
		return true
	}
	if sr.Assertion != nil && !sr.Assertion.Passed {
		return true
	}
	if sr.CrossRef != nil && !sr.CrossRef.OK() {
		return true
	}
	if sr.ForEach != nil && len(sr.ForEach.Failed()) > 0 {
		return true
	}
	return false
}

// Report is the outcome of one suite run.
type Report struct {
	Suite    string
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
}

// Failures returns the failed steps.
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, sr := range r.Steps {
		if sr.Failed() {
			out = append(out, sr)
		}
	}
	return out
}

// OK reports whether every step passed.
func (r *Report) OK() bool { return len(r.Failures()) == 0 }

// Summary renders a human-readable run summary with evidence for each
// failure.
func (r *Report) Summary() string {
	var b strings.Builder
	failures := r.Failures()
	fmt.Fprintf(&b, "suite %s: %d steps, %d failed (%.1fs)\n",
		r.Suite, len(r.Steps), len(failures), r.Finished.Sub(r.Started).Seconds())

	for _, sr := range r.Steps {
		status := "pass"
		switch {
		case sr.Skipped:
			status = "skip"
		case sr.Failed():
			status = "FAIL"
		}
		device := sr.Device
		if device == "" {
			device = "-"
		}
		fmt.Fprintf(&b, "  [%s] %-12s %s\n", status, device, sr.Step)

		if sr.Err != nil {
			fmt.Fprintf(&b, "         %v\n", sr.Err)
		}
		if sr.Assertion != nil && !sr.Assertion.Passed {
			fmt.Fprintf(&b, "         %s: %s\n", sr.Assertion.Schema, sr.Assertion.Evidence)
			if sr.Response != nil {
				fmt.Fprintf(&b, "         command: %s\n", sr.Response.Command)
			}
		}
		if sr.CrossRef != nil {
			for _, m := range sr.CrossRef.Mismatches {
				fmt.Fprintf(&b, "         %s\n", m)
			}
		}
		if sr.ForEach != nil {
			for _, e := range sr.ForEach.Failed() {
				fmt.Fprintf(&b, "         %s: %v\n", e.Value, e.Err)
			}
		}
	}
	return b.String()
}
