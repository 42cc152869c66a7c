package conformance

import (
	"fmt"
	"time"

	"github.com/gauthierbraillon/ccconform/internal/rules"
)

// Outcome is the verdict of one check.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeFail    Outcome = "fail"
	OutcomeTimeout Outcome = "timeout"
	OutcomeBlocked Outcome = "blocked"
	OutcomeError   Outcome = "error"
)

// Result is the structured verdict of a single check.
type Result struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Group      string            `json:"group"`
	Outcome    Outcome           `json:"outcome"`
	Message    string            `json:"message,omitempty"`
	Expected   string            `json:"expected,omitempty"`
	Actual     string            `json:"actual,omitempty"`
	Violations []rules.Violation `json:"violations,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Duration   time.Duration     `json:"duration_ns"`
}

// Summary counts results per outcome.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Timeout int `json:"timeout"`
	Blocked int `json:"blocked"`
	Errored int `json:"errored"`
	Warned  int `json:"warned"`
}

// Report is the outcome of a whole run, in check order.
type Report struct {
	Endpoint  string        `json:"endpoint"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Results   []Result      `json:"results"`
	Summary   Summary       `json:"summary"`
}

// Passed is true when every check passed. Advisory warnings do not count.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if res.Outcome != OutcomePass {
			return false
		}
	}
	return true
}

func (r *Report) summarize() {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomePass:
			s.Passed++
		case OutcomeFail:
			s.Failed++
		case OutcomeTimeout:
			s.Timeout++
		case OutcomeBlocked:
			s.Blocked++
		case OutcomeError:
			s.Errored++
		}
		if len(res.Warnings) > 0 {
			s.Warned++
		}
	}
	r.Summary = s
}

// AssertionError is an expected value mismatch.
type AssertionError struct {
	Subject  string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Subject, e.Expected, e.Actual)
}

// ViolationsError carries every record-level rule violation of a check.
type ViolationsError struct {
	Rule       string
	Violations []rules.Violation
}

func (e *ViolationsError) Error() string {
	records := make(map[int]struct{})
	for _, v := range e.Violations {
		records[v.Index] = struct{}{}
	}
	return fmt.Sprintf("%s: %d violations in %d records", e.Rule, len(e.Violations), len(records))
}

// blockedError marks a check whose prerequisite did not pass.
type blockedError struct {
	prerequisite string
}

func (e *blockedError) Error() string {
	return fmt.Sprintf("blocked: requires %q to pass", e.prerequisite)
}
