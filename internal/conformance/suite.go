// Package conformance runs the Content Cloud listing checks against an
// endpoint and collects a structured Report.
//
// Checks run one after another, never concurrently. A failing check aborts
// only itself; checks that inspect the listing body are reported as blocked
// when the aggregation check did not pass.
package conformance

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/gauthierbraillon/ccconform/internal/aggregator"
	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
	"github.com/gauthierbraillon/ccconform/internal/rules"
)

// Requester is the subset of contentcloud.Client the checks use.
type Requester interface {
	Get(ctx context.Context, url string, auth contentcloud.Auth) (*contentcloud.Response, error)
	aggregator.PageFetcher
}

// Env is shared by the checks of one run. Contents is written once by the
// aggregation check and only read afterwards.
type Env struct {
	Client             Requester
	BaseURL            string
	Token              string
	RequestTimeout     time.Duration
	AggregationTimeout time.Duration
	MaxPages           int
	Sanitizer          *rules.Sanitizer
	Logger             zerolog.Logger

	Contents *aggregator.ResultSet
}

// Check is one independent conformance assertion.
type Check struct {
	ID    string
	Name  string
	Group string
	// Timeout returns the deadline for the check; zero means none.
	Timeout func(env *Env) time.Duration
	// Requires names the check that must pass before this one can run.
	Requires string
	Run      func(ctx context.Context, env *Env, res *Result) error
}

// Suite is an ordered list of checks bound to an Env.
type Suite struct {
	env    *Env
	checks []Check
}

// NewSuite binds checks to env. With no checks, DefaultChecks is used.
func NewSuite(env *Env, checks ...Check) *Suite {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	if env.Sanitizer == nil {
		env.Sanitizer = rules.NewSanitizer()
	}
	return &Suite{env: env, checks: checks}
}

// Checks returns the checks in execution order.
func (s *Suite) Checks() []Check {
	out := make([]Check, len(s.checks))
	copy(out, s.checks)
	return out
}

// Run executes every check in order and returns the report. A cancelled
// ctx makes the remaining checks report errors instead of stopping the run.
func (s *Suite) Run(ctx context.Context) *Report {
	report := &Report{Endpoint: s.env.BaseURL, StartedAt: time.Now()}
	outcomes := make(map[string]Outcome, len(s.checks))

	for _, check := range s.checks {
		res := s.runCheck(ctx, check, outcomes)
		outcomes[check.ID] = res.Outcome
		report.Results = append(report.Results, res)

		event := s.env.Logger.Info()
		if res.Outcome != OutcomePass {
			event = s.env.Logger.Warn()
		}
		event.Str("check", check.ID).
			Str("outcome", string(res.Outcome)).
			Dur("duration", res.Duration).
			Str("message", res.Message).
			Msg("check finished")
	}

	report.Duration = time.Since(report.StartedAt)
	report.summarize()
	return report
}

func (s *Suite) runCheck(ctx context.Context, check Check, outcomes map[string]Outcome) Result {
	res := Result{ID: check.ID, Name: check.Name, Group: check.Group}

	if check.Requires != "" && outcomes[check.Requires] != OutcomePass {
		classify(&res, &blockedError{prerequisite: check.Requires})
		return res
	}

	checkCtx := ctx
	if check.Timeout != nil {
		if d := check.Timeout(s.env); d > 0 {
			var cancel context.CancelFunc
			checkCtx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	start := time.Now()
	err := check.Run(checkCtx, s.env, &res)
	res.Duration = time.Since(start)

	classify(&res, err)
	return res
}

// classify maps an error returned by a check to its outcome.
func classify(res *Result, err error) {
	var (
		assertion  *AssertionError
		violations *ViolationsError
		status     *contentcloud.StatusError
		blocked    *blockedError
	)

	switch {
	case err == nil:
		res.Outcome = OutcomePass
		return
	case errors.As(err, &blocked):
		res.Outcome = OutcomeBlocked
	case errors.Is(err, contentcloud.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		res.Outcome = OutcomeTimeout
	case errors.As(err, &assertion):
		res.Outcome = OutcomeFail
		res.Expected = assertion.Expected
		res.Actual = assertion.Actual
	case errors.As(err, &violations):
		res.Outcome = OutcomeFail
		res.Violations = violations.Violations
	case errors.As(err, &status):
		res.Outcome = OutcomeFail
		res.Expected = statusText(status.Expected)
		res.Actual = statusText(status.Actual)
	case errors.Is(err, contentcloud.ErrNotArray), errors.Is(err, contentcloud.ErrDecode), errors.Is(err, aggregator.ErrPageLimit):
		res.Outcome = OutcomeFail
	default:
		res.Outcome = OutcomeError
	}

	res.Message = err.Error()
}
