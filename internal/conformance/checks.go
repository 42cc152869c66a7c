package conformance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gauthierbraillon/ccconform/internal/aggregator"
	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
	"github.com/gauthierbraillon/ccconform/internal/rules"
)

// Check identifiers.
const (
	CheckTimeout        = "timeout"
	CheckMissingToken   = "auth-missing-token"
	CheckValidToken     = "auth-valid-token"
	CheckMalformedToken = "auth-malformed-token"
	CheckEmptyToken     = "auth-empty-token"
	CheckContentType    = "content-type"
	CheckContents       = "contents"
	CheckRequiredFields = "required-fields"
	CheckFieldLengths   = "field-lengths"
	CheckEnumerations   = "enumerations"
	CheckURLs           = "urls"
	CheckDisallowedHTML = "disallowed-html"
)

const (
	groupConnectivity   = "Basic connectivity and security"
	groupAuthentication = "Authentication"
	groupContentType    = "Content type validation"
	groupBodyValidation = "Response body data validation"

	// malformedBearer has the shape of a JWT but is not one.
	malformedBearer = "123.123.123"
)

// DefaultChecks returns the full battery in execution order.
func DefaultChecks() []Check {
	return []Check{
		{
			ID:      CheckTimeout,
			Name:    "MUST not timeout",
			Group:   groupConnectivity,
			Timeout: requestTimeout,
			Run:     runTimeout,
		},
		{
			ID:      CheckMissingToken,
			Name:    "SHOULD reject missing token",
			Group:   groupConnectivity,
			Timeout: requestTimeout,
			Run:     expectStatusWith(contentcloud.NoAuth, http.StatusUnauthorized),
		},
		{
			ID:      CheckValidToken,
			Name:    "SHOULD accept a JWT via Authorization Header",
			Group:   groupAuthentication,
			Timeout: requestTimeout,
			Run: func(ctx context.Context, env *Env, res *Result) error {
				return expectStatusWith(func() contentcloud.Auth { return contentcloud.Bearer(env.Token) }, http.StatusOK)(ctx, env, res)
			},
		},
		{
			ID:      CheckMalformedToken,
			Name:    "MUST not accept a bad JWT via Authorization Header",
			Group:   groupAuthentication,
			Timeout: requestTimeout,
			Run:     expectStatusWith(func() contentcloud.Auth { return contentcloud.Bearer(malformedBearer) }, http.StatusUnauthorized),
		},
		{
			ID:      CheckEmptyToken,
			Name:    "MUST not accept a malformed Authorization Header",
			Group:   groupAuthentication,
			Timeout: requestTimeout,
			Run:     expectStatusWith(func() contentcloud.Auth { return contentcloud.Bearer("") }, http.StatusUnauthorized),
		},
		{
			ID:      CheckContentType,
			Name:    "MUST return a specific Content-Type response header",
			Group:   groupContentType,
			Timeout: requestTimeout,
			Run:     runContentType,
		},
		{
			ID:      CheckContents,
			Name:    "MUST return the entire contents",
			Group:   groupBodyValidation,
			Timeout: func(env *Env) time.Duration { return env.AggregationTimeout },
			Run:     runContents,
		},
		{
			ID:       CheckRequiredFields,
			Name:     "MUST return all required JSON elements and not be empty",
			Group:    groupBodyValidation,
			Requires: CheckContents,
			Run:      ruleCheck("required fields", rules.Presence),
		},
		{
			ID:       CheckFieldLengths,
			Name:     "MUST have not too long strings",
			Group:    groupBodyValidation,
			Requires: CheckContents,
			Run:      ruleCheck("field lengths", rules.Lengths),
		},
		{
			ID:       CheckEnumerations,
			Name:     "MUST have correct enumerations",
			Group:    groupBodyValidation,
			Requires: CheckContents,
			Run:      ruleCheck("enumerations", rules.Enumerations),
		},
		{
			ID:       CheckURLs,
			Name:     "MUST have properly formatted URLs",
			Group:    groupBodyValidation,
			Requires: CheckContents,
			Run:      ruleCheck("urls", rules.URLs),
		},
		{
			ID:       CheckDisallowedHTML,
			Name:     "SHOULD NOT have disallowed HTML tags",
			Group:    groupBodyValidation,
			Requires: CheckContents,
			Run:      runDisallowedHTML,
		},
	}
}

func requestTimeout(env *Env) time.Duration {
	return env.RequestTimeout
}

// runTimeout only asserts the request completes; any status is accepted.
func runTimeout(ctx context.Context, env *Env, res *Result) error {
	resp, err := env.Client.Get(ctx, env.BaseURL, contentcloud.NoAuth())
	if err != nil {
		return err
	}
	res.Message = fmt.Sprintf("completed in %s with status %d", resp.Duration.Round(time.Millisecond), resp.StatusCode)
	return nil
}

func expectStatusWith(auth func() contentcloud.Auth, want int) func(context.Context, *Env, *Result) error {
	return func(ctx context.Context, env *Env, res *Result) error {
		resp, err := env.Client.Get(ctx, env.BaseURL, auth())
		if err != nil {
			return err
		}
		return expectStatus(resp, want)
	}
}

func expectStatus(resp *contentcloud.Response, want int) error {
	if resp.StatusCode != want {
		return &AssertionError{
			Subject:  "status code",
			Expected: statusText(want),
			Actual:   statusText(resp.StatusCode),
		}
	}
	return nil
}

func runContentType(ctx context.Context, env *Env, res *Result) error {
	resp, err := env.Client.Get(ctx, env.BaseURL, contentcloud.Bearer(env.Token))
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if got := resp.ContentType(); got != contentcloud.ResponseContentType {
		return &AssertionError{
			Subject:  "Content-Type header",
			Expected: strconv.Quote(contentcloud.ResponseContentType),
			Actual:   strconv.Quote(got),
		}
	}
	return nil
}

func runContents(ctx context.Context, env *Env, res *Result) error {
	set, err := aggregator.Collect(ctx, env.Client, env.BaseURL, env.Token, aggregator.Options{MaxPages: env.MaxPages})
	if err != nil {
		return err
	}
	env.Contents = set
	res.Message = fmt.Sprintf("collected %d records across %d pages", set.Len(), len(set.Pages()))
	return nil
}

func ruleCheck(name string, rule func([]contentcloud.Record) []rules.Violation) func(context.Context, *Env, *Result) error {
	return func(_ context.Context, env *Env, res *Result) error {
		records := env.Contents.Records()
		if violations := rule(records); len(violations) > 0 {
			return &ViolationsError{Rule: name, Violations: violations}
		}
		res.Message = fmt.Sprintf("%d records checked", len(records))
		return nil
	}
}

// runDisallowedHTML is advisory: divergences become warnings, never failures.
func runDisallowedHTML(_ context.Context, env *Env, res *Result) error {
	records := env.Contents.Records()
	for _, d := range env.Sanitizer.Check(records) {
		env.Logger.Warn().
			Str("record_id", d.RecordID).
			Int("index", d.Index).
			Str("original", d.Original).
			Str("sanitized", d.Sanitized).
			Msg("disallowed HTML in description")
		res.Warnings = append(res.Warnings, fmt.Sprintf("record %s: disallowed HTML in description: original %q, sanitized %q", d.RecordID, d.Original, d.Sanitized))
	}
	res.Message = fmt.Sprintf("%d records checked, %d with disallowed HTML", len(records), len(res.Warnings))
	return nil
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
