// Package display renders conformance reports for the terminal.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/gauthierbraillon/ccconform/internal/conformance"
)

const (
	separator = " • "

	// MaxViolations caps the violations listed per check.
	MaxViolations = 50
	// MaxValueLen caps quoted values inside warnings and violations.
	MaxValueLen = 120
)

var markers = map[conformance.Outcome]string{
	conformance.OutcomePass:    "PASS",
	conformance.OutcomeFail:    "FAIL",
	conformance.OutcomeTimeout: "TIME",
	conformance.OutcomeBlocked: "SKIP",
	conformance.OutcomeError:   "ERR ",
}

// TerminalFormatter formats reports as plain text.
type TerminalFormatter struct{}

// NewTerminalFormatter creates a new terminal formatter.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{}
}

// FormatResult formats a single check result.
func (f *TerminalFormatter) FormatResult(res conformance.Result) string {
	var lines []string

	// [PASS] Name • 12ms
	header := fmt.Sprintf("[%s] %s%s%s", markers[res.Outcome], res.Name, separator, f.FormatDuration(res.Duration))
	lines = append(lines, header)

	if res.Message != "" {
		lines = append(lines, "  "+res.Message)
	}
	if res.Expected != "" || res.Actual != "" {
		lines = append(lines, fmt.Sprintf("  expected: %s", res.Expected))
		lines = append(lines, fmt.Sprintf("  actual:   %s", res.Actual))
	}

	for i, v := range res.Violations {
		if i == MaxViolations {
			lines = append(lines, fmt.Sprintf("  ... and %d more violations", len(res.Violations)-MaxViolations))
			break
		}
		lines = append(lines, "  - "+f.TruncateText(v.String(), 2*MaxValueLen))
	}

	for _, w := range res.Warnings {
		lines = append(lines, "  ! "+f.TruncateText(w, 2*MaxValueLen))
	}

	return strings.Join(lines, "\n") + "\n"
}

// FormatReport formats every result grouped as they ran, followed by a summary.
func (f *TerminalFormatter) FormatReport(report *conformance.Report) string {
	if len(report.Results) == 0 {
		return "No checks were run.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Endpoint: %s\n", report.Endpoint)

	group := ""
	for _, res := range report.Results {
		if res.Group != group {
			group = res.Group
			fmt.Fprintf(&b, "\n%s\n", group)
		}
		b.WriteString(f.FormatResult(res))
	}

	b.WriteString("\n")
	b.WriteString(f.FormatSummary(report))
	return b.String()
}

// FormatSummary renders the outcome counts on one line.
func (f *TerminalFormatter) FormatSummary(report *conformance.Report) string {
	s := report.Summary
	parts := []string{fmt.Sprintf("%d passed", s.Passed)}

	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("%d timed out", s.Timeout))
	}
	if s.Blocked > 0 {
		parts = append(parts, fmt.Sprintf("%d blocked", s.Blocked))
	}
	if s.Errored > 0 {
		parts = append(parts, fmt.Sprintf("%d errored", s.Errored))
	}
	if s.Warned > 0 {
		parts = append(parts, pluralize(s.Warned, "warning"))
	}

	verdict := "PASSED"
	if !report.Passed() {
		verdict = "FAILED"
	}

	return fmt.Sprintf("%s: %s of %d checks%s%s\n", verdict, strings.Join(parts, separator), s.Total, separator, f.FormatDuration(report.Duration))
}

// FormatDuration formats a duration with a precision that suits its size.
func (f *TerminalFormatter) FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
