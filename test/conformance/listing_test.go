//go:build conformance

package conformance

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gauthierbraillon/ccconform/internal/conformance"
	"github.com/gauthierbraillon/ccconform/internal/log"
)

// groups splits checks by Group, keeping both in execution order.
func groups(checks []conformance.Check) ([]string, map[string][]conformance.Check) {
	var order []string
	byGroup := make(map[string][]conformance.Check)
	for _, c := range checks {
		if _, ok := byGroup[c.Group]; !ok {
			order = append(order, c.Group)
		}
		byGroup[c.Group] = append(byGroup[c.Group], c)
	}
	return order, byGroup
}

func describe(res conformance.Result) string {
	var b strings.Builder
	b.WriteString(res.Message)
	if res.Expected != "" || res.Actual != "" {
		b.WriteString("\nexpected: " + res.Expected + "\nactual:   " + res.Actual)
	}
	for _, v := range res.Violations {
		b.WriteString("\n  " + v.String())
	}
	return b.String()
}

var _ = Describe("Content Cloud listing", Ordered, func() {
	results := make(map[string]conformance.Result)

	BeforeAll(func() {
		report := conformance.NewSuite(&conformance.Env{
			Client:             client,
			BaseURL:            cfg.Endpoint,
			Token:              bearer,
			RequestTimeout:     cfg.RequestTimeout,
			AggregationTimeout: cfg.AggregationTimeout,
			MaxPages:           cfg.MaxPages,
			Logger:             log.WithComponent(logger, "suite"),
		}).Run(context.Background())

		for _, res := range report.Results {
			results[res.ID] = res
		}
	})

	order, byGroup := groups(conformance.DefaultChecks())
	for _, group := range order {
		Describe(group, func() {
			for _, check := range byGroup[group] {
				It(check.Name, func() {
					res, ok := results[check.ID]
					Expect(ok).To(BeTrue(), "check %s should have run", check.ID)

					if res.Outcome == conformance.OutcomeBlocked {
						Skip(res.Message)
					}
					for _, w := range res.Warnings {
						AddReportEntry("warning", w)
						GinkgoWriter.Println("WARNING:", w)
					}
					Expect(res.Outcome).To(Equal(conformance.OutcomePass), describe(res))
				})
			}
		})
	}
})
