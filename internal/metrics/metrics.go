// Package metrics exports the outcome of a conformance run as Prometheus
// metrics, written in the textfile format the node_exporter collector reads.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gauthierbraillon/ccconform/internal/conformance"
)

const namespace = "ccconform"

// Recorder holds the gauges of one run on a private registry.
// Labels carry check IDs only; record IDs never become labels.
type Recorder struct {
	registry *prometheus.Registry

	CheckOutcome    *prometheus.GaugeVec
	CheckDuration   *prometheus.GaugeVec
	CheckViolations *prometheus.GaugeVec
	CheckWarnings   *prometheus.GaugeVec
	RunPassed       prometheus.Gauge
	RunTimestamp    prometheus.Gauge
	RunDuration     prometheus.Gauge
}

// NewRecorder registers every gauge on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		CheckOutcome: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_outcome",
			Help:      "1 for the outcome each check reported in the last run, by check and outcome.",
		}, []string{"check", "outcome"}),
		CheckDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Wall time each check took in the last run.",
		}, []string{"check"}),
		CheckViolations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_violations",
			Help:      "Record-level rule violations found by each check.",
		}, []string{"check"}),
		CheckWarnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "check_warnings",
			Help:      "Advisory warnings raised by each check.",
		}, []string{"check"}),
		RunPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_passed",
			Help:      "1 when every check of the last run passed.",
		}),
		RunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	r.registry.MustRegister(
		r.CheckOutcome,
		r.CheckDuration,
		r.CheckViolations,
		r.CheckWarnings,
		r.RunPassed,
		r.RunTimestamp,
		r.RunDuration,
	)

	return r
}

// Observe records report. Outcomes a check did not report are set to 0 so
// every series stays present across runs.
func (r *Recorder) Observe(report *conformance.Report) {
	outcomes := []conformance.Outcome{
		conformance.OutcomePass,
		conformance.OutcomeFail,
		conformance.OutcomeTimeout,
		conformance.OutcomeBlocked,
		conformance.OutcomeError,
	}

	for _, res := range report.Results {
		for _, o := range outcomes {
			v := 0.0
			if res.Outcome == o {
				v = 1
			}
			r.CheckOutcome.WithLabelValues(res.ID, string(o)).Set(v)
		}
		r.CheckDuration.WithLabelValues(res.ID).Set(res.Duration.Seconds())
		r.CheckViolations.WithLabelValues(res.ID).Set(float64(len(res.Violations)))
		r.CheckWarnings.WithLabelValues(res.ID).Set(float64(len(res.Warnings)))
	}

	passed := 0.0
	if report.Passed() {
		passed = 1
	}
	r.RunPassed.Set(passed)
	r.RunTimestamp.Set(float64(report.StartedAt.Unix()))
	r.RunDuration.Set(report.Duration.Seconds())
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
