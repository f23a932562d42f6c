// Package metrics records connector run outcomes as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SomeAverageDev/konnectors/internal/models"
)

// OutcomeSuccess labels runs without a fatal error. Failed runs are labelled
// with their error kind.
const OutcomeSuccess = "success"

// Recorder holds the run collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	bills    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them on a private
// registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "konnectors_runs_total",
				Help: "How many connector runs finished, partitioned by vendor and outcome.",
			},
			[]string{"vendor", "outcome"},
		),
		bills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "konnectors_bills_total",
				Help: "Bills seen by connector runs, partitioned by vendor and state.",
			},
			[]string{"vendor", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "konnectors_run_duration_seconds",
				Help:    "Connector run latencies in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"vendor"},
		),
	}

	for _, c := range []prometheus.Collector{r.runs, r.bills, r.duration} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("could not register %s with Prometheus: %w", c, err)
		}
	}
	return r, nil
}

// Gatherer exposes the registry, e.g. for promhttp.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(result models.RunResult) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if !result.Succeeded() {
		outcome = result.ErrorKind
		if outcome == "" {
			outcome = "unknown"
		}
	}

	r.runs.WithLabelValues(result.Vendor, outcome).Inc()
	r.bills.WithLabelValues(result.Vendor, "accepted").Add(float64(result.AcceptedCount))
	r.bills.WithLabelValues(result.Vendor, "filtered").Add(float64(result.FilteredCount))
	r.bills.WithLabelValues(result.Vendor, "linked").Add(float64(result.LinkedCount))
	if !result.StartedAt.IsZero() && !result.FinishedAt.IsZero() {
		r.duration.WithLabelValues(result.Vendor).Observe(result.Duration().Seconds())
	}
}

// WriteTextfile dumps the current values in the node_exporter textfile
// format. Batch runs started from cron use it instead of a scrape endpoint.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
