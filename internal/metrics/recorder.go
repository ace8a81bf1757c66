// Package metrics records batch run statistics in a private Prometheus
// registry and dumps them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "assaycore"

// Recorder publishes stage outcomes, table sizes and status distributions.
// A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
	rows     *prometheus.GaugeVec
	statuses *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

// NewRecorder constructs a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Pipeline stage outcomes.",
		}, []string{"stage", "result"}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows per input or output table of the last run.",
		}, []string{"table"}),
		statuses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status_entities",
			Help:      "Entities per final status and aggregation level.",
		}, []string{"level", "status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.duration, r.results, r.rows, r.statuses, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Observe records one stage outcome.
func (r *Recorder) Observe(stage string, success bool, duration time.Duration) {
	if r == nil || stage == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	r.duration.WithLabelValues(stage).Observe(duration.Seconds())
	r.results.WithLabelValues(stage, result).Inc()
}

// Rows sets the row count of table.
func (r *Recorder) Rows(table string, n int) {
	if r == nil {
		return
	}
	r.rows.WithLabelValues(table).Set(float64(n))
}

// Statuses replaces the distribution of level with counts.
func (r *Recorder) Statuses(level string, counts map[string]int) {
	if r == nil {
		return
	}
	r.statuses.DeletePartialMatch(prometheus.Labels{"level": level})
	for status, n := range counts {
		r.statuses.WithLabelValues(level, status).Set(float64(n))
	}
}

// Finished stamps the completion time of a run.
func (r *Recorder) Finished(at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the registry to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
