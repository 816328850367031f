// Package metrics exposes Prometheus metrics for hexstat runs.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tingold/hexstat"
)

// Collector bundles the run metrics. It implements hexstat.Observer so an
// Aggregator can drive the per-cell counters directly.
type Collector struct {
	gatherer prometheus.Gatherer

	Cells       *prometheus.CounterVec
	Candidates  prometheus.Gauge
	Results     prometheus.Gauge
	RunDuration prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice on the same registry returns the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	cells, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexstat_cells_total",
		Help: "Candidate cells processed, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	candidates, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hexstat_candidate_cells",
		Help: "Candidate cells produced by coverage in the last run.",
	}))
	if err != nil {
		return nil, err
	}
	results, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hexstat_results",
		Help: "Results emitted by the last run.",
	}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hexstat_run_duration_seconds",
		Help:    "Wall time of a full run in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:    gatherer,
		Cells:       cells,
		Candidates:  candidates,
		Results:     results,
		RunDuration: duration,
	}, nil
}

// ObserveCell counts one candidate cell.
func (c *Collector) ObserveCell(o hexstat.Outcome) {
	if c == nil || c.Cells == nil {
		return
	}
	c.Cells.WithLabelValues(string(o)).Inc()
}

// ObserveReport records the totals of a finished run.
func (c *Collector) ObserveReport(r *hexstat.Report) {
	if c == nil || r == nil {
		return
	}
	c.Candidates.Set(float64(r.Cells))
	c.Results.Set(float64(len(r.Results)))
	c.RunDuration.Observe(r.Duration.Seconds())
}

// ObserveDuration records a run duration without a report, e.g. after a
// failed run.
func (c *Collector) ObserveDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}

// Handler exposes a /metrics handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteFile dumps the collector's registry in the text exposition format,
// suitable for the node_exporter textfile collector.
func (c *Collector) WriteFile(path string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", path, err)
	}
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("metrics: collector already registered with incompatible type: %v", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
