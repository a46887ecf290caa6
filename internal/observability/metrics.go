// Package observability keeps the per-run counters of a feed build and
// exports them in the Prometheus text format.
package observability

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all linkfeed metrics.
	MetricsNamespace = "linkfeed"
)

// Fetch outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
)

// Metrics tracks the counters of one run in a private registry.
type Metrics struct {
	LinksCollected prometheus.Counter
	ItemsEmitted   prometheus.Counter
	ItemsDropped   *prometheus.CounterVec
	Fetches        *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	LastRun        prometheus.Gauge

	registry *prometheus.Registry
	start    time.Time
	logger   *slog.Logger
}

// NewMetrics creates and registers all run metrics.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		start:    time.Now(),
		logger:   logger.With("component", "metrics"),
	}

	m.LinksCollected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "links_collected_total",
		Help:      "Links accepted from the start pages",
	})
	m.ItemsEmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "items_emitted_total",
		Help:      "Feed items written",
	})
	m.ItemsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "items_dropped_total",
		Help:      "Links that produced no feed item, by reason",
	}, []string{"reason"})
	m.Fetches = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "fetches_total",
		Help:      "Page downloads, by outcome",
	}, []string{"outcome"})
	m.RunDuration = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last run",
	})
	m.LastRun = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	return m
}

// Dropped counts one link that produced no item.
func (m *Metrics) Dropped(reason string) {
	m.ItemsDropped.WithLabelValues(reason).Inc()
}

// Fetched counts one download by outcome.
func (m *Metrics) Fetched(outcome string) {
	m.Fetches.WithLabelValues(outcome).Inc()
}

// Finish records the run duration and completion time.
func (m *Metrics) Finish() {
	now := time.Now()
	m.RunDuration.Set(now.Sub(m.start).Seconds())
	m.LastRun.Set(float64(now.Unix()))
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the format read by the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	m.logger.Debug("metrics written", "path", path)
	return nil
}

// Snapshot returns the counter values keyed by metric name and labels.
func (m *Metrics) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	families, err := m.registry.Gather()
	if err != nil {
		m.logger.Warn("gathering metrics failed", "error", err)
		return out
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range metric.GetLabel() {
				key += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[key] = metric.GetGauge().GetValue()
			}
		}
	}
	return out
}
