// Package metrics exposes Prometheus instruments for pipeline passes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racefeed"

// Metrics holds the instruments registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	passes          *prometheus.CounterVec
	groups          *prometheus.CounterVec
	passDuration    prometheus.Histogram
	rowstoreRetries *prometheus.CounterVec
	lastPass        prometheus.Gauge
}

// New registers the instruments on a fresh registry. Go runtime and process
// collectors are included so /metrics is useful on its own.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Pipeline passes by result.",
		}, []string{"result"}),
		groups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Submission groups processed by outcome.",
		}, []string{"outcome"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a pipeline pass.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}),
		rowstoreRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rowstore_retries_total",
			Help:      "Retried row store operations by kind.",
		}, []string{"op"}),
		lastPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last pass finished.",
		}),
	}
}

// ObservePass records a finished pass.
func (m *Metrics) ObservePass(result string, duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.Observe(duration.Seconds())
	m.lastPass.Set(float64(finished.Unix()))
}

// ObserveGroup counts one group outcome.
func (m *Metrics) ObserveGroup(outcome string) {
	if m == nil {
		return
	}
	m.groups.WithLabelValues(outcome).Inc()
}

// RowstoreRetry counts one retried row store operation. It matches the
// rowstore.Options.OnRetry hook.
func (m *Metrics) RowstoreRetry(op string) {
	if m == nil {
		return
	}
	m.rowstoreRetries.WithLabelValues(op).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
