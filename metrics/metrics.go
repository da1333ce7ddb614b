// Package metrics exposes Prometheus collectors for the limiter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors fed by the limiter. It
// implements the limiter's MetricsRecorder interface.
//
// Counters are labeled by result only, never by client: with one
// series per client address the cardinality would grow with the
// traffic. Per-client numbers live in the stats package instead.
type Metrics struct {
	checks        *prometheus.CounterVec
	unidentified  prometheus.Counter
	windowClients prometheus.Gauge
	checkDuration prometheus.Histogram
}

// New creates a Metrics instance registered with the default
// Prometheus registry. Call it once per process.
func New() *Metrics {
	return &Metrics{
		checks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratefence_admission_checks_total",
				Help: "Total number of admission checks performed",
			},
			[]string{"result"},
		),

		unidentified: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ratefence_unidentified_clients_total",
				Help: "Total number of requests with no derivable client identity",
			},
		),

		windowClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ratefence_window_clients",
				Help: "Distinct clients counted in the current window",
			},
		),

		checkDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ratefence_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}
}

// RecordCheck records one admission check and its latency.
func (m *Metrics) RecordCheck(allowed bool, elapsed time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.checks.WithLabelValues(result).Inc()
	m.checkDuration.Observe(elapsed.Seconds())
}

// RecordUnidentified records a request that could not be attributed to
// any client.
func (m *Metrics) RecordUnidentified() {
	m.unidentified.Inc()
}

// SetWindowClients updates the current-window client gauge.
func (m *Metrics) SetWindowClients(n int) {
	m.windowClients.Set(float64(n))
}
