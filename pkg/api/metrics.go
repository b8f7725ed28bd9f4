package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on a per-server registry so several servers can
// live in one process.
type metrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	inflight prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dnsq_lookup_duration_seconds",
				Help:    "Time taken to answer a lookup request",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"path"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dnsq_lookups_total",
				Help: "Lookup requests by path and envelope code",
			},
			[]string{"path", "code"},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dnsq_lookups_in_flight",
				Help: "Lookups waiting on an upstream DNS server",
			},
		),
	}
	m.registry.MustRegister(m.duration, m.total, m.inflight)
	return m
}

func (m *metrics) observe(path, code string, elapsed time.Duration) {
	m.duration.WithLabelValues(path).Observe(elapsed.Seconds())
	m.total.WithLabelValues(path, code).Inc()
}
