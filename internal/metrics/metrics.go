// Package metrics provides Prometheus instrumentation of the donation flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type DonationMetrics struct {
	registry *prometheus.Registry

	// Transitions between donation steps
	TransitionsTotal *prometheus.CounterVec
	// Failures by the step that failed
	FailuresTotal *prometheus.CounterVec
	// Payment authority round trips
	AuthorityDuration *prometheus.HistogramVec
	// Events the broker gave up on
	EventsDroppedTotal prometheus.Counter
}

// NewDonationMetrics registers the collectors on a dedicated registry.
func NewDonationMetrics() *DonationMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &DonationMetrics{
		registry: reg,
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_transitions_total",
				Help: "Donation flow transitions by resulting status",
			},
			[]string{"status"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donation_failures_total",
				Help: "Donation flow failures by operation",
			},
			[]string{"operation"},
		),
		AuthorityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_authority_request_duration_seconds",
				Help:    "Duration of payment authority requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		EventsDroppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "donation_events_dropped_total",
				Help: "Donation events that could not be published",
			},
		),
	}
}

func (m *DonationMetrics) Transition(status string) {
	m.TransitionsTotal.WithLabelValues(status).Inc()
}

func (m *DonationMetrics) Failure(operation string) {
	m.FailuresTotal.WithLabelValues(operation).Inc()
}

func (m *DonationMetrics) AuthorityCall(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AuthorityDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func (m *DonationMetrics) EventDropped() {
	m.EventsDroppedTotal.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *DonationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
