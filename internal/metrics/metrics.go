// Package metrics holds the prometheus collectors of the sync subsystem.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

const namespace = "pmsap"

type Metrics struct {
	registry    *prometheus.Registry
	items       *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_total",
			Help:      "Subprojects processed by sync, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of a sync invocation.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"trigger"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sap_listing_rate_limited_total",
			Help:      "Listing fetches denied by the per-actor cooldown.",
		}),
	}
	reg.MustRegister(
		m.items,
		m.runDuration,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ItemProcessed(trigger string, outcome domain.Outcome) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(trigger, string(outcome)).Inc()
}

func (m *Metrics) RunFinished(trigger string, took time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(trigger).Observe(took.Seconds())
}

func (m *Metrics) ListingRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
