// Package metrics holds the Prometheus collectors for connection admission
// and request dispatch.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gameapi"

// Admission decision labels.
const (
	DecisionAdmitted = "admitted"
	DecisionRejected = "rejected"
)

// Metrics contains Prometheus metrics for the server.
type Metrics struct {
	registry *prometheus.Registry

	admissionDecisions *prometheus.CounterVec
	trackedAddresses   prometheus.Gauge

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	inFlight         prometheus.Gauge
}

// New creates the collectors and registers them on a private registry. The
// Go runtime and process collectors are registered too.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		admissionDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "decisions_total",
				Help:      "Connection admission decisions",
			},
			[]string{"decision"},
		),
		trackedAddresses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "tracked_addresses",
			Help:      "Number of source addresses with a connection record",
		}),

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Dispatched API requests by handler and outcome code",
			},
			[]string{"handler", "code"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Handler execution time",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"handler"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "in_flight",
			Help:      "Handler invocations currently running",
		}),
	}

	m.registry.MustRegister(
		m.admissionDecisions,
		m.trackedAddresses,
		m.dispatchTotal,
		m.dispatchDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordAdmission counts one admission decision and updates the tracked
// address gauge.
func (m *Metrics) RecordAdmission(admitted bool, tracked int) {
	if m == nil {
		return
	}
	decision := DecisionAdmitted
	if !admitted {
		decision = DecisionRejected
	}
	m.admissionDecisions.WithLabelValues(decision).Inc()
	m.trackedAddresses.Set(float64(tracked))
}

// StartDispatch marks a handler invocation as running. The returned func
// records its outcome.
func (m *Metrics) StartDispatch(handler string) func(code string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(code string) {
		m.inFlight.Dec()
		m.dispatchDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
		m.dispatchTotal.WithLabelValues(handler, code).Inc()
	}
}

// RecordDispatch counts a dispatch that never reached a handler.
func (m *Metrics) RecordDispatch(handler, code string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(handler, code).Inc()
}
