package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric definitions for the live node

var (
	sessionActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradesim",
			Subsystem: "kernel",
			Name:      "session_activations_total",
			Help:      "Total number of session activations delivered",
		},
		[]string{"session"},
	)

	activationDispatchLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tradesim",
			Subsystem: "kernel",
			Name:      "activation_dispatch_lag_seconds",
			Help:      "Lag between an activation's scheduled and actual firing time",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 100μs to ~1.6s
		},
	)

	activationsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradesim",
			Subsystem: "kernel",
			Name:      "activations_queued",
			Help:      "Activations waiting behind the throttle",
		},
	)

	timersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradesim",
			Subsystem: "clock",
			Name:      "timers_active",
			Help:      "Currently registered alerts and timers",
		},
	)

	handlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradesim",
			Subsystem: "clock",
			Name:      "handler_failures_total",
			Help:      "Total number of recovered timer handler failures",
		},
		[]string{"label"},
	)
)

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordActivation records one delivered session activation
func RecordActivation(session string, scheduled, actual time.Time) {
	sessionActivations.WithLabelValues(session).Inc()
	activationDispatchLag.Observe(actual.Sub(scheduled).Seconds())
}

// UpdateQueuedActivations updates the throttle backlog gauge
func UpdateQueuedActivations(n int) {
	activationsQueued.Set(float64(n))
}

// UpdateTimersActive updates the active timer gauge
func UpdateTimersActive(n int) {
	timersActive.Set(float64(n))
}

// RecordHandlerFailure records a recovered handler failure
func RecordHandlerFailure(label string) {
	handlerFailures.WithLabelValues(label).Inc()
}
