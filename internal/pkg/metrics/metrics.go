// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector so they can be registered against a
// private registry in tests.
type Metrics struct {
	// http requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// http latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// booking create/update/delete attempts by outcome
	BookingOperationsTotal *prometheus.CounterVec

	// seats moved in or out of show inventory by direction (taken, released)
	SeatsAdjustedTotal *prometheus.CounterVec

	// show lock acquire/release timings
	DistributedLockDuration *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_operations_total",
				Help: "Booking create/update/delete attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		SeatsAdjustedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_seats_adjusted_total",
				Help: "Seats taken from or released to show inventory",
			},
			[]string{"direction"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on show lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingOperationsTotal,
		m.SeatsAdjustedTotal,
		m.DistributedLockDuration,
	)
	return m
}

// ObserveBooking counts one orchestrator operation.  A nil receiver is a
// no-op so callers can run without metrics.
func (m *Metrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.BookingOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveSeats records an applied inventory delta.  Negative deltas are
// seats taken, positive ones seats released.
func (m *Metrics) ObserveSeats(delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta < 0 {
		m.SeatsAdjustedTotal.WithLabelValues("taken").Add(float64(-delta))
		return
	}
	m.SeatsAdjustedTotal.WithLabelValues("released").Add(float64(delta))
}

// ObserveLock records the duration of a lock operation in seconds.
func (m *Metrics) ObserveLock(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(seconds)
}
