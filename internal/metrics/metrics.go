// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "bookings_created_total",
			Help:      "Count of bookings successfully created.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "booking_conflicts_total",
			Help:      "Count of booking attempts rejected for overlap, by cause.",
		},
		[]string{"cause"},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "booking_transitions_total",
			Help:      "Count of booking status transitions applied.",
		},
		[]string{"to"},
	)

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "slot_queries_total",
			Help:      "Count of open-slot computations served.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "notifications_total",
			Help:      "Count of outbox notifications processed, by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "counselling_booking",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by method and status class.",
		},
		[]string{"method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "counselling_booking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Register registers all instruments with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingConflicts,
			bookingTransitions,
			slotQueries,
			notifications,
			httpRequests,
			httpDuration,
		)
	})
}

func IncBookingCreated() { bookingsCreated.Inc() }

func IncBookingConflict(cause string) { bookingConflicts.WithLabelValues(cause).Inc() }

func IncBookingTransition(to string) { bookingTransitions.WithLabelValues(to).Inc() }

func IncSlotQuery() { slotQueries.Inc() }

func IncNotification(outcome string) { notifications.WithLabelValues(outcome).Inc() }

func IncHTTPRequest(method, statusClass string) {
	httpRequests.WithLabelValues(method, statusClass).Inc()
}

func ObserveHTTP(method string, seconds float64) {
	httpDuration.WithLabelValues(method).Observe(seconds)
}
