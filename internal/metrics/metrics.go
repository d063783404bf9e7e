// AngelaMos | 2026
// metrics.go

// Package metrics declares the Prometheus collectors for the booking API.
// Collectors register with the default registry on package init through
// promauto and are served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking_api"

var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	},
	[]string{"method", "route", "status"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

var HTTPInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "http_in_flight_requests",
	Help:      "In-flight HTTP requests.",
})

// AuthAttemptsTotal counts credential operations.
// Labels:
//   - op: "login", "register", "change_password"
//   - result: "success", "invalid_credentials", "conflict", "disabled", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Credential operations by outcome.",
	},
	[]string{"op", "result"},
)

var BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "bookings_created_total",
	Help:      "Total number of bookings created.",
})

// BookingTransitionsTotal counts applied state changes.
// Labels:
//   - axis: "status" or "payment_status"
//   - from, to: the state values
var BookingTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Applied booking state transitions.",
	},
	[]string{"axis", "from", "to"},
)

var BookingTransitionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_rejected_total",
		Help:      "Booking state transitions rejected as illegal.",
	},
	[]string{"axis"},
)

// PaymentSessionsTotal counts openSession outcomes.
// Label:
//   - result: "opened", "reused", "gateway_error", "locked"
var PaymentSessionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_sessions_total",
		Help:      "Payment session requests by outcome.",
	},
	[]string{"result"},
)

var PaymentGatewayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "payment_gateway_duration_seconds",
	Help:      "Latency of payment gateway order calls.",
	Buckets:   prometheus.DefBuckets,
})

func Handler() http.Handler {
	return promhttp.Handler()
}
