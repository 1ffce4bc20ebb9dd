package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters and histograms for bookings, reconciliation and the gateway.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	bookingsTotal     *prometheus.CounterVec
	reconcileTotal    *prometheus.CounterVec
	gatewayLatency    *prometheus.HistogramVec
	failClosedTotal   prometheus.Counter
	cacheLookupsTotal *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendamento",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by payment method and outcome",
		}, []string{"method", "outcome"}),
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendamento",
			Subsystem: "reconcile",
			Name:      "payments_total",
			Help:      "Payment reconciliations by outcome",
		}, []string{"outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agendamento",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of payment gateway calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		failClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agendamento",
			Subsystem: "availability",
			Name:      "fail_closed_total",
			Help:      "Availability lookups answered as fully occupied after a store failure",
		}),
		cacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendamento",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agendamento",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.reconcileTotal, m.gatewayLatency, m.failClosedTotal, m.cacheLookupsTotal, m.httpLatency)
	return m
}

func (m *Metrics) ObserveBooking(method, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveReconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(outcome).Inc()
}

// ObserveGateway records one gateway call. status is zero when the provider was unreachable.
func (m *Metrics) ObserveGateway(op string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.gatewayLatency.WithLabelValues(op, label).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFailClosed() {
	if m == nil {
		return
	}
	m.failClosedTotal.Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
