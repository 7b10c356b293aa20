// Package metrics holds the prometheus collectors for the quote funnel.
//
// Collectors are registered on an explicit Registerer so tests can use a
// fresh prometheus.NewRegistry() instead of the global default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "energy"

// Login outcomes for the logins counter.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

type Metrics struct {
	quotes       *prometheus.CounterVec
	provisioned  prometheus.Counter
	bookings     prometheus.Counter
	logins       *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes calculated, by product slug.",
		}, []string{"product"}),
		provisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_provisioned_total",
			Help:      "Accounts created implicitly by a quote submission.",
		}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Consultation bookings recorded.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Password logins, by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.quotes, m.provisioned, m.bookings, m.logins, m.httpDuration)
	return m
}

func (m *Metrics) QuoteCalculated(product string) {
	m.quotes.WithLabelValues(product).Inc()
}

func (m *Metrics) AccountProvisioned() {
	m.provisioned.Inc()
}

func (m *Metrics) BookingRecorded() {
	m.bookings.Inc()
}

func (m *Metrics) Login(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// ObserveHTTP records one request. route is the chi route pattern, not the
// raw path, so label cardinality stays bounded.
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
