// Package metrics holds the Prometheus collectors for the catalog client.
// Each Metrics value owns a private registry so several clients (and tests)
// can coexist in one process.
package metrics

import (
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "catalog_client"

// Token prime reasons.
const (
	PrimeMissing = "missing"
	PrimeExpired = "expired"
	PrimeManual  = "manual"
)

// Replay outcomes.
const (
	ReplaySucceeded = "succeeded"
	ReplayFailed    = "failed"
	ReplaySkipped   = "skipped"
)

// Metrics is the set of client-side collectors.
type Metrics struct {
	Registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	primes   *prometheus.CounterVec
	replays  *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests sent to the catalog service.",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests, including any token recovery.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method"},
		),
		primes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "csrf",
				Name:      "primes_total",
				Help:      "Token-issuing endpoint calls by reason.",
			},
			[]string{"reason"},
		),
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "csrf",
				Name:      "replays_total",
				Help:      "Requests recovered after an expired token, by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.Registry.MustRegister(m.requests, m.duration, m.primes, m.replays)
	return m
}

// ObserveRequest records a finished request. Status 0 means the request never
// produced a response.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// IncPrime counts a call to the token-issuing endpoint.
func (m *Metrics) IncPrime(reason string) {
	if m == nil {
		return
	}
	m.primes.WithLabelValues(reason).Inc()
}

// IncReplay counts the outcome of a token recovery.
func (m *Metrics) IncReplay(outcome string) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(outcome).Inc()
}

// Primes exposes the prime counter for the given reason.
func (m *Metrics) Primes(reason string) prometheus.Counter {
	return m.primes.WithLabelValues(reason)
}

// Replays exposes the replay counter for the given outcome.
func (m *Metrics) Replays(outcome string) prometheus.Counter {
	return m.replays.WithLabelValues(outcome)
}

// Requests exposes the request counter for the given method and status label.
func (m *Metrics) Requests(method, status string) prometheus.Counter {
	return m.requests.WithLabelValues(method, status)
}

// WriteText writes every collected family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
