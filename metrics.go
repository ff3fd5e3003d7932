package l402

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request and payment
// lifecycle. All record methods are nil-safe so an unconfigured client pays
// no metrics cost. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	paymentsTotal  *prometheus.CounterVec
	paymentAmount  *prometheus.HistogramVec
	spentSatsTotal *prometheus.CounterVec

	budgetRejections *prometheus.CounterVec

	credentialHits        *prometheus.CounterVec
	credentialMisses      *prometheus.CounterVec
	credentialInvalidated *prometheus.CounterVec

	paymentsCoalesced *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "domain"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "l402_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds, payments included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "domain"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "l402_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "domain"},
		),
		paymentsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_payments_total",
				Help: "Total number of payment attempts by outcome",
			},
			[]string{"domain", "outcome"},
		),
		paymentAmount: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "l402_payment_amount_sats",
				Help:    "Distribution of settled payment amounts in sats",
				Buckets: []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000},
			},
			[]string{"domain"},
		),
		spentSatsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_spent_sats_total",
				Help: "Total sats spent on successful payments",
			},
			[]string{"domain"},
		),
		budgetRejections: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_budget_rejections_total",
				Help: "Total number of payments rejected by the budget controller",
			},
			[]string{"domain", "limit"},
		),
		credentialHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_credential_cache_hits_total",
				Help: "Total number of credential cache hits",
			},
			[]string{"domain"},
		),
		credentialMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_credential_cache_misses_total",
				Help: "Total number of credential cache misses",
			},
			[]string{"domain"},
		),
		credentialInvalidated: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_credentials_invalidated_total",
				Help: "Total number of credentials evicted after a server rejected them",
			},
			[]string{"domain"},
		),
		paymentsCoalesced: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_payments_coalesced_total",
				Help: "Total number of callers that shared another caller's in-flight payment",
			},
			[]string{"domain"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "l402_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "domain"},
		),
	}

	if r, ok := registry.(*prometheus.Registry); ok {
		mc.registry = r
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, domain string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, domain).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, domain).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, domain string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, domain).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, domain string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, domain).Dec()
}

// RecordPayment records a payment attempt; settled amounts feed the amount
// histogram and running spend counter.
func (mc *MetricsCollector) RecordPayment(domain string, amountSats int64, success bool) {
	if mc == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	mc.paymentsTotal.WithLabelValues(domain, outcome).Inc()
	if success {
		mc.paymentAmount.WithLabelValues(domain).Observe(float64(amountSats))
		mc.spentSatsTotal.WithLabelValues(domain).Add(float64(amountSats))
	}
}

// RecordBudgetRejection increments the rejection counter for a limit kind.
func (mc *MetricsCollector) RecordBudgetRejection(domain string, limit LimitKind) {
	if mc == nil {
		return
	}

	mc.budgetRejections.WithLabelValues(domain, string(limit)).Inc()
}

// RecordCredentialHit increments the credential cache hit counter.
func (mc *MetricsCollector) RecordCredentialHit(domain string) {
	if mc == nil {
		return
	}

	mc.credentialHits.WithLabelValues(domain).Inc()
}

// RecordCredentialMiss increments the credential cache miss counter.
func (mc *MetricsCollector) RecordCredentialMiss(domain string) {
	if mc == nil {
		return
	}

	mc.credentialMisses.WithLabelValues(domain).Inc()
}

// RecordCredentialInvalidated increments the invalidation counter.
func (mc *MetricsCollector) RecordCredentialInvalidated(domain string) {
	if mc == nil {
		return
	}

	mc.credentialInvalidated.WithLabelValues(domain).Inc()
}

// RecordPaymentCoalesced increments the shared-payment counter.
func (mc *MetricsCollector) RecordPaymentCoalesced(domain string) {
	if mc == nil {
		return
	}

	mc.paymentsCoalesced.WithLabelValues(domain).Inc()
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, domain string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, domain).Inc()
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	return mc.registry
}
