package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

type ledgerMetrics struct {
	failures    *prometheus.CounterVec
	serials     prometheus.Counter
	callerNonce *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "payledger",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. code is the JSON-RPC error
// code written to the response, zero on success.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// Ledger returns the registry tracking ledger outcomes.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "ledger",
				Name:      "failures_total",
				Help:      "Count of rejected ledger operations segmented by operation and reason.",
			}, []string{"operation", "reason"}),
			serials: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "ledger",
				Name:      "serial_numbers_consumed_total",
				Help:      "Count of serial numbers consumed by committed operations.",
			}),
			callerNonce: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "payledger",
				Subsystem: "ledger",
				Name:      "caller_nonce_rejections_total",
				Help:      "Count of RPC envelopes rejected before reaching the ledger.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.failures,
			ledgerRegistry.serials,
			ledgerRegistry.callerNonce,
		)
	})
	return ledgerRegistry
}

// RecordFailure counts a rejected operation under its reason string.
func (m *ledgerMetrics) RecordFailure(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	reason := strings.TrimSpace(err.Error())
	if reason == "" {
		reason = "unknown"
	}
	m.failures.WithLabelValues(op, reason).Inc()
}

// RecordSerialConsumed counts one consumed serial number.
func (m *ledgerMetrics) RecordSerialConsumed() {
	if m == nil {
		return
	}
	m.serials.Inc()
}

// RecordEnvelopeRejection counts an envelope refused by the RPC layer.
func (m *ledgerMetrics) RecordEnvelopeRejection(reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.callerNonce.WithLabelValues(reason).Inc()
}
