package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records outcomes and latency for ledger operations.
type LedgerMetrics struct {
	duration   *prometheus.HistogramVec
	operations *prometheus.CounterVec
	retries    prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger operations by outcome.",
	}, []string{"operation", "outcome"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_tx_retries_total",
		Help: "Store transactions retried after losing a serialization race.",
	})
	reg.MustRegister(duration, operations, retries)
	return &LedgerMetrics{
		duration:   duration,
		operations: operations,
		retries:    retries,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *LedgerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (m *LedgerMetrics) IncSuccess(operation string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), "success").Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *LedgerMetrics) IncFailure(operation string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation), "failure").Inc()
}

// IncRetry counts a transaction retry after a serialization conflict.
func (m *LedgerMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
