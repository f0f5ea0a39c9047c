package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics counts executed transactions and their latency. A nil
// *LedgerMetrics is a valid no-op.
type LedgerMetrics struct {
	transactions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger collectors on reg. A nil reg creates
// unregistered collectors.
func NewLedgerMetrics(namespace string, reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)
	return &LedgerMetrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Executed transactions by status and abort reason.",
		}, []string{"status", "reason"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transaction_duration_seconds",
			Help:      "Transaction execution time including snapshot persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"status"}),
	}
}

// ObserveTransaction records one executed transaction.
func (m *LedgerMetrics) ObserveTransaction(status, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(status, reason).Inc()
	m.latency.WithLabelValues(status).Observe(d.Seconds())
}
