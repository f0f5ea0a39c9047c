package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a scanned package.
const (
	OutcomeStored  = "stored"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// WorkerMetrics tracks scan runs. A nil *WorkerMetrics is a valid no-op.
type WorkerMetrics struct {
	scans    prometheus.Counter
	packages *prometheus.CounterVec
	duration prometheus.Histogram
	members  prometheus.Gauge
}

func NewWorkerMetrics(namespace string, reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		scans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "scans_total",
			Help:      "Completed scan runs.",
		}),
		packages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "packages_total",
			Help:      "Scanned packages by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scan run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
		members: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "members",
			Help:      "Registry members seen by the last scan.",
		}),
	}
}

func (m *WorkerMetrics) ObserveScan(members int, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.members.Set(float64(members))
	m.duration.Observe(d.Seconds())
}

func (m *WorkerMetrics) ObservePackage(outcome string) {
	if m == nil {
		return
	}
	m.packages.WithLabelValues(outcome).Inc()
}
