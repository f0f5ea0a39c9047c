// Package metrics exposes prometheus collectors and the listener that serves them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves /metrics from its own registry on a dedicated address.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server
	ledger   *LedgerMetrics
	worker   *WorkerMetrics
}

// New creates a metrics server for addr. Collectors are namespaced with
// namespace.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		ledger:   NewLedgerMetrics(namespace, registry),
		worker:   NewWorkerMetrics(namespace, registry),
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Ledger returns the transaction collectors registered on this server.
func (m *MetricsServer) Ledger() *LedgerMetrics {
	return m.ledger
}

// Worker returns the scan collectors registered on this server.
func (m *MetricsServer) Worker() *WorkerMetrics {
	return m.worker
}

// Handler returns the /metrics handler.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
