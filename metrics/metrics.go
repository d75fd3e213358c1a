// Package metrics exposes Prometheus-format metrics for the batching
// subsystem on a dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Subsystem counters. Incremented by the service layer and sinks so the
// protocol core stays measurement-free.
var (
	ProofsAccepted       = vm.NewCounter("emotionalchain_proofs_accepted_total")
	ProofsRejected       = vm.NewCounter("emotionalchain_proofs_rejected_total")
	BatchesEmitted       = vm.NewCounter("emotionalchain_batches_emitted_total")
	DummyTransactions    = vm.NewCounter("emotionalchain_dummy_transactions_total")
	VerificationFailures = vm.NewCounter("emotionalchain_batch_verification_failures_total")
)

// RegisterQueueDepth exposes the coordinator's queue depth as a gauge.
func RegisterQueueDepth(f func() float64) {
	vm.NewGauge("emotionalchain_queue_depth", f)
}

// MetricsServer serves /metrics on its own address. A server created with
// an empty address is a no-op.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr, or a no-op server when
// addr is empty.
func New(addr string) *MetricsServer {
	if addr == "" {
		return &MetricsServer{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vm.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
