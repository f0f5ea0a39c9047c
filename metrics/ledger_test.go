package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetrics_ObserveTransaction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics("test", reg)

	m.ObserveTransaction("success", "", time.Millisecond)
	m.ObserveTransaction("aborted", "NotAdmin", time.Millisecond)
	m.ObserveTransaction("aborted", "NotAdmin", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("success", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactions.WithLabelValues("aborted", "NotAdmin")))
}

func TestLedgerMetrics_NilIsNoop(t *testing.T) {
	var m *LedgerMetrics
	assert.NotPanics(t, func() { m.ObserveTransaction("success", "", time.Second) })
}

func TestMetricsServer_ServesLedgerCollectors(t *testing.T) {
	srv, err := New("canary_test", "127.0.0.1:0")
	require.NoError(t, err)
	srv.Ledger().ObserveTransaction("success", "", time.Millisecond)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "canary_test_ledger_transactions_total"))
}

func TestWorkerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics("test", reg)

	m.ObservePackage(OutcomeStored)
	m.ObservePackage(OutcomeSkipped)
	m.ObservePackage(OutcomeSkipped)
	m.ObserveScan(3, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.packages.WithLabelValues(OutcomeStored)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.packages.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.members))

	var nilMetrics *WorkerMetrics
	assert.NotPanics(t, func() { nilMetrics.ObservePackage(OutcomeFailed) })
}
