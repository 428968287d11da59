package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncCounter(EventAttempt, map[string]string{"network": "base"})
	r.IncCounter(EventAttempt, map[string]string{"network": "base"})
	r.IncCounter(EventFailure, map[string]string{"network": "base", "code": "USER_REJECTED"})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.counters.WithLabelValues(EventAttempt, "base", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.counters.WithLabelValues(EventFailure, "base", "USER_REJECTED")))
}

func TestPrometheusRecorder_Latency(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveLatency(StepSign, 150*time.Millisecond, map[string]string{"network": "base"})

	n, err := testutil.GatherAndCount(reg, "x402_client_step_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusRecorder_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusRecorder(reg)

	assert.Panics(t, func() { NewPrometheusRecorder(reg) })
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
}
