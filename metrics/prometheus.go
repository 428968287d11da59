package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the x402 client collectors on reg.
// It panics if they are already registered there.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "x402",
			Subsystem: "client",
			Name:      "events_total",
			Help:      "x402 unlock attempts by outcome",
		},
		[]string{"event", "network", "code"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "x402",
			Subsystem: "client",
			Name:      "step_latency_seconds",
			Help:      "x402 unlock step latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"step", "network"},
	)

	reg.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

var (
	defaultOnce     sync.Once
	defaultRecorder *PrometheusRecorder
)

// Default returns a process-wide recorder registered on prometheus.DefaultRegisterer.
func Default() *PrometheusRecorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewPrometheusRecorder(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"event":   name,
		"network": labels["network"],
		"code":    labels["code"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"step":    name,
		"network": labels["network"],
	}).Observe(d.Seconds())
}
