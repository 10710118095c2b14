// Package metrics exposes prometheus collectors for payment verification.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "usdtvote"

// PaymentMetrics records verification, chain and sweep activity. A nil *PaymentMetrics is a no-op.
type PaymentMetrics struct {
	verifications  *prometheus.CounterVec
	chainRequests  *prometheus.HistogramVec
	chainErrors    *prometheus.CounterVec
	sweepRows      *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	creditFailures *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	defaultReg  *PaymentMetrics
)

// Default returns collectors registered on the global prometheus registry.
func Default() *PaymentMetrics {
	defaultOnce.Do(func() {
		defaultReg = New(prometheus.DefaultRegisterer)
	})
	return defaultReg
}

// New builds collectors and registers them on reg.
func New(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "verifications_total",
			Help:      "Payment verification outcomes by network, resulting status and reject reason.",
		}, []string{"network", "status", "reason"}),
		chainRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound chain API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"network", "method"}),
		chainErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "errors_total",
			Help:      "Outbound chain API failures by network, method and error class.",
		}, []string{"network", "method", "class"}),
		sweepRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "rows_total",
			Help:      "Pending rows processed by the reconciliation sweeper, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one reconciliation pass.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		creditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "credit_failures_total",
			Help:      "Vote credit attempts that failed after a payment was confirmed.",
		}, []string{"network"}),
	}
	reg.MustRegister(
		m.verifications,
		m.chainRequests,
		m.chainErrors,
		m.sweepRows,
		m.sweepDuration,
		m.creditFailures,
	)
	return m
}

func (m *PaymentMetrics) ObserveVerification(network, status, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.verifications.WithLabelValues(network, status, reason).Inc()
}

func (m *PaymentMetrics) ObserveChainRequest(network, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.chainRequests.WithLabelValues(network, method).Observe(d.Seconds())
}

func (m *PaymentMetrics) ObserveChainError(network, method, class string) {
	if m == nil {
		return
	}
	m.chainErrors.WithLabelValues(network, method, class).Inc()
}

func (m *PaymentMetrics) ObserveSweepRow(outcome string) {
	if m == nil {
		return
	}
	m.sweepRows.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *PaymentMetrics) ObserveCreditFailure(network string) {
	if m == nil {
		return
	}
	m.creditFailures.WithLabelValues(network).Inc()
}
