// Package metrics exposes prometheus counters/histograms for the send
// pipeline and webhook reconciliation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// SendMetrics exposes counters/histograms for the compliance-gated send
// pipeline and the inbound reconciler.
type SendMetrics struct {
	complianceDecisions *prometheus.CounterVec
	dispatchTotal       *prometheus.CounterVec
	webhookLatency      *prometheus.HistogramVec
}

// NewSendMetrics registers the pipeline's metrics against reg, or the
// default registerer when reg is nil.
func NewSendMetrics(reg prometheus.Registerer) *SendMetrics {
	m := &SendMetrics{
		complianceDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannasend",
			Subsystem: "compliance",
			Name:      "decisions_total",
			Help:      "Total compliance gate decisions by outcome",
		}, []string{"decision"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cannasend",
			Subsystem: "send",
			Name:      "dispatch_total",
			Help:      "Total provider dispatch attempts by outcome",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cannasend",
			Subsystem: "webhook",
			Name:      "processing_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"})}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.complianceDecisions, m.dispatchTotal, m.webhookLatency)
	return m
}

// ObserveComplianceDecision records one gate outcome (ALLOW/BLOCK/DEFER).
func (m *SendMetrics) ObserveComplianceDecision(decision string) {
	if m == nil {
		return
	}
	m.complianceDecisions.WithLabelValues(decision).Inc()
}

// ObserveDispatch records one provider send attempt outcome (sent/failed).
func (m *SendMetrics) ObserveDispatch(status string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(status).Inc()
}

// ObserveWebhookLatency records how long processing a webhook event took.
func (m *SendMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
