package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSendMetricsObserve(t *testing.T) {
	m := NewSendMetrics(nil)
	m.ObserveComplianceDecision("ALLOW")
	m.ObserveDispatch("sent")
	m.ObserveWebhookLatency("message.delivery_status", 0.5)
}

func TestSendMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSendMetrics(reg)
	m.ObserveComplianceDecision("BLOCK")
}

func TestSendMetricsNilSafe(t *testing.T) {
	var m *SendMetrics
	m.ObserveComplianceDecision("ALLOW")
	m.ObserveDispatch("failed")
	m.ObserveWebhookLatency("message.received", 0.1)
}
