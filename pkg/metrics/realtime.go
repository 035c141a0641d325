package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks open websocket connections and bridge health.
type RealtimeMetrics struct {
	connections    prometheus.Gauge
	bridgeFailures prometheus.Counter
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Currently connected websocket clients.",
	})
	bridgeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_bridge_publish_failures_total",
		Help: "Events delivered locally that could not be forwarded to other instances.",
	})
	reg.MustRegister(connections, bridgeFailures)
	return &RealtimeMetrics{connections: connections, bridgeFailures: bridgeFailures}
}

func (m *RealtimeMetrics) Connected() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Inc()
}

func (m *RealtimeMetrics) Disconnected() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Dec()
}

func (m *RealtimeMetrics) BridgeFailed() {
	if m == nil || m.bridgeFailures == nil {
		return
	}
	m.bridgeFailures.Inc()
}
