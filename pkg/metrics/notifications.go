package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// NotificationMetrics counts outbound notifications per channel and result.
type NotificationMetrics struct {
	sent *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Outbound notifications by channel and result.",
	}, []string{"channel", "result"})
	reg.MustRegister(sent)
	return &NotificationMetrics{sent: sent}
}

// Record counts one notification attempt.
func (m *NotificationMetrics) Record(channel, result string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}
