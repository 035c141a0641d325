package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set bundles every collector the API exposes.
type Set struct {
	HTTP          *HTTPMetrics
	Orders        *OrderMetrics
	Notifications *NotificationMetrics
	Realtime      *RealtimeMetrics
}

// New registers all collectors on reg. A nil registerer yields no-op collectors.
func New(reg prometheus.Registerer) *Set {
	return &Set{
		HTTP:          NewHTTPMetrics(reg),
		Orders:        NewOrderMetrics(reg),
		Notifications: NewNotificationMetrics(reg),
		Realtime:      NewRealtimeMetrics(reg),
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
