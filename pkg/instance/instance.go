package instance

import (
	"os"

	"github.com/google/uuid"
)

// ID identifies this process among replicas. An explicit configured value
// wins, then the platform dyno name, then the hostname. A random suffix keeps
// restarted replicas distinct on the realtime bridge.
func ID(configured string) string {
	base := configured
	if base == "" {
		base = os.Getenv("DYNO")
	}
	if base == "" {
		if host, err := os.Hostname(); err == nil {
			base = host
		}
	}
	if base == "" {
		base = "api"
	}
	return base + "-" + uuid.NewString()[:8]
}
