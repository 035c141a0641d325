package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranaconnect/kiranaconnect-backend/api/responses"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

// Pinger is satisfied by the store and the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KiranaConnect-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the store and, when configured, Redis. A nil pinger is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, store Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-KiranaConnect-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := []struct {
			name   string
			pinger Pinger
		}{
			{"store", store},
			{"redis", redis},
		}
		status := map[string]string{"status": "ready"}
		for _, check := range checks {
			if check.pinger == nil {
				status[check.name] = "disabled"
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable").
						WithDetails(map[string]any{"component": check.name}))
				return
			}
			status[check.name] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
