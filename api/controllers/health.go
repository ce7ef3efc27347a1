package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gatepass/gatepass-backend/api/responses"
	"github.com/gatepass/gatepass-backend/pkg/config"
	dbpkg "github.com/gatepass/gatepass-backend/pkg/db"
	"github.com/gatepass/gatepass-backend/pkg/logger"
	pkgredis "github.com/gatepass/gatepass-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gatepass-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db dbpkg.Pinger, redis pkgredis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gatepass-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{
			"db":    checkComponent(ctx, logg, "db", db),
			"redis": checkComponent(ctx, logg, "redis", redis),
		}
		for _, status := range checks {
			if status == "unavailable" {
				responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
					"status": "degraded",
					"checks": checks,
				})
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func checkComponent(ctx context.Context, logg *logger.Logger, name string, p pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		if logg != nil {
			logCtx := logg.WithField(ctx, "component", name)
			logg.Error(logCtx, "readiness check failed", err)
		}
		return "unavailable"
	}
	return "ok"
}
