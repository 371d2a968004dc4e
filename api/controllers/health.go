package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/walknrun/walkrun-backend/api/responses"
	"github.com/walknrun/walkrun-backend/pkg/config"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/redis"
)

const readyCheckTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WalkRun-Env", cfg.App.Env)
		responses.WriteSuccess(w, "live", map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WalkRun-Env", cfg.App.Env)

		checks := map[string]string{"redis": "ok"}
		status := http.StatusOK

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			defer cancel()
			if err := redisClient.Ping(ctx); err != nil {
				checks["redis"] = "down"
				status = http.StatusServiceUnavailable
				if logg != nil {
					logg.Error(r.Context(), "health.redis_unreachable", err)
				}
			}
		}

		responses.WriteSuccessStatus(w, status, "ready", checks)
	}
}
