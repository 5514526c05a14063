package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/apex/log"

	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/models"
)

const healthTimeout = 2 * time.Second

// Health обрабатывает GET /health - проверка состояния БД и Redis
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status:   "healthy",
		Database: "connected",
		Redis:    "disabled",
		Uptime:   time.Since(h.startTime).String(),
	}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		log.WithError(err).Warn("database ping failed")
		status.Database = "disconnected"
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis ping failed")
			status.Redis = "disconnected"
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			status.Redis = "connected"
			status.Logins, _ = h.redis.GetCounter(ctx, cache.LoginCounterKey)
			status.Charts, _ = h.redis.GetCounter(ctx, cache.ChartCounterKey)
		}
	}

	h.respondJSON(w, status, code)
}
