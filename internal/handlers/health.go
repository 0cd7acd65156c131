package handlers

import (
	"context"
	"net/http"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type sessionCounter interface {
	Len() int
}

type HealthHandler struct {
	db       pinger
	redis    pinger
	sessions sessionCounter
}

func NewHealthHandler(db pinger, redisHealthy func(ctx context.Context) error, sessions sessionCounter) *HealthHandler {
	return &HealthHandler{db: db, redis: pingFunc(redisHealthy), sessions: sessions}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok", "redis": "ok"}
	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":   overall,
		"checks":   checks,
		"sessions": h.sessions.Len(),
	})
}
