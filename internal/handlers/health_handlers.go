package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is any dependency that can answer a connectivity probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers serves the liveness endpoint used by orchestration probes.
type HealthHandlers struct {
	db      Pinger
	cache   Pinger
	archive Pinger
}

func NewHealthHandlers(db, cache, archive Pinger) *HealthHandlers {
	return &HealthHandlers{db: db, cache: cache, archive: archive}
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck probes every wired dependency; optional ones report as
// disabled instead of unhealthy.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	h.probe(ctx, health, "database", h.db, true)
	h.probe(ctx, health, "redis", h.cache, false)
	h.probe(ctx, health, "storage", h.archive, false)

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) probe(ctx context.Context, health *HealthStatus, name string, p Pinger, required bool) {
	if p == nil {
		health.Services[name] = "disabled"
		return
	}
	if err := p.Ping(ctx); err != nil {
		health.Services[name] = "unhealthy"
		if required {
			health.Status = "degraded"
		}
		return
	}
	health.Services[name] = "healthy"
}
