package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"invoicer/internal/caching"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	store   caching.SlotStore
	backend string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(store caching.SlotStore, backend string) *HealthHandlers {
	return &HealthHandlers{
		store:   store,
		backend: backend,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Services   map[string]string `json:"services"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
}

// HealthCheck reports the state of the slot store
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Services:   make(map[string]string),
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if err := h.store.Ping(ctx); err != nil {
		health.Services["storage:"+h.backend] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["storage:"+h.backend] = "healthy"
	}

	// Editing keeps working while storage is down.
	return c.JSON(http.StatusOK, health)
}

// ReadinessCheck determines if the draft can be persisted
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Storage unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
