package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines dependencies that can be health-checked.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles /health endpoint.
type HealthHandler struct {
	// Cache is the Redis journal backend; nil when the journal is in memory.
	Cache HealthChecker
	// Routers reports how many sub-routers are mounted.
	Routers interface{ Len() int }
	// History reports whether the location service has started.
	History interface{ Started() bool }
}

// ServeHTTP responds with dependency status.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type component struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
		Detail any    `json:"detail,omitempty"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	components := []component{}

	if h.History != nil {
		if h.History.Started() {
			components = append(components, component{Name: "history", Status: "healthy"})
		} else {
			status = http.StatusServiceUnavailable
			components = append(components, component{Name: "history", Status: "unhealthy", Error: "not started"})
		}
	}

	if h.Routers != nil {
		components = append(components, component{Name: "routers", Status: "healthy", Detail: h.Routers.Len()})
	}

	if h.Cache != nil {
		if err := h.Cache.HealthCheck(ctx); err != nil {
			status = http.StatusServiceUnavailable
			components = append(components, component{Name: "redis", Status: "unhealthy", Error: err.Error()})
		} else {
			components = append(components, component{Name: "redis", Status: "healthy"})
		}
	}

	writeJSON(w, status, map[string]any{
		"status":     statusLabel(status),
		"components": components,
		"checked_at": time.Now().UTC(),
	})
}

func statusLabel(code int) string {
	if code == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}
