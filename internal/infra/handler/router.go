package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig bundles handler dependencies.
type RouterConfig struct {
	RoutersHandler  *RoutersHandler
	NavigateHandler *NavigateHandler
	DispatchHandler *DispatchHandler
	HealthHandler   *HealthHandler

	APIBasePath       string
	Middlewares       []func(http.Handler) http.Handler
	PrometheusHandler http.Handler
}

// NewRouter wires handlers and middlewares.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	for _, mw := range cfg.Middlewares {
		if mw == nil {
			continue
		}
		r.Use(mw)
	}

	if cfg.PrometheusHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.PrometheusHandler)
	}

	mount := func(api chi.Router) {
		if cfg.RoutersHandler != nil {
			cfg.RoutersHandler.RegisterRoutes(api)
		}
		if cfg.NavigateHandler != nil {
			cfg.NavigateHandler.RegisterRoutes(api)
		}
		if cfg.DispatchHandler != nil {
			cfg.DispatchHandler.RegisterRoutes(api)
		}
		if cfg.HealthHandler != nil {
			api.Get("/health", cfg.HealthHandler.ServeHTTP)
		}
	}

	apiBasePath := normalizeAPIBasePath(cfg.APIBasePath)
	if apiBasePath == "" || apiBasePath == "/" {
		mount(r)
		return r
	}
	r.Route(apiBasePath, mount)
	return r
}
