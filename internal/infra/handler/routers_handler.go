package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"subroute/internal/domain/route"
	"subroute/internal/usecase/subrouter"
)

// RouterLister exposes constructed sub-routers.
type RouterLister interface {
	List() []subrouter.Named
	Get(name string) (*subrouter.SubRouter, bool)
}

// RoutersHandler serves the compiled route tables.
type RoutersHandler struct {
	routers RouterLister
}

// NewRoutersHandler creates a RoutersHandler.
func NewRoutersHandler(routers RouterLister) *RoutersHandler {
	return &RoutersHandler{routers: routers}
}

// RegisterRoutes wires router inspection routes.
func (h *RoutersHandler) RegisterRoutes(r chiRouter) {
	r.Get("/routers", h.handleList)
	r.Get("/routers/{name}", h.handleGet)
}

func (h *RoutersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.routers == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	withTable, err := readQueryBool(r, "table", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	named := h.routers.List()
	resp := routerListResponse{Routers: make([]routerResponse, 0, len(named))}
	for _, n := range named {
		resp.Routers = append(resp.Routers, toRouterResponse(n.Name, n.Router, withTable))
	}
	resp.Total = len(resp.Routers)
	writeJSON(w, http.StatusOK, resp)
}

func (h *RoutersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.routers == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	name := chi.URLParam(r, "name")
	sr, ok := h.routers.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("router %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, toRouterResponse(name, sr, true))
}

type routerListResponse struct {
	Routers []routerResponse `json:"routers"`
	Total   int              `json:"total"`
}

type routerResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	Prefix              string          `json:"prefix"`
	Separator           string          `json:"separator"`
	TrailingSlashRoutes bool            `json:"trailing_slash_routes"`
	RouteCount          int             `json:"route_count"`
	InitialDispatch     *string         `json:"initial_dispatch"`
	Routes              []routeResponse `json:"routes,omitempty"`
	Table               []routeResponse `json:"table,omitempty"`
}

type routeResponse struct {
	Pattern string `json:"pattern"`
	Handler string `json:"handler"`
}

func toRouterResponse(name string, sr *subrouter.SubRouter, withTable bool) routerResponse {
	table := sr.Table()
	resp := routerResponse{
		ID:                  sr.ID(),
		Name:                name,
		Prefix:              sr.Prefix(),
		Separator:           sr.Separator(),
		TrailingSlashRoutes: sr.TrailingSlashRoutes(),
		RouteCount:          table.Len(),
	}
	if pattern, ok := sr.InitialDispatch(); ok {
		resp.InitialDispatch = &pattern
	}
	if withTable {
		resp.Routes = toRouteResponses(sr.Routes().Entries())
		resp.Table = toRouteResponses(table.Entries())
	}
	return resp
}

func toRouteResponses(entries []route.Entry) []routeResponse {
	out := make([]routeResponse, len(entries))
	for i, e := range entries {
		out[i] = routeResponse{Pattern: e.Pattern, Handler: e.Handler.String()}
	}
	return out
}
