package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Navigator dispatches locations against the registered routes.
type Navigator interface {
	LoadURL(location string) (bool, error)
	CurrentLocation() string
	Started() bool
}

// NavigateHandler handles location reads and navigation requests.
type NavigateHandler struct {
	navigator Navigator
	guard     func(http.Handler) http.Handler
}

// NewNavigateHandler creates a NavigateHandler. guard, when set, wraps the
// navigation endpoint.
func NewNavigateHandler(navigator Navigator, guard func(http.Handler) http.Handler) *NavigateHandler {
	return &NavigateHandler{navigator: navigator, guard: guard}
}

// RegisterRoutes wires navigation routes.
func (h *NavigateHandler) RegisterRoutes(r chiRouter) {
	r.Get("/location", h.handleLocation)
	var navigate http.Handler = http.HandlerFunc(h.handleNavigate)
	if h.guard != nil {
		navigate = h.guard(navigate)
	}
	r.Post("/navigate", navigate.ServeHTTP)
}

func (h *NavigateHandler) handleLocation(w http.ResponseWriter, r *http.Request) {
	if h.navigator == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		Location: h.navigator.CurrentLocation(),
		Started:  h.navigator.Started(),
	})
}

func (h *NavigateHandler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if h.navigator == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	var req navigateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Location == nil {
		writeError(w, http.StatusBadRequest, errors.New("location is required"))
		return
	}
	if strings.ContainsAny(*req.Location, "\r\n") {
		writeError(w, http.StatusBadRequest, errors.New("location must be a single line"))
		return
	}

	matched, err := h.navigator.LoadURL(*req.Location)
	resp := navigateResponse{
		Location: h.navigator.CurrentLocation(),
		Matched:  matched,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type navigateRequest struct {
	Location *string `json:"location"`
}

type navigateResponse struct {
	Location string `json:"location"`
	Matched  bool   `json:"matched"`
	Error    string `json:"error,omitempty"`
}

type locationResponse struct {
	Location string `json:"location"`
	Started  bool   `json:"started"`
}
