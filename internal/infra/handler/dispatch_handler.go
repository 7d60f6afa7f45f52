package handler

import (
	"context"
	"net/http"

	"subroute/internal/domain/dispatch"
)

// DispatchJournal lists and clears recorded navigations.
type DispatchJournal interface {
	Recent(ctx context.Context, limit int) ([]dispatch.Record, error)
	Clear(ctx context.Context) error
}

// DispatchHandler handles /dispatches endpoints.
type DispatchHandler struct {
	journal DispatchJournal
}

// NewDispatchHandler creates a DispatchHandler.
func NewDispatchHandler(journal DispatchJournal) *DispatchHandler {
	return &DispatchHandler{journal: journal}
}

// RegisterRoutes wires dispatch journal routes.
func (h *DispatchHandler) RegisterRoutes(r chiRouter) {
	r.Get("/dispatches", h.handleList)
	r.Delete("/dispatches", h.handleClear)
}

func (h *DispatchHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	limit, err := readQueryInt(r, "limit", 1, 200, 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []dispatch.Record{}
	}
	writeJSON(w, http.StatusOK, dispatchListResponse{
		Dispatches: records,
		Limit:      limit,
	})
}

func (h *DispatchHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusInternalServerError, errServiceUnavailable)
		return
	}
	if err := h.journal.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dispatchListResponse struct {
	Dispatches []dispatch.Record `json:"dispatches"`
	Limit      int               `json:"limit"`
}
