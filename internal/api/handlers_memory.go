package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iammorganparry/forgepilot/internal/store"
)

type memoryResponse struct {
	SessionID string         `json:"session_id"`
	Events    []*store.Event `json:"events"`
}

// MemoryHandler exposes the recorded events of a session.
type MemoryHandler struct {
	events *store.EventStore
}

func NewMemoryHandler(events *store.EventStore) *MemoryHandler {
	return &MemoryHandler{events: events}
}

// List handles GET /memory/{sessionID}
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.events.List(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, memoryResponse{SessionID: sessionID, Events: events})
}
