package api

import (
	"net/http"

	"github.com/iammorganparry/forgepilot/internal/store"
)

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	OK           bool   `json:"ok"`
	Module       string `json:"module"`
	AllowExecute bool   `json:"allow_execute"`
	EventCount   int    `json:"event_count"`
	Error        string `json:"error,omitempty"`
}

type HealthHandler struct {
	db           *store.DB
	allowExecute bool
}

func NewHealthHandler(db *store.DB, allowExecute bool) *HealthHandler {
	return &HealthHandler{db: db, allowExecute: allowExecute}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{OK: true, Module: ModuleName, AllowExecute: h.allowExecute}

	if err := h.db.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if count, err := h.db.EventCount(); err == nil {
		resp.EventCount = count
	}
	writeJSON(w, http.StatusOK, resp)
}
