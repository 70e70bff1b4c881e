package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iammorganparry/forgepilot/internal/agent"
	"github.com/iammorganparry/forgepilot/internal/model"
	"github.com/iammorganparry/forgepilot/internal/store"
)

// MessageRequest is the body of POST /message
type MessageRequest struct {
	Input     string  `json:"input"`
	SessionID *string `json:"session_id"`
}

// MessageResponse is what the chat client renders
type MessageResponse struct {
	SessionID        string         `json:"session_id"`
	Plan             model.Plan     `json:"plan"`
	ScaffoldManifest model.Manifest `json:"scaffold_manifest"`
	Summary          agent.Summary  `json:"summary"`
}

// MessageHandler runs the agent for one chat message and records the
// exchange in the session memory.
type MessageHandler struct {
	agent  *agent.Agent
	events *store.EventStore
	logger *slog.Logger
}

func NewMessageHandler(ag *agent.Agent, events *store.EventStore, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{agent: ag, events: events, logger: logger}
}

// Message handles POST /message
func (h *MessageHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	text := strings.TrimSpace(req.Input)
	if text == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}
	if sessionID == "" {
		sessionID = store.NewSessionID()
	}

	ctx := r.Context()
	if _, err := h.events.Add(ctx, sessionID, store.RoleUser, store.TypeMessage, map[string]string{"text": text}); err != nil {
		writeError(w, http.StatusInternalServerError, "record message: "+err.Error())
		return
	}

	res, err := h.agent.Run(ctx, text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "agent run: "+err.Error())
		return
	}

	records := []struct {
		role, typ string
		content   any
	}{
		{store.RoleAgent, store.TypePlan, map[string]any{"steps": res.Plan}},
		{store.RoleAgent, store.TypeScaffold, map[string]any{"files": res.Manifest.Keys()}},
		{store.RoleTool, store.TypeSimulation, res.Summary.SimulatedActions},
	}
	for _, rec := range records {
		if _, err := h.events.Add(ctx, sessionID, rec.role, rec.typ, rec.content); err != nil {
			writeError(w, http.StatusInternalServerError, "record "+rec.typ+": "+err.Error())
			return
		}
	}

	h.logger.Info("message handled",
		"request_id", GetRequestID(r),
		"session_id", sessionID,
		"template", res.Summary.Template,
	)

	writeJSON(w, http.StatusOK, MessageResponse{
		SessionID:        sessionID,
		Plan:             res.Plan,
		ScaffoldManifest: res.Manifest,
		Summary:          res.Summary,
	})
}
