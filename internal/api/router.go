// Package api serves the ForgePilot agent endpoints over HTTP.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/iammorganparry/forgepilot/internal/agent"
	"github.com/iammorganparry/forgepilot/internal/store"
)

// ModuleName is reported by the health endpoint
const ModuleName = "forgepilot"

// NewRouter creates the Chi router with all routes and middleware.
// The chat endpoints answer under both /api and /api/forgepilot so either
// client prefix works; memory and download live under /api/forgepilot.
func NewRouter(
	db *store.DB,
	events *store.EventStore,
	ag *agent.Agent,
	allowExecute bool,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(db, allowExecute)
	messageH := NewMessageHandler(ag, events, logger)
	memoryH := NewMemoryHandler(events)
	downloadH := NewDownloadHandler(logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Health)
		r.Post("/message", messageH.Message)

		r.Route("/forgepilot", func(r chi.Router) {
			r.Get("/health", healthH.Health)
			r.Post("/message", messageH.Message)
			r.Get("/memory/{sessionID}", memoryH.List)
			r.Post("/download", downloadH.Download)
		})
	})

	return r
}
