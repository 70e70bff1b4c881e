package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iammorganparry/forgepilot/internal/bundle"
	"github.com/iammorganparry/forgepilot/internal/model"
)

type downloadRequest struct {
	Manifest    model.Manifest `json:"manifest"`
	ProjectName string         `json:"project_name"`
}

// DownloadHandler packages a manifest sent by the client as a zip archive.
type DownloadHandler struct {
	logger *slog.Logger
}

func NewDownloadHandler(logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{logger: logger}
}

// Download handles POST /download
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	data, err := bundle.Build(req.Manifest)
	if errors.Is(err, bundle.ErrEmptyManifest) {
		writeError(w, http.StatusBadRequest, "manifest is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := bundle.SanitizeName(req.ProjectName)
	h.logger.Info("bundle built", "request_id", GetRequestID(r), "project", name, "files", req.Manifest.Len(), "bytes", len(data))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
