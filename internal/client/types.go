package client

import (
	"bytes"
	"encoding/json"

	"github.com/iammorganparry/forgepilot/internal/model"
)

// HealthResponse is the body of GET {prefix}/health. Only ok drives the
// status; the other fields are informational and never fail decoding.
type HealthResponse struct {
	OK           Value `json:"ok"`
	Module       Value `json:"module"`
	AllowExecute Value `json:"allow_execute"`
}

// MessageRequest is the body of POST {prefix}/message. A nil SessionID is
// sent as null, which asks the backend to start a new session.
type MessageRequest struct {
	Input     string  `json:"input"`
	SessionID *string `json:"session_id"`
}

// MessageResponse is the body returned for a message. Every field is kept
// loosely typed: a backend that omits or mistypes one still produces a
// summary, with the gaps rendered as "undefined".
type MessageResponse struct {
	SessionID        Value   `json:"session_id"`
	Plan             Value   `json:"plan"`
	ScaffoldManifest Value   `json:"scaffold_manifest"`
	Summary          Summary `json:"summary"`
}

// Summary describes the scaffold and the simulated tool actions
type Summary struct {
	Template         Value            `json:"template"`
	GeneratedFiles   Value            `json:"generated_files"`
	SimulatedActions SimulatedActions `json:"simulated_actions"`
}

// SimulatedActions holds the three simulated tool results
type SimulatedActions struct {
	Git  ActionResult `json:"git"`
	HTTP ActionResult `json:"http"`
	Code ActionResult `json:"code"`
}

// ActionResult is the subset of a tool result the client renders
type ActionResult struct {
	OK     Value `json:"ok"`
	Status Value `json:"status"`
}

// DownloadRequest is the body of POST /api/forgepilot/download
type DownloadRequest struct {
	Manifest    model.Manifest `json:"manifest"`
	ProjectName string         `json:"project_name"`
}

// The nested summary objects decode leniently: a value that is not a JSON
// object (a string, a number, null) leaves every field missing instead of
// failing the whole response.

func (s *Summary) UnmarshalJSON(data []byte) error {
	type plain Summary
	return decodeObject(data, (*plain)(s))
}

func (s *SimulatedActions) UnmarshalJSON(data []byte) error {
	type plain SimulatedActions
	return decodeObject(data, (*plain)(s))
}

func (a *ActionResult) UnmarshalJSON(data []byte) error {
	type plain ActionResult
	return decodeObject(data, (*plain)(a))
}

func decodeObject(data []byte, target any) error {
	if !isObject(data) {
		return nil
	}
	return json.Unmarshal(bytes.TrimSpace(data), target)
}

// isObject reports whether data starts a JSON object
func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
