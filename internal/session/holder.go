// Package session holds the chat state for one client lifetime: the
// transcript, the session id assigned by the backend, the latest plan and
// manifest, the connectivity status and the pending dispatches.
//
// The holder is not safe for concurrent use. The TUI owns it from its
// single update loop; network calls happen elsewhere and report back
// through Resolve.
package session

import (
	"strings"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/model"
)

// Dispatch is one message request ready to be sent
type Dispatch struct {
	ID        uint64
	Input     string
	SessionID string
}

// Outcome is what came back for a Dispatch
type Outcome struct {
	Response *client.MessageResponse
	Err      error
}

// Holder is the session state machine
type Holder struct {
	messages  []model.Message
	sessionID string
	plan      model.Plan
	manifest  model.Manifest
	status    model.Status

	inflight *Dispatch
	queue    []string
	nextID   uint64
	closed   bool

	// lastErr is the failure behind the most recent error message, for logs
	lastErr error
}

// New returns a holder seeded with the welcome message
func New() *Holder {
	return &Holder{
		messages: []model.Message{model.Welcome()},
		status:   model.StatusUnknown,
	}
}

// Messages returns a copy of the transcript
func (h *Holder) Messages() []model.Message {
	out := make([]model.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the transcript length
func (h *Holder) Len() int { return len(h.messages) }

// SessionID returns the backend session id, or "" before the first one
func (h *Holder) SessionID() string { return h.sessionID }

// Plan returns the plan from the most recent successful response
func (h *Holder) Plan() model.Plan { return h.plan }

// Manifest returns the manifest from the most recent successful response
func (h *Holder) Manifest() model.Manifest { return h.manifest }

// Status returns the connectivity status
func (h *Holder) Status() model.Status { return h.status }

// Loading is true while any dispatch is in flight or queued
func (h *Holder) Loading() bool { return h.inflight != nil }

// Pending counts dispatches waiting behind the one in flight
func (h *Holder) Pending() int { return len(h.queue) }

// LastError returns the failure behind the latest error message
func (h *Holder) LastError() error { return h.lastErr }

// SetStatus records the health probe result
func (h *Holder) SetStatus(s model.Status) {
	if h.closed {
		return
	}
	h.status = s
}

// Send appends text as a user message and returns the dispatch to issue.
// Blank text is ignored. When a dispatch is already in flight the request
// is queued and ok is false; it is released by Resolve.
func (h *Holder) Send(text string) (d Dispatch, ok bool) {
	if h.closed || strings.TrimSpace(text) == "" {
		return Dispatch{}, false
	}

	h.messages = append(h.messages, model.Message{Role: model.RoleUser, Text: text})
	if h.inflight != nil {
		h.queue = append(h.queue, text)
		return Dispatch{}, false
	}
	return h.start(text), true
}

func (h *Holder) start(text string) Dispatch {
	h.nextID++
	d := Dispatch{ID: h.nextID, Input: text, SessionID: h.sessionID}
	h.inflight = &d
	return d
}

// Resolve settles d with out. It returns the next queued dispatch, if any,
// so the caller can issue it. Outcomes for unknown dispatches and anything
// arriving after Close are dropped.
func (h *Holder) Resolve(d Dispatch, out Outcome) (next Dispatch, ok bool) {
	if h.closed || h.inflight == nil || h.inflight.ID != d.ID {
		return Dispatch{}, false
	}

	h.settle(out)
	h.inflight = nil

	if len(h.queue) == 0 {
		return Dispatch{}, false
	}
	text := h.queue[0]
	h.queue = h.queue[1:]
	return h.start(text), true
}

func (h *Holder) settle(out Outcome) {
	if out.Err != nil {
		h.fail(out.Err)
		return
	}
	res, err := Interpret(out.Response)
	if err != nil {
		h.fail(err)
		return
	}

	if res.SessionID != "" {
		h.sessionID = res.SessionID
	}
	h.plan = res.Plan
	h.manifest = res.Manifest
	h.lastErr = nil
	h.messages = append(h.messages, model.Message{Role: model.RoleAgent, Text: res.Text})
}

func (h *Holder) fail(err error) {
	h.lastErr = err
	h.messages = append(h.messages, model.Message{Role: model.RoleAgent, Text: model.BackendErrorText})
}

// Close detaches the holder from its view. Later results are discarded.
func (h *Holder) Close() {
	h.closed = true
	h.queue = nil
}

// Closed reports whether Close was called
func (h *Holder) Closed() bool { return h.closed }
