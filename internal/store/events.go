// Package store persists the per-session event memory of the agent server
// in SQLite.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List when the caller passes zero
const DefaultListLimit = 100

// Event roles and types recorded by the message handler
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleTool  = "tool"

	TypeMessage    = "message"
	TypePlan       = "plan"
	TypeScaffold   = "scaffold"
	TypeSimulation = "simulation"
)

// Event is one entry in a session's memory
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Sequence  int             `json:"sequence"`
	Timestamp float64         `json:"timestamp"`
	Role      string          `json:"role"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
}

// EventStore handles Event reads and writes on SQLite.
type EventStore struct {
	db  *DB
	now func() time.Time
}

// NewEventStore creates a new event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

// NewSessionID returns a fresh random session identifier
func NewSessionID() string {
	return uuid.New().String()
}

// Add appends an event to a session. content is stored as JSON.
func (s *EventStore) Add(ctx context.Context, sessionID, role, typ string, content any) (*Event, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal event content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM forgepilot_events WHERE session_id = ?`,
		sessionID,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	ev := &Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Sequence:  seq,
		Timestamp: float64(s.now().UnixNano()) / float64(time.Second),
		Role:      role,
		Type:      typ,
		Content:   data,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forgepilot_events (id, session_id, sequence, timestamp, role, type, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.SessionID, ev.Sequence, ev.Timestamp, ev.Role, ev.Type, string(ev.Content))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ev, nil
}

// List returns the most recent limit events of a session, oldest first.
func (s *EventStore) List(ctx context.Context, sessionID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sequence, timestamp, role, type, content FROM (
			SELECT * FROM forgepilot_events
			WHERE session_id = ?
			ORDER BY sequence DESC
			LIMIT ?
		) ORDER BY sequence ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		var ev Event
		var content string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Sequence, &ev.Timestamp, &ev.Role, &ev.Type, &content); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Content = json.RawMessage(content)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
