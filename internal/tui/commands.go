package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/iammorganparry/forgepilot/internal/bundle"
	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/model"
	"github.com/iammorganparry/forgepilot/internal/session"
)

// Backend is the subset of the API client the TUI needs
type Backend interface {
	Probe(ctx context.Context) model.Status
	SendMessage(ctx context.Context, input, sessionID string) (*client.MessageResponse, error)
	Download(ctx context.Context, manifest model.Manifest, projectName string) ([]byte, error)
}

// Messages
type healthMsg struct {
	status model.Status
}

type dispatchDoneMsg struct {
	dispatch session.Dispatch
	resp     *client.MessageResponse
	err      error
}

type downloadDoneMsg struct {
	path string
	err  error
}

type copyDoneMsg struct {
	file string
	err  error
}

type spinnerTickMsg struct{}

// Spinner animation frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func probeCmd(ctx context.Context, backend Backend) tea.Cmd {
	return func() tea.Msg {
		return healthMsg{status: backend.Probe(ctx)}
	}
}

func dispatchCmd(ctx context.Context, backend Backend, d session.Dispatch) tea.Cmd {
	return func() tea.Msg {
		resp, err := backend.SendMessage(ctx, d.Input, d.SessionID)
		return dispatchDoneMsg{dispatch: d, resp: resp, err: err}
	}
}

func downloadCmd(ctx context.Context, backend Backend, manifest model.Manifest, dir string) tea.Cmd {
	return func() tea.Msg {
		data, err := backend.Download(ctx, manifest, bundle.DefaultProjectName)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		path, err := bundle.Save(dir, bundle.DefaultProjectName, data)
		return downloadDoneMsg{path: path, err: err}
	}
}

func copyCmd(write func(string) error, file, content string) tea.Cmd {
	return func() tea.Msg {
		return copyDoneMsg{file: file, err: write(content)}
	}
}

// spinnerTickCmd returns a fast tick command for spinner animation
func spinnerTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}
