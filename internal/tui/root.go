// Package tui is the ForgePilot chat client: a Bubble Tea program that
// shows the transcript, the latest plan and the generated files, and
// talks to the agent backend through tea.Cmd goroutines.
package tui

import (
	"context"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/logging"
	"github.com/iammorganparry/forgepilot/internal/session"
)

// Focus is the pane receiving key presses
type Focus int

const (
	FocusInput Focus = iota
	FocusFiles
)

// Layout constants
const (
	headerHeight    = 2
	inputHeight     = 3
	statusBarHeight = 1
	sidePanelRatio  = 0.4
	minSidePanel    = 30
)

// Options configures a root model
type Options struct {
	// DownloadDir receives saved bundles; "" means the working directory
	DownloadDir string
	Logger      *slog.Logger
	// Clipboard overrides the system clipboard writer
	Clipboard func(string) error
}

// Model is the root Bubble Tea model
type Model struct {
	// Terminal dimensions
	width  int
	height int
	ready  bool

	ctx     context.Context
	cancel  context.CancelFunc
	backend Backend
	holder  *session.Holder
	logger  *slog.Logger

	downloadDir string
	copyText    func(string) error
	markdown    *markdownRenderer

	input    textinput.Model
	viewport viewport.Model
	focus    Focus
	showHelp bool

	// activeFile is the selected manifest key; "" until the user picks one
	activeFile string

	spinnerIndex int
	spinning     bool

	// notice is the last copy or download result shown in the status bar
	notice      string
	noticeIsErr bool

	keys KeyMap
}

// NewRootModel creates a new root model. Cancelling ctx, or quitting,
// aborts any request still in flight.
func NewRootModel(ctx context.Context, backend Backend, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe the project you want to scaffold..."
	ti.Prompt = "❯ "
	ti.PromptStyle = InputPromptStyle
	ti.CharLimit = 0
	ti.Width = 80
	ti.Focus()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	ctx, cancel := context.WithCancel(ctx)
	m := Model{
		ctx:         ctx,
		cancel:      cancel,
		backend:     backend,
		holder:      session.New(),
		logger:      logger,
		downloadDir: opts.DownloadDir,
		copyText:    copyText,
		markdown:    &markdownRenderer{},
		input:       ti,
		viewport:    viewport.New(80, 20),
		focus:       FocusInput,
		keys:        DefaultKeyMap(),
	}
	m.refreshTranscript()
	return m
}

// Init issues the single health probe for this run
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		probeCmd(m.ctx, m.backend),
	)
}

// Session exposes the state holder, mainly for tests
func (m Model) Session() *session.Holder { return m.holder }

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case healthMsg:
		m.holder.SetStatus(msg.status)
		m.logger.Info("backend status", "status", msg.status.Label())
		return m, nil

	case dispatchDoneMsg:
		return m.handleDispatchDone(msg)

	case downloadDoneMsg:
		if msg.err != nil {
			m.logger.Warn("bundle download failed", "error", msg.err, "class", client.Classify(msg.err))
			m.notice = "Download failed: " + msg.err.Error()
			m.noticeIsErr = true
		} else {
			m.logger.Info("bundle saved", "path", msg.path)
			m.notice = "Saved " + msg.path
			m.noticeIsErr = false
		}
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.logger.Debug("clipboard write failed", "file", msg.file, "error", msg.err)
			return m, nil
		}
		m.notice = "Copied " + msg.file
		m.noticeIsErr = false
		return m, nil

	case spinnerTickMsg:
		if !m.holder.Loading() {
			m.spinning = false
			return m, nil
		}
		m.spinnerIndex++
		return m, spinnerTickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quit()
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Switch):
		m.toggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == FocusFiles {
		return m.handleFilesKey(msg)
	}

	if key.Matches(msg, m.keys.Enter) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.setFocus(FocusInput)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Copy):
		content, ok := m.activeContent()
		if !ok {
			return m, nil
		}
		return m, copyCmd(m.copyText, m.activeFile, content)
	case key.Matches(msg, m.keys.Download):
		manifest := m.holder.Manifest()
		if manifest.Len() == 0 {
			return m, nil
		}
		m.notice = "Downloading bundle..."
		m.noticeIsErr = false
		return m, downloadCmd(m.ctx, m.backend, manifest, m.downloadDir)
	}
	return m, nil
}

// submit sends the current input. Blank input is left in place and
// nothing else changes.
func (m Model) submit() (tea.Model, tea.Cmd) {
	before := m.holder.Len()
	d, start := m.holder.Send(m.input.Value())
	if m.holder.Len() == before {
		return m, nil
	}

	m.input.Reset()
	m.refreshTranscript()

	var cmds []tea.Cmd
	if start {
		m.logger.Debug("dispatch", "id", d.ID, "session_id", d.SessionID)
		cmds = append(cmds, dispatchCmd(m.ctx, m.backend, d))
	}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, spinnerTickCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleDispatchDone(msg dispatchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("message dispatch failed",
			"id", msg.dispatch.ID,
			"class", client.Classify(msg.err),
			"error", msg.err,
		)
	}

	next, ok := m.holder.Resolve(msg.dispatch, session.Outcome{Response: msg.resp, Err: msg.err})
	if err := m.holder.LastError(); err != nil && msg.err == nil {
		m.logger.Warn("message response rejected", "id", msg.dispatch.ID, "error", err)
	}
	m.refreshTranscript()

	if !ok {
		return m, nil
	}
	m.logger.Debug("dispatch", "id", next.ID, "session_id", next.SessionID, "queued", m.holder.Pending())
	return m, dispatchCmd(m.ctx, m.backend, next)
}

func (m *Model) quit() {
	m.holder.Close()
	m.cancel()
}

func (m *Model) toggleFocus() {
	if m.focus == FocusInput {
		m.setFocus(FocusFiles)
		return
	}
	m.setFocus(FocusInput)
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	if f == FocusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// moveSelection steps through the manifest keys. With no valid selection
// the first step lands on the first or last file.
func (m *Model) moveSelection(delta int) {
	keys := m.holder.Manifest().Keys()
	if len(keys) == 0 {
		return
	}

	idx := -1
	for i, k := range keys {
		if k == m.activeFile {
			idx = i
			break
		}
	}

	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(keys) - 1
	default:
		idx += delta
		if idx < 0 {
			idx = 0
		}
		if idx >= len(keys) {
			idx = len(keys) - 1
		}
	}
	m.activeFile = keys[idx]
}

// activeContent returns the selected file when it exists in the current
// manifest
func (m Model) activeContent() (string, bool) {
	if m.activeFile == "" {
		return "", false
	}
	return m.holder.Manifest().Get(m.activeFile)
}

func (m *Model) resize() {
	chatWidth, bodyHeight := m.chatSize()

	m.viewport.Width = chatWidth - 4
	m.viewport.Height = bodyHeight - 3
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.refreshTranscript()
}

// chatSize returns the chat panel width and the body height
func (m Model) chatSize() (int, int) {
	side := m.sideWidth()
	chatWidth := m.width - side
	if chatWidth < 20 {
		chatWidth = 20
	}
	bodyHeight := m.height - headerHeight - inputHeight - statusBarHeight
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	return chatWidth, bodyHeight
}

func (m Model) sideWidth() int {
	side := int(float64(m.width) * sidePanelRatio)
	if side < minSidePanel {
		side = minSidePanel
	}
	return side
}

// refreshTranscript re-renders the transcript and jumps to the newest entry
func (m *Model) refreshTranscript() {
	m.viewport.SetContent(renderTranscript(m.holder.Messages(), m.viewport.Width))
	m.viewport.GotoBottom()
}
