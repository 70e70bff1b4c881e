package tui

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/model"
)

const okBody = `{
	"session_id": "s1",
	"plan": ["init", "write main"],
	"scaffold_manifest": {"main.py": "print('hi')", "README.md": "# Generated Python CLI"},
	"summary": {
		"template": "cli-basic",
		"generated_files": ["main.py"],
		"simulated_actions": {"git": {"ok": true}, "http": {"status": 200}, "code": {"ok": true}}
	}
}`

type sendCall struct {
	input     string
	sessionID string
}

type fakeBackend struct {
	mu       sync.Mutex
	status   model.Status
	probes   int
	sends    []sendCall
	resp     *client.MessageResponse
	sendErr  error
	zip      []byte
	dlErr    error
	manifest model.Manifest
}

func (f *fakeBackend) Probe(ctx context.Context) model.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.status
}

func (f *fakeBackend) SendMessage(ctx context.Context, input, sessionID string) (*client.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sendCall{input: input, sessionID: sessionID})
	return f.resp, f.sendErr
}

func (f *fakeBackend) Download(ctx context.Context, manifest model.Manifest, projectName string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifest = manifest
	return f.zip, f.dlErr
}

func parseResponse(t *testing.T, body string) *client.MessageResponse {
	t.Helper()
	var resp client.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func newTestModel(t *testing.T, backend *fakeBackend, opts Options) Model {
	t.Helper()
	m := NewRootModel(context.Background(), backend, opts)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 48})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// collect runs cmd and any batched commands, returning messages that are
// not spinner ticks
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case spinnerTickMsg:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func findMsg[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestInitProbesOnce(t *testing.T) {
	backend := &fakeBackend{status: model.StatusOnline}
	m := newTestModel(t, backend, Options{})

	health, ok := findMsg[healthMsg](collect(m.Init()))
	require.True(t, ok)
	assert.Equal(t, 1, backend.probes)

	m, _ = update(t, m, health)
	assert.Equal(t, model.StatusOnline, m.Session().Status())
	assert.Contains(t, m.View(), "Connected")
}

func TestHeaderShowsEachStatus(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, Options{})
	assert.Contains(t, m.View(), "Checking")
	assert.Contains(t, m.View(), Subtitle)
	assert.Contains(t, m.View(), "Safe Mode")

	for status, label := range map[model.Status]string{
		model.StatusOnline:   "Connected",
		model.StatusDegraded: "Degraded",
		model.StatusOffline:  "Offline",
	} {
		m, _ := update(t, m, healthMsg{status: status})
		assert.Contains(t, m.View(), label)
	}
}

func TestInitialView(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, Options{})

	view := m.View()
	assert.Contains(t, view, model.WelcomeText)
	assert.NotContains(t, view, "PLAN")
	assert.NotContains(t, view, "FILES")
}

func TestSubmitSuccess(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{})

	m = typeText(t, m, "Create a Python CLI")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.True(t, m.Session().Loading())
	assert.Equal(t, "", m.input.Value())
	require.Equal(t, 2, m.Session().Len())
	assert.Contains(t, m.View(), "Working")

	done, ok := findMsg[dispatchDoneMsg](collect(cmd))
	require.True(t, ok)
	require.Len(t, backend.sends, 1)
	assert.Equal(t, sendCall{input: "Create a Python CLI"}, backend.sends[0])

	m, next := update(t, m, done)
	assert.Nil(t, next)
	assert.False(t, m.Session().Loading())
	assert.Equal(t, "s1", m.Session().SessionID())

	msgs := m.Session().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t,
		"Plan: init → write main\nTemplate: cli-basic\nFiles: main.py\nSimulated: git=true, http=200, code=true",
		msgs[2].Text)

	view := m.View()
	assert.Contains(t, view, "PLAN")
	assert.Contains(t, view, "1. init")
	assert.Contains(t, view, "2. write main")
	assert.Contains(t, view, "FILES")
	assert.Contains(t, view, "main.py")
	assert.Contains(t, view, PlaceholderNoFile)
}

func TestSubmitBlankIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, backend, Options{})

	m = typeText(t, m, "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.Session().Len())
	assert.False(t, m.Session().Loading())
	assert.Empty(t, backend.sends)
}

func TestSubmitFailure(t *testing.T) {
	backend := &fakeBackend{sendErr: client.ErrTransport}
	m := newTestModel(t, backend, Options{})

	m = typeText(t, m, "hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	done, ok := findMsg[dispatchDoneMsg](collect(cmd))
	require.True(t, ok)
	m, _ = update(t, m, done)

	msgs := m.Session().Messages()
	assert.Equal(t, model.BackendErrorText, msgs[len(msgs)-1].Text)
	assert.False(t, m.Session().Loading())
	assert.NotContains(t, m.View(), "PLAN")
}

func TestQueuedSubmitCarriesSessionID(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{})

	m = typeText(t, m, "one")
	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "two")
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 3, m.Session().Len())
	assert.Equal(t, 1, m.Session().Pending())
	assert.Contains(t, m.View(), "1 queued")
	_, ok := findMsg[dispatchDoneMsg](collect(second))
	assert.False(t, ok, "queued submit must not start a request")

	done, ok := findMsg[dispatchDoneMsg](collect(first))
	require.True(t, ok)
	m, next := update(t, m, done)
	require.NotNil(t, next)
	assert.True(t, m.Session().Loading())

	done, ok = findMsg[dispatchDoneMsg](collect(next))
	require.True(t, ok)
	require.Len(t, backend.sends, 2)
	assert.Equal(t, sendCall{input: "two", sessionID: "s1"}, backend.sends[1])

	m, _ = update(t, m, done)
	assert.False(t, m.Session().Loading())
	assert.Equal(t, 5, m.Session().Len())
}

func withResponse(t *testing.T, m Model, backend *fakeBackend) Model {
	t.Helper()
	m = typeText(t, m, "go")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	done, ok := findMsg[dispatchDoneMsg](collect(cmd))
	require.True(t, ok)
	m, _ = update(t, m, done)
	return m
}

func TestFileSelectionAndCopy(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	var copied string
	m := newTestModel(t, backend, Options{Clipboard: func(s string) error {
		copied = s
		return nil
	}})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FocusFiles, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "main.py", m.activeFile)
	view := m.View()
	assert.Contains(t, view, "print('hi')")
	assert.NotContains(t, view, PlaceholderNoFile)

	m, cmd := update(t, m, keyRune('y'))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, "print('hi')", copied)
	assert.Contains(t, m.View(), "Copied main.py")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "README.md", m.activeFile)
	assert.Contains(t, m.View(), "Generated Python CLI")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "README.md", m.activeFile, "selection stops at the last file")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "main.py", m.activeFile)
}

func TestCopyFailureIsSilent(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{Clipboard: func(string) error {
		return errors.New("no clipboard")
	}})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	before := m.Session().Len()

	m, cmd := update(t, m, keyRune('y'))
	m, _ = update(t, m, cmd())
	assert.Equal(t, before, m.Session().Len())
	assert.Empty(t, m.notice)
}

func TestCopyWithoutSelectionDoesNothing(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{Clipboard: func(string) error {
		t.Fatal("clipboard must not be touched")
		return nil
	}})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := update(t, m, keyRune('y'))
	assert.Nil(t, cmd)
}

func TestSelectionMissingFromNewManifestShowsPlaceholder(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "main.py", m.activeFile)

	backend.resp = parseResponse(t, `{"plan": ["x"], "scaffold_manifest": {"index.js": "console.log(1)"}}`)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = withResponse(t, m, backend)

	view := m.View()
	assert.Contains(t, view, "index.js")
	assert.Contains(t, view, PlaceholderNoFile)
	assert.NotContains(t, view, "console.log(1)")
}

func TestEmptyFileShowsPlaceholder(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, `{"plan": ["x"], "scaffold_manifest": {"empty.txt": ""}}`)}
	m := newTestModel(t, backend, Options{})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "empty.txt", m.activeFile)

	assert.Contains(t, m.View(), PlaceholderNoFile)
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{resp: parseResponse(t, okBody), zip: []byte("PK")}
	m := newTestModel(t, backend, Options{DownloadDir: dir})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := update(t, m, keyRune('d'))
	require.NotNil(t, cmd)

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"main.py", "README.md"}, backend.manifest.Keys())

	dest := filepath.Join(dir, "forgepilot_scaffold.zip")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data)
	assert.Contains(t, m.View(), "Saved")
	assert.Equal(t, 3, m.Session().Len(), "download never touches the transcript")
}

func TestDownloadFailureShowsInStatusBar(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody), dlErr: &client.StatusError{Code: 500}}
	m := newTestModel(t, backend, Options{DownloadDir: t.TempDir()})
	m = withResponse(t, m, backend)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, cmd := update(t, m, keyRune('d'))
	m, _ = update(t, m, cmd())

	assert.True(t, m.noticeIsErr)
	assert.Contains(t, m.notice, "Download failed")
	assert.Equal(t, 3, m.Session().Len())
}

func TestDownloadWithEmptyManifestDoesNothing(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, Options{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := update(t, m, keyRune('d'))
	assert.Nil(t, cmd)
}

func TestFilesFocusKeysDoNotType(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, Options{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "y")
	assert.Equal(t, "", m.input.Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, FocusInput, m.focus)
	m = typeText(t, m, "y")
	assert.Equal(t, "y", m.input.Value())
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, Options{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, keyRune('?'))
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = update(t, m, keyRune('?'))
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
}

func TestQuitDiscardsLateResults(t *testing.T) {
	backend := &fakeBackend{resp: parseResponse(t, okBody)}
	m := newTestModel(t, backend, Options{})

	m = typeText(t, m, "hello")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	done, ok := findMsg[dispatchDoneMsg](collect(cmd))
	require.True(t, ok)

	m, quit := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
	assert.Error(t, m.ctx.Err())

	m, next := update(t, m, done)
	assert.Nil(t, next)
	assert.Equal(t, 2, m.Session().Len())
	assert.Empty(t, m.Session().SessionID())
}

func TestRenderTranscript(t *testing.T) {
	out := renderTranscript([]model.Message{
		model.Welcome(),
		{Role: model.RoleUser, Text: "hello"},
		{Role: model.RoleAgent, Text: "Plan: N/A"},
	}, 60)

	for _, want := range []string{"system", model.WelcomeText, "user", "hello", "agent", "Plan: N/A"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "hello"), strings.Index(out, "Plan: N/A"))
}
