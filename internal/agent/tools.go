package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iammorganparry/forgepilot/internal/bundle"
	"github.com/iammorganparry/forgepilot/internal/model"
)

// ToolResult is the record a simulated tool returns. Fields that don't
// apply to a tool are left zero.
type ToolResult struct {
	OK        bool     `json:"ok"`
	Type      string   `json:"type"`
	Simulated bool     `json:"simulated"`
	Commit    string   `json:"commit,omitempty"`
	Files     []string `json:"files,omitempty"`
	Message   string   `json:"message,omitempty"`
	URL       string   `json:"url,omitempty"`
	Method    string   `json:"method,omitempty"`
	Status    int      `json:"status,omitempty"`
	Filename  string   `json:"filename,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp float64  `json:"timestamp"`
}

// Tools runs git, http and code actions against a sandbox directory.
// Nothing leaves the sandbox: commits are file writes, fetches never hit
// the network and code is written but not run.
type Tools struct {
	sandboxDir   string
	allowExecute bool
	logger       *slog.Logger
	now          func() time.Time
}

// NewTools prepares the sandbox directory
func NewTools(sandboxDir string, allowExecute bool, logger *slog.Logger) (*Tools, error) {
	if err := os.MkdirAll(sandboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	return &Tools{
		sandboxDir:   sandboxDir,
		allowExecute: allowExecute,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// AllowExecute reports the configured execution policy. Execution stays
// simulated either way.
func (t *Tools) AllowExecute() bool { return t.allowExecute }

func (t *Tools) timestamp() (time.Time, float64) {
	now := t.now()
	return now, float64(now.UnixNano()) / float64(time.Second)
}

func (t *Tools) write(rel, content string) error {
	name, err := bundle.EntryName(rel)
	if err != nil {
		return err
	}
	abs := filepath.Join(t.sandboxDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// GitCommit writes changes into the sandbox and returns a simulated commit id
func (t *Tools) GitCommit(ctx context.Context, message string, changes model.Manifest) ToolResult {
	now, ts := t.timestamp()
	res := ToolResult{Type: "git_commit", Simulated: true, Message: message, Timestamp: ts}

	for _, rel := range changes.Keys() {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			return res
		}
		content, _ := changes.Get(rel)
		if err := t.write(rel, content); err != nil {
			t.logger.Warn("sandbox write failed", "file", rel, "error", err)
			res.Error = err.Error()
			return res
		}
	}

	res.OK = true
	res.Commit = fmt.Sprintf("sim-%d", now.Unix())
	res.Files = changes.Keys()
	return res
}

// HTTPFetch pretends to fetch url and always reports 200
func (t *Tools) HTTPFetch(ctx context.Context, url, method string) ToolResult {
	_, ts := t.timestamp()
	if method == "" {
		method = "GET"
	}
	res := ToolResult{Type: "http_fetch", Simulated: true, URL: url, Method: method, Timestamp: ts}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Status = 200
	return res
}

// CodeExecute writes code into the sandbox and reports a simulated run.
// An empty filename becomes snippet_<unix>.<ext>.
func (t *Tools) CodeExecute(ctx context.Context, code, language, filename string) ToolResult {
	now, ts := t.timestamp()
	if filename == "" {
		ext := "txt"
		if language == "python" {
			ext = "py"
		}
		filename = fmt.Sprintf("snippet_%d.%s", now.Unix(), ext)
	}

	res := ToolResult{Type: "code_execute", Filename: filename, Timestamp: ts}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := t.write(filename, code); err != nil {
		res.Error = err.Error()
		return res
	}

	res.OK = true
	res.Simulated = true
	return res
}
