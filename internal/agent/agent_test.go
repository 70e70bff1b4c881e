package agent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/forgepilot/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAgent(t *testing.T) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()
	catalog, err := LoadCatalog()
	require.NoError(t, err)
	tools, err := NewTools(dir, false, testLogger())
	require.NoError(t, err)
	tools.now = func() time.Time { return time.Unix(1700000000, 0) }
	return New(catalog, tools, testLogger()), dir
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		want        model.Plan
	}{
		{
			name:        "plain",
			instruction: "Create a Python CLI",
			want: model.Plan{
				"Understand requirements",
				"Propose project structure",
				"Generate scaffold files",
				"Simulate tool execution (git, http, code run)",
				"Summarize outcome and next steps",
			},
		},
		{
			name:        "api",
			instruction: "REST API for todos",
			want: model.Plan{
				"Understand requirements",
				"Propose project structure",
				"Define API endpoints and data models",
				"Generate scaffold files",
				"Simulate tool execution (git, http, code run)",
				"Summarize outcome and next steps",
			},
		},
		{
			name:        "api and frontend",
			instruction: "api with a frontend",
			want: model.Plan{
				"Understand requirements",
				"Propose project structure",
				"Define frontend pages and components",
				"Define API endpoints and data models",
				"Generate scaffold files",
				"Simulate tool execution (git, http, code run)",
				"Summarize outcome and next steps",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decompose(tt.instruction))
		})
	}
}

func TestDecomposeDoesNotShareBaseSteps(t *testing.T) {
	first := Decompose("api")
	first[0] = "changed"
	assert.Equal(t, "Understand requirements", Decompose("cli")[0])
}

func TestCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"node_cli", "python_cli"}, c.Names())
	assert.Equal(t, "node_cli", c.Choose("An Express server").Name)
	assert.Equal(t, "node_cli", c.Choose("typescript tool").Name)
	assert.Equal(t, "python_cli", c.Choose("Create a Python CLI").Name)

	py, ok := c.Get("python_cli")
	require.True(t, ok)
	assert.Equal(t, []string{"pyproject.toml", "cli.py", "README.md"}, py.Manifest().Keys())
	assert.Equal(t, "cli.py", py.Entry)
	readme, _ := py.Manifest().Get("README.md")
	assert.Equal(t, "# Generated Python CLI\nRun: python cli.py --name You", readme)

	node, ok := c.Get("node_cli")
	require.True(t, ok)
	assert.Equal(t, []string{"package.json", "index.js", "README.md"}, node.Manifest().Keys())
	index, _ := node.Manifest().Get("index.js")
	assert.Equal(t, "#!/usr/bin/env node\nconsole.log(\"Hello from CLI\");\n", index)
}

func TestRun(t *testing.T) {
	a, dir := newTestAgent(t)

	res, err := a.Run(context.Background(), "Create a Python CLI")
	require.NoError(t, err)

	assert.Len(t, res.Plan, 5)
	assert.Equal(t, "python_cli", res.Summary.Template)
	assert.Equal(t, []string{"pyproject.toml", "cli.py", "README.md"}, res.Summary.GeneratedFiles)

	actions := res.Summary.SimulatedActions
	assert.True(t, actions.Git.OK)
	assert.Equal(t, "sim-1700000000", actions.Git.Commit)
	assert.Equal(t, res.Summary.GeneratedFiles, actions.Git.Files)
	assert.True(t, actions.HTTP.OK)
	assert.Equal(t, 200, actions.HTTP.Status)
	assert.Equal(t, HealthCheckURL, actions.HTTP.URL)
	assert.True(t, actions.Code.OK)
	assert.Equal(t, "cli.py", actions.Code.Filename)
	assert.True(t, actions.Code.Simulated)

	for _, name := range res.Manifest.Keys() {
		want, _ := res.Manifest.Get(name)
		got, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestRunCanceled(t *testing.T) {
	a, _ := newTestAgent(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCodeExecuteDefaultFilename(t *testing.T) {
	dir := t.TempDir()
	tools, err := NewTools(dir, false, testLogger())
	require.NoError(t, err)
	tools.now = func() time.Time { return time.Unix(42, 0) }

	res := tools.CodeExecute(context.Background(), "print(1)", "python", "")
	assert.True(t, res.OK)
	assert.Equal(t, "snippet_42.py", res.Filename)

	res = tools.CodeExecute(context.Background(), "x", "ruby", "")
	assert.Equal(t, "snippet_42.txt", res.Filename)
}

func TestGitCommitStaysInSandbox(t *testing.T) {
	root := t.TempDir()
	sandbox := filepath.Join(root, "sandbox")
	tools, err := NewTools(sandbox, false, testLogger())
	require.NoError(t, err)

	res := tools.GitCommit(context.Background(), "msg", model.NewManifest("../escape.txt", "x"))
	require.True(t, res.OK)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(sandbox, "escape.txt"))
	assert.NoError(t, err)
}
