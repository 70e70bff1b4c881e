package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iammorganparry/forgepilot/internal/client"
)

func response(t *testing.T, body string) *client.MessageResponse {
	t.Helper()
	var resp client.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func TestInterpretFullResponse(t *testing.T) {
	res, err := Interpret(response(t, `{
		"session_id": "s1",
		"plan": ["init", "write main"],
		"scaffold_manifest": {"main.py": "print('hi')"},
		"summary": {
			"template": "cli-basic",
			"generated_files": ["main.py"],
			"simulated_actions": {"git": {"ok": true}, "http": {"status": 200}, "code": {"ok": true}}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, []string{"init", "write main"}, []string(res.Plan))
	assert.Equal(t, []string{"main.py"}, res.Manifest.Keys())
	assert.Equal(t,
		"Plan: init → write main\nTemplate: cli-basic\nFiles: main.py\nSimulated: git=true, http=200, code=true",
		res.Text)
}

func TestInterpretMissingFields(t *testing.T) {
	res, err := Interpret(response(t, `{}`))
	require.NoError(t, err)

	assert.Empty(t, res.SessionID)
	assert.Empty(t, res.Plan)
	assert.Equal(t, 0, res.Manifest.Len())
	assert.Equal(t,
		"Plan: N/A\nTemplate: undefined\nFiles: \nSimulated: git=undefined, http=undefined, code=undefined",
		res.Text)
}

func TestInterpretEdgeValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plan not a list",
			body: `{"plan": "init"}`,
			want: "Plan: N/A\nTemplate: undefined\nFiles: \nSimulated: git=undefined, http=undefined, code=undefined",
		},
		{
			name: "empty plan",
			body: `{"plan": []}`,
			want: "Plan: \nTemplate: undefined\nFiles: \nSimulated: git=undefined, http=undefined, code=undefined",
		},
		{
			name: "null template and failed actions",
			body: `{"summary": {"template": null, "generated_files": ["a", "b"], "simulated_actions": {"git": {"ok": false}, "http": {"status": 503}, "code": {"ok": false}}}}`,
			want: "Plan: N/A\nTemplate: null\nFiles: a, b\nSimulated: git=false, http=503, code=false",
		},
		{
			name: "null generated files",
			body: `{"summary": {"generated_files": null}}`,
			want: "Plan: N/A\nTemplate: undefined\nFiles: \nSimulated: git=undefined, http=undefined, code=undefined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Interpret(response(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestInterpretFalsySessionID(t *testing.T) {
	for _, body := range []string{`{"session_id": null}`, `{"session_id": ""}`, `{}`} {
		res, err := Interpret(response(t, body))
		require.NoError(t, err)
		assert.Empty(t, res.SessionID, body)
	}
}

func TestInterpretRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"manifest is a string", `{"scaffold_manifest": "main.py"}`},
		{"manifest is a list", `{"scaffold_manifest": ["main.py"]}`},
		{"manifest value not a string", `{"scaffold_manifest": {"main.py": 1}}`},
		{"generated files is a string", `{"summary": {"generated_files": "main.py"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpret(response(t, tt.body))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	_, err := Interpret(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}
