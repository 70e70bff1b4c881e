package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iammorganparry/forgepilot/internal/client"
	"github.com/iammorganparry/forgepilot/internal/model"
)

// PlanSeparator joins plan steps in the summary line
const PlanSeparator = " → "

// ErrMalformed marks a response that decoded as JSON but cannot be applied
var ErrMalformed = errors.New("malformed message response")

// Result is a message response reduced to the state it replaces
type Result struct {
	// SessionID is empty when the response carried no truthy session id
	SessionID string
	Plan      model.Plan
	Manifest  model.Manifest
	Text      string
}

// Interpret validates resp and builds the state update plus the four-line
// agent summary. Either everything applies or nothing does.
func Interpret(resp *client.MessageResponse) (Result, error) {
	if resp == nil {
		return Result{}, ErrMalformed
	}

	var res Result
	if resp.SessionID.Truthy() {
		res.SessionID = resp.SessionID.String()
	}

	planLine := "N/A"
	if steps, ok := resp.Plan.Array(); ok {
		res.Plan = make(model.Plan, len(steps))
		for i, step := range steps {
			res.Plan[i] = step.JoinElement()
		}
		planLine = strings.Join(res.Plan, PlanSeparator)
	}

	if resp.ScaffoldManifest.Truthy() {
		if err := resp.ScaffoldManifest.Decode(&res.Manifest); err != nil {
			return Result{}, fmt.Errorf("%w: scaffold_manifest: %w", ErrMalformed, err)
		}
	}

	files := ""
	if resp.Summary.GeneratedFiles.Truthy() {
		items, ok := resp.Summary.GeneratedFiles.Array()
		if !ok {
			return Result{}, fmt.Errorf("%w: generated_files is not a list", ErrMalformed)
		}
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.JoinElement()
		}
		files = strings.Join(names, ", ")
	}

	actions := resp.Summary.SimulatedActions
	res.Text = strings.Join([]string{
		"Plan: " + planLine,
		"Template: " + resp.Summary.Template.String(),
		"Files: " + files,
		fmt.Sprintf("Simulated: git=%s, http=%s, code=%s",
			actions.Git.OK, actions.HTTP.Status, actions.Code.OK),
	}, "\n")
	return res, nil
}
