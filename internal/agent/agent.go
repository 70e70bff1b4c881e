// Package agent is the local stand-in for the ForgePilot scaffolding
// agent. It breaks an instruction into plan steps, picks a template and
// runs simulated tool actions over the generated files.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/iammorganparry/forgepilot/internal/model"
)

// HealthCheckURL is the target of the simulated http_fetch
const HealthCheckURL = "https://example.com/health"

var baseSteps = []string{
	"Understand requirements",
	"Propose project structure",
	"Generate scaffold files",
	"Simulate tool execution (git, http, code run)",
	"Summarize outcome and next steps",
}

// Decompose turns an instruction into ordered plan steps. Mentions of an
// API or a frontend add a design step after the structure proposal.
func Decompose(instruction string) model.Plan {
	lc := strings.ToLower(instruction)
	steps := make(model.Plan, len(baseSteps))
	copy(steps, baseSteps)

	if strings.Contains(lc, "api") {
		steps = insertAt(steps, 2, "Define API endpoints and data models")
	}
	if strings.Contains(lc, "frontend") || strings.Contains(lc, "ui") {
		steps = insertAt(steps, 2, "Define frontend pages and components")
	}
	return steps
}

func insertAt(steps model.Plan, i int, step string) model.Plan {
	steps = append(steps, "")
	copy(steps[i+1:], steps[i:])
	steps[i] = step
	return steps
}

// GitSummary is the slice of the git_commit result reported to clients
type GitSummary struct {
	OK     bool     `json:"ok"`
	Commit string   `json:"commit"`
	Files  []string `json:"files"`
}

// HTTPSummary is the slice of the http_fetch result reported to clients
type HTTPSummary struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
	URL    string `json:"url"`
}

// CodeSummary is the slice of the code_execute result reported to clients
type CodeSummary struct {
	OK        bool   `json:"ok"`
	Filename  string `json:"filename"`
	Simulated bool   `json:"simulated"`
}

// SimulatedActions groups the three tool summaries
type SimulatedActions struct {
	Git  GitSummary  `json:"git"`
	HTTP HTTPSummary `json:"http"`
	Code CodeSummary `json:"code"`
}

// Summary describes what a run produced
type Summary struct {
	Template         string           `json:"template"`
	GeneratedFiles   []string         `json:"generated_files"`
	SimulatedActions SimulatedActions `json:"simulated_actions"`
}

// Result is the outcome of one agent run
type Result struct {
	Plan     model.Plan
	Manifest model.Manifest
	Summary  Summary
}

// Agent plans and scaffolds projects
type Agent struct {
	catalog *Catalog
	tools   *Tools
	logger  *slog.Logger
}

// New creates an agent
func New(catalog *Catalog, tools *Tools, logger *slog.Logger) *Agent {
	return &Agent{catalog: catalog, tools: tools, logger: logger}
}

// Run plans instruction, generates the chosen template and simulates the
// commit, fetch and execution steps
func (a *Agent) Run(ctx context.Context, instruction string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan := Decompose(instruction)
	tmpl := a.catalog.Choose(instruction)
	manifest := tmpl.Manifest()

	gitRes := a.tools.GitCommit(ctx, "Initial scaffold", manifest)
	httpRes := a.tools.HTTPFetch(ctx, HealthCheckURL, "GET")
	code, _ := manifest.Get(tmpl.Entry)
	codeRes := a.tools.CodeExecute(ctx, code, tmpl.Language, tmpl.Entry)

	a.logger.Info("agent run",
		"template", tmpl.Name,
		"steps", len(plan),
		"files", manifest.Len(),
		"git_ok", gitRes.OK,
		"code_ok", codeRes.OK,
	)

	return &Result{
		Plan:     plan,
		Manifest: manifest,
		Summary: Summary{
			Template:       tmpl.Name,
			GeneratedFiles: manifest.Keys(),
			SimulatedActions: SimulatedActions{
				Git:  GitSummary{OK: gitRes.OK, Commit: gitRes.Commit, Files: gitRes.Files},
				HTTP: HTTPSummary{OK: httpRes.OK, Status: httpRes.Status, URL: httpRes.URL},
				Code: CodeSummary{OK: codeRes.OK, Filename: codeRes.Filename, Simulated: codeRes.Simulated},
			},
		},
	}, nil
}
