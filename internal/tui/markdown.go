package tui

import (
	"path"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders .md files for the files panel. The glamour
// renderer is rebuilt only when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

func isMarkdown(name string) bool {
	return strings.EqualFold(path.Ext(name), ".md")
}

func (r *markdownRenderer) render(content string, width int) (string, error) {
	if width < 20 {
		width = 20
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.renderer = tr
		r.width = width
	}

	out, err := r.renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
