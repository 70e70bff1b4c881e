package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iammorganparry/forgepilot/internal/model"
)

// Subtitle is shown next to the title in the header
const Subtitle = "Autonomous scaffold & simulation agent"

// PlaceholderNoFile fills the content pane when nothing valid is selected
const PlaceholderNoFile = "Select a file"

// View renders the program
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.helpView()
	}

	chatWidth, bodyHeight := m.chatSize()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderChat(chatWidth, bodyHeight),
		m.renderSide(m.sideWidth(), bodyHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// renderHeader renders the title line and the connectivity badge
func (m Model) renderHeader() string {
	status := m.holder.Status()
	left := TitleStyle.Render("ForgePilot") + "  " +
		SubtitleStyle.Render(Subtitle) + "  " +
		SafeModeStyle.Render("Safe Mode")
	badge := statusBadge(status)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		PaddingLeft(1).
		Render(left+strings.Repeat(" ", gap)+badge) + "\n"
}

func statusBadge(s model.Status) string {
	color := ColorFgMuted
	switch s {
	case model.StatusOnline:
		color = ColorGreen
	case model.StatusDegraded:
		color = ColorYellow
	case model.StatusOffline:
		color = ColorRed
	}
	return badgeStyle(color).Render(s.Icon() + " " + s.Label())
}

// renderChat renders the transcript panel
func (m Model) renderChat(width, height int) string {
	title := PanelTitleStyle.Render("CHAT")
	if m.holder.Loading() {
		title += "  " + m.renderLoadingIndicator()
	}

	style := PanelStyle
	if m.focus == FocusInput {
		style = FocusedPanelStyle
	}
	return style.
		Width(width - 2).
		Height(height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View()))
}

func (m Model) renderLoadingIndicator() string {
	frame := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
	text := frame + " Working…"
	if n := m.holder.Pending(); n > 0 {
		text += fmt.Sprintf(" (%d queued)", n)
	}
	return WarningStyle.Render(text)
}

// renderTranscript renders every message top to bottom with its role label
func renderTranscript(messages []model.Message, width int) string {
	if width < 10 {
		width = 10
	}
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(msg model.Message, width int) string {
	label := RoleLabelStyle.Render(string(msg.Role))
	inner := width - 2
	switch msg.Role {
	case model.RoleUser:
		return UserInputStyle.Width(inner).Render(label + "\n" + UserTextStyle.Render(msg.Text))
	case model.RoleSystem:
		return SystemStyle.Width(inner).Render(label + "\n" + SystemTextStyle.Render(msg.Text))
	default:
		return AgentStyle.Width(inner).Render(label + "\n" + msg.Text)
	}
}

// renderSide stacks the plan and files panels. Each renders nothing when
// it has nothing to show.
func (m Model) renderSide(width, height int) string {
	var panels []string
	used := 0

	if plan := m.renderPlan(width); plan != "" {
		panels = append(panels, plan)
		used = lipgloss.Height(plan)
	}
	if files := m.renderFiles(width, height-used); files != "" {
		panels = append(panels, files)
	}

	return lipgloss.NewStyle().
		Width(width).
		MaxHeight(height).
		Render(lipgloss.JoinVertical(lipgloss.Left, panels...))
}

func (m Model) renderPlan(width int) string {
	plan := m.holder.Plan()
	if len(plan) == 0 {
		return ""
	}

	lines := []string{PanelTitleStyle.Render("PLAN")}
	for i, step := range plan {
		lines = append(lines, StepNumberStyle.Render(fmt.Sprintf("%d.", i+1))+" "+step)
	}
	return PanelStyle.Width(width - 2).Render(strings.Join(lines, "\n"))
}

func (m Model) renderFiles(width, height int) string {
	manifest := m.holder.Manifest()
	if manifest.Len() == 0 {
		return ""
	}

	var list []string
	for _, name := range manifest.Keys() {
		if name == m.activeFile {
			list = append(list, ActiveFileStyle.Render("▸ "+name))
		} else {
			list = append(list, FileItemStyle.Render("  "+name))
		}
	}

	contentWidth := width - 6
	content := m.renderFileContent(contentWidth)

	// Panel borders, title and separator take five lines
	maxContent := height - len(list) - 5
	if maxContent < 1 {
		maxContent = 1
	}
	content = truncateLines(content, maxContent)

	inner := lipgloss.JoinVertical(lipgloss.Left,
		PanelTitleStyle.Render("FILES"),
		strings.Join(list, "\n"),
		DimStyle.Render(strings.Repeat("─", max(contentWidth, 1))),
		content,
	)

	style := PanelStyle
	if m.focus == FocusFiles {
		style = FocusedPanelStyle
	}
	return style.Width(width - 2).Render(inner)
}

func (m Model) renderFileContent(width int) string {
	content, ok := m.activeContent()
	if !ok || content == "" {
		return DimStyle.Render(PlaceholderNoFile)
	}
	if isMarkdown(m.activeFile) {
		if out, err := m.markdown.render(content, width); err == nil {
			return out
		}
	}
	return FileContentStyle.Width(width).Render(content)
}

func truncateLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n-1], "\n") + "\n" + DimStyle.Render("…")
}

// renderInput renders the message input box
func (m Model) renderInput() string {
	style := PanelStyle.Width(m.width - 4)
	if m.focus == FocusInput {
		style = FocusedPanelStyle.Width(m.width - 4)
	}
	return style.Render(m.input.View())
}

// renderStatusBar renders the bottom status bar
func (m Model) renderStatusBar() string {
	var status string
	if m.holder.Loading() {
		status = StatusRunningStyle.Render("● Sending")
	} else {
		status = StatusIdleStyle.Render("○ Ready")
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ColorFgMuted)
	keyStyle := lipgloss.NewStyle().Foreground(ColorFgPrimary)

	var helpHint string
	if m.focus == FocusFiles {
		helpHint = mutedStyle.Render(" │ ") +
			keyStyle.Render("↑/↓") + mutedStyle.Render(" select │ ") +
			keyStyle.Render("y") + mutedStyle.Render(" copy │ ") +
			keyStyle.Render("d") + mutedStyle.Render(" download │ ") +
			keyStyle.Render("?") + mutedStyle.Render(" help │ ") +
			keyStyle.Render("Tab") + mutedStyle.Render(" chat")
	} else {
		helpHint = mutedStyle.Render(" │ ") +
			keyStyle.Render("Enter") + mutedStyle.Render(" send │ ") +
			keyStyle.Render("Tab") + mutedStyle.Render(" files │ ") +
			keyStyle.Render("PgUp/PgDn") + mutedStyle.Render(" scroll │ ") +
			keyStyle.Render("Ctrl+C") + mutedStyle.Render(" quit")
	}

	var notice string
	if m.notice != "" {
		style := SuccessStyle
		if m.noticeIsErr {
			style = ErrorStyle
		}
		notice = mutedStyle.Render(" │ ") + style.Render(m.notice)
	}

	return StatusBarStyle.Render(status + helpHint + notice)
}

// helpView renders the help overlay
func (m Model) helpView() string {
	title := HelpTitleStyle.Render("Keyboard Shortcuts")

	var rows []string
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			rows = append(rows, HelpKeyStyle.Render(fmt.Sprintf("%-8s", h.Key))+HelpDescStyle.Render(h.Desc))
		}
	}
	footer := DimStyle.Render("Press ? or esc to close")

	return HelpStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		title, "", strings.Join(rows, "\n"), "", footer,
	))
}
