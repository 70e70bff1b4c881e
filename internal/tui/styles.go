package tui

import "github.com/charmbracelet/lipgloss"

// One Dark Pro color palette
var (
	ColorBgHighlight = lipgloss.Color("#2C313C")

	ColorFgPrimary   = lipgloss.Color("#ABB2BF")
	ColorFgSecondary = lipgloss.Color("#828997")
	ColorFgMuted     = lipgloss.Color("#636B78")
	ColorFgComment   = lipgloss.Color("#5C6370")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")

	ColorBorder = lipgloss.Color("#3F4451")
)

// Component styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	SafeModeStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Border(lipgloss.RoundedBorder(), false, true).
			BorderForeground(ColorCyan).
			Padding(0, 1)

	// Panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	FocusedPanelStyle = PanelStyle.
				BorderForeground(ColorGreen)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	// Transcript
	SystemStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorMagenta).
			PaddingLeft(1)

	SystemTextStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	UserInputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorGreen).
			PaddingLeft(1)

	UserTextStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	AgentStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorBlue).
			PaddingLeft(1).
			PaddingRight(1)

	RoleLabelStyle = lipgloss.NewStyle().
			Foreground(ColorFgSecondary).
			Bold(true)

	// Plan and files
	StepNumberStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	FileItemStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary).
			Padding(0, 1)

	ActiveFileStyle = lipgloss.NewStyle().
			Background(ColorBgHighlight).
			Foreground(ColorFgPrimary).
			Bold(true).
			Padding(0, 1)

	FileContentStyle = lipgloss.NewStyle().
				Foreground(ColorFgPrimary)

	// Input
	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	StatusRunningStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	// Help overlay
	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgComment)
)

// badgeStyle colors the connectivity badge
func badgeStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Padding(0, 1)
}
