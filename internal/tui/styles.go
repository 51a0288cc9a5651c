package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary = lipgloss.Color("#7C3AED")
	colorOK      = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#6B7280")
	colorError   = lipgloss.Color("#EF4444")
	colorWhite   = lipgloss.Color("#FFFFFF")

	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA"))

	fileStyle = lipgloss.NewStyle()

	openFileStyle = lipgloss.NewStyle().
			Foreground(colorOK).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(colorWhite).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(colorWhite).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	okStyle = lipgloss.NewStyle().Foreground(colorOK)

	// Tree indicators
	treeExpanded  = "▼ "
	treeCollapsed = "▶ "
	treeLeaf      = "  "
)
