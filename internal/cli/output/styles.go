package output

import "github.com/charmbracelet/lipgloss"

// Styles are the text styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusWarn    lipgloss.Style
	StatusSkipped lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	green := lipgloss.Color("#10B981")
	red := lipgloss.Color("#EF4444")
	amber := lipgloss.Color("#F59E0B")
	gray := lipgloss.Color("#6B7280")
	purple := lipgloss.Color("#7C3AED")

	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(purple),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(gray),
		Success: r.NewStyle().Foreground(green),
		Warning: r.NewStyle().Foreground(amber),
		Error:   r.NewStyle().Foreground(red).Bold(true),

		StatusSuccess: r.NewStyle().Foreground(green).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(red).SetString("✗"),
		StatusWarn:    r.NewStyle().Foreground(amber).SetString("!"),
		StatusSkipped: r.NewStyle().Foreground(gray).SetString("-"),
	}
}

// Icon returns the rendered icon for a status name.
func (s *Styles) Icon(status string) string {
	switch status {
	case "success", "pass", "ok", "completed":
		return s.StatusSuccess.String()
	case "failed", "error", "fail":
		return s.StatusFailed.String()
	case "warn", "warning":
		return s.StatusWarn.String()
	default:
		return s.StatusSkipped.String()
	}
}
