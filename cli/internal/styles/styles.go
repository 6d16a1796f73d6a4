// ABOUTME: Shared lipgloss styles for CLI output
// ABOUTME: Colors session states and renders bus events as one-line notices

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/portal-gateway/notify"
)

var (
	Primary   = lipgloss.Color("#7C3AED") // Purple
	Secondary = lipgloss.Color("#10B981") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Danger    = lipgloss.Color("#EF4444") // Red
	Muted     = lipgloss.Color("#6B7280") // Gray
	Info      = lipgloss.Color("#3B82F6") // Blue

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(16)

	StatusOK = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	StatusWarning = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	StatusCritical = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	notice = map[notify.Level]lipgloss.Style{
		notify.LevelInfo:    lipgloss.NewStyle().Foreground(Info),
		notify.LevelSuccess: lipgloss.NewStyle().Foreground(Secondary),
		notify.LevelError:   lipgloss.NewStyle().Foreground(Danger),
	}
)

var noticeIcon = map[notify.Level]string{
	notify.LevelInfo:    "i",
	notify.LevelSuccess: "✓",
	notify.LevelError:   "✗",
}

// Row renders "label  value" with an aligned label column.
func Row(label, value string) string {
	return Label.Render(label+":") + value
}

// Notice renders a bus event as a single styled line.
func Notice(e notify.Event) string {
	style, ok := notice[e.Level]
	if !ok {
		style = notice[notify.LevelInfo]
	}
	icon, ok := noticeIcon[e.Level]
	if !ok {
		icon = noticeIcon[notify.LevelInfo]
	}
	return style.Render(icon + " " + e.Message)
}
