package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#A78BFA") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#F87171") // Red
	mutedColor     = lipgloss.Color("#9CA3AF") // Gray
	borderColor    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(mutedColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(borderColor)

	rowStyle      = lipgloss.NewStyle().PaddingLeft(1)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(primaryColor)
	transientText = lipgloss.NewStyle().Italic(true).Foreground(mutedColor)

	okStyle    = lipgloss.NewStyle().Foreground(secondaryColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)
