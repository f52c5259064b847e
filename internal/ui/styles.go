package ui

import (
	"github.com/book-expert/tts-studio/internal/status"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#667EEA")
	secondaryColor = lipgloss.Color("#7B8794")
	infoColor      = lipgloss.Color("#3498DB")
	successColor   = lipgloss.Color("#2ECC71")
	errorColor     = lipgloss.Color("#E74C3C")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	disabledStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Faint(true)

	enabledStyle = lipgloss.NewStyle().
			Foreground(successColor)

	statusStyles = map[status.Severity]lipgloss.Style{
		status.SeverityInfo:    lipgloss.NewStyle().Foreground(infoColor),
		status.SeveritySuccess: lipgloss.NewStyle().Foreground(successColor),
		status.SeverityError:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	}
)

func renderStatus(s status.Status) string {
	style, ok := statusStyles[s.Severity]
	if !ok || s.Message == "" {
		return ""
	}

	return style.Render(s.Message)
}
