package views

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("212")
	ColorAccent  = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorError   = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("241")

	UserMessageStyle      = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	AssistantMessageStyle = lipgloss.NewStyle()
	ErrorMessageStyle     = lipgloss.NewStyle().Foreground(ColorError)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	StatusDefaultStyle   = lipgloss.NewStyle().Padding(0, 1)
	StatusThinkingStyle  = StatusDefaultStyle.Foreground(ColorPrimary)
	StatusExecutingStyle = StatusDefaultStyle.Foreground(ColorAccent)
	StatusDoneStyle      = StatusDefaultStyle.Foreground(ColorSuccess)
	StatusErrorStyle     = StatusDefaultStyle.Foreground(ColorError)

	PickerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)
)
