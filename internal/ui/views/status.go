package views

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/Cyclone1070/butterfi/internal/ui/services"
	"github.com/charmbracelet/lipgloss"
)

// RenderStatus renders the status bar
func RenderStatus(s models.State) string {
	var icon string
	var style lipgloss.Style

	switch s.StatusPhase {
	case models.PhaseThinking:
		style = StatusThinkingStyle
		dots := strings.Repeat(".", s.DotCount)
		return withSession(style.Render(fmt.Sprintf("%s Thinking%s", s.Spinner.View(), dots)), s)
	case models.PhaseExecuting:
		icon = s.Spinner.View()
		style = StatusExecutingStyle
	case models.PhaseDone:
		icon = "✔"
		style = StatusDoneStyle
	case models.PhaseError:
		icon = "✗"
		style = StatusErrorStyle
	default:
		style = StatusDefaultStyle
	}

	status := "Ready"
	if s.StatusMessage != "" {
		status = fmt.Sprintf("%s %s", icon, s.StatusMessage)
	} else if icon != "" {
		status = icon
	}
	return withSession(style.Render(status), s)
}

// withSession appends the connected wallet, dimmed.
func withSession(left string, s models.State) string {
	if s.UserAddress == "" {
		return left
	}
	right := StatusDefaultStyle.Foreground(ColorMuted).Render(services.ShortAddress(s.UserAddress))
	return left + " " + right
}
