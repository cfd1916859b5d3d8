package views

import (
	"fmt"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/charmbracelet/lipgloss"
)

// RenderPicker renders the strategy selection popup
func RenderPicker(p *models.StrategyPicker) string {
	if p == nil || len(p.Strategies) == 0 {
		return ""
	}

	title := "Stake in:"
	if p.Command == "/withdraw" {
		title = "Withdraw from:"
	}

	lines := []string{lipgloss.NewStyle().Bold(true).Render(title), ""}
	for i, s := range p.Strategies {
		label := fmt.Sprintf("%s (id %d)", s.Label, s.StrategyID)
		if i == p.Index {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true).
				Render("▸ "+label))
		} else {
			lines = append(lines, "  "+label)
		}
		if s.Description != "" {
			lines = append(lines, lipgloss.NewStyle().Foreground(ColorMuted).Render("    "+s.Description))
		}
	}

	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().Faint(true).Render("↑/↓: Navigate  Enter: Select  Esc: Cancel"))

	return PickerBoxStyle.Render(strings.Join(lines, "\n"))
}
