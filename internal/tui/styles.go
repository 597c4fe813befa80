package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/codescope/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1).
			Width(28)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	scoreGoodStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	scoreMidStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	scoreBadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("201")),
		domain.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		domain.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
)

// scoreStyle picks a color band for a 0-100 score.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return scoreGoodStyle
	case score >= 50:
		return scoreMidStyle
	default:
		return scoreBadStyle
	}
}

// severityStyle styles a severity label.
func severityStyle(s domain.Severity) lipgloss.Style {
	if style, ok := severityStyles[s]; ok {
		return style
	}
	return dimStyle
}
