package ui

import "github.com/charmbracelet/lipgloss"

// Platform blues and teals.
var (
	brandBlue = lipgloss.Color("#1E40AF")
	brandTeal = lipgloss.Color("#0D9488")

	HeaderStyle = lipgloss.NewStyle().
			Background(brandBlue).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	HeaderTitleStyle = lipgloss.NewStyle().
				Background(brandBlue).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	HeaderSubtitleStyle = lipgloss.NewStyle().
				Background(brandBlue).
				Foreground(lipgloss.Color("#BFDBFE"))

	HeaderActionStyle = lipgloss.NewStyle().
				Background(brandTeal).
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true).
				Padding(0, 1)
)
