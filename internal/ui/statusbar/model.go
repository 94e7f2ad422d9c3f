package statusbar

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/v2xdash/internal/auth"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#FFFFFF"))

	stateStyles = map[auth.State]lipgloss.Style{
		auth.StateAnonymous: lipgloss.NewStyle().
			Background(lipgloss.Color("#4B5563")).
			Foreground(lipgloss.Color("#E5E7EB")).
			Padding(0, 1),
		auth.StateAuthenticating: lipgloss.NewStyle().
			Background(lipgloss.Color("#B45309")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1),
		auth.StateAuthenticated: lipgloss.NewStyle().
			Background(lipgloss.Color("#0D9488")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1),
	}

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#34D399")).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#F87171")).
			Padding(0, 1)

	offlineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// Model is the status bar at the bottom of the screen.
type Model struct {
	width      int
	state      auth.State
	user       string
	statusText string
	isError    bool
	offline    bool
}

// New creates a new status bar.
func New() Model {
	return Model{}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetState sets the session state badge.
func (m *Model) SetState(s auth.State) {
	m.state = s
}

// SetUser sets the signed-in display name. Empty means signed out.
func (m *Model) SetUser(name string) {
	m.user = name
}

// SetStatus sets a temporary status message.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.isError = isError
}

// SetOffline sets the offline indicator.
func (m *Model) SetOffline(offline bool) {
	m.offline = offline
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	left := stateStyles[m.state].Render(m.state.String())
	if m.statusText != "" {
		if m.isError {
			left += errorTextStyle.Render(m.statusText)
		} else {
			left += statusTextStyle.Render(m.statusText)
		}
	}

	var right string
	if m.offline {
		right += offlineStyle.Render("OFFLINE")
	}
	if m.user != "" {
		right += userStyle.Render(m.user)
		right += statusTextStyle.Render("O:logout q:quit")
	} else {
		right += statusTextStyle.Render("L:login R:register q:quit")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, mid, right)
}
