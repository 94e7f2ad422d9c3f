package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/render"
)

var (
	welcomeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0D9488")).Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1E40AF")).
			Padding(0, 2).
			Width(22)
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

var printer = message.NewPrinter(language.English)

// Model is the gated dashboard view. It shows a sign-in prompt until a user
// is set, then the platform statistics and vehicle list.
type Model struct {
	user    string
	signed  bool
	loading bool
	cached  bool
	err     string
	data    *api.Dashboard
	vehicle table.Model
	width   int
	height  int
}

// New creates an empty dashboard in the signed-out state.
func New() Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Vehicle", Width: 24},
			{Title: "Status", Width: 14},
			{Title: "Location", Width: 28},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#1E40AF")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#0D9488"))
	t.SetStyles(styles)
	return Model{vehicle: t}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Greeting, stat cards and footer take about twelve lines.
	rows := h - 12
	if rows < 3 {
		rows = 3
	}
	m.vehicle.SetHeight(rows)
}

// SetUser switches the view to the signed-in state for name.
func (m *Model) SetUser(name string) {
	m.signed = true
	m.user = name
}

// SetLoading marks a fetch as started.
func (m *Model) SetLoading() {
	m.loading = true
	m.err = ""
}

// SetData shows dash. cached marks data read from the local snapshot.
func (m *Model) SetData(dash *api.Dashboard, cached bool) {
	m.loading = false
	m.cached = cached
	m.err = ""
	m.data = dash
	rows := make([]table.Row, 0, len(dash.Vehicles))
	for _, v := range dash.Vehicles {
		rows = append(rows, table.Row{vehicleLabel(v), v.Status, v.Location})
	}
	m.vehicle.SetRows(rows)
}

// SetError records a failed fetch. Data already shown stays on screen.
func (m *Model) SetError(err error) {
	m.loading = false
	m.err = err.Error()
}

// Reset returns the view to the signed-out state.
func (m *Model) Reset() {
	m.signed = false
	m.user = ""
	m.loading = false
	m.cached = false
	m.err = ""
	m.data = nil
	m.vehicle.SetRows(nil)
}

// Update forwards navigation keys to the vehicle table.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.signed || m.data == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.vehicle, cmd = m.vehicle.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if !m.signed {
		return m.place(m.signedOutView())
	}

	var sb strings.Builder
	greeting := "Welcome back!"
	if m.user != "" {
		greeting = "Welcome back, " + m.user + "!"
	}
	sb.WriteString(welcomeStyle.Render(greeting))
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("Here's your V2X platform overview."))
	sb.WriteString("\n\n")

	switch {
	case m.data == nil && m.loading:
		sb.WriteString("Loading dashboard...")
		return m.place(sb.String())
	case m.data == nil && m.err != "":
		sb.WriteString(errorStyle.Render(render.Wrap("Failed to load dashboard: "+m.err, m.wrapWidth())))
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("Press r to retry."))
		return m.place(sb.String())
	case m.data == nil:
		return m.place(sb.String())
	}

	s := m.data.Stats
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		card(FormatCount(s.ConnectedVehicles), "Connected Vehicles"),
		card(FormatCount(s.ActiveConnections), "Active Connections"),
		card(FormatCount(s.MessagesProcessed), "Messages Processed"),
		card(s.SystemUptime, "System Uptime"),
	))
	sb.WriteString("\n\n")

	if len(m.data.Vehicles) == 0 {
		sb.WriteString(hintStyle.Render("No vehicles reported."))
	} else {
		sb.WriteString(m.vehicle.View())
	}
	sb.WriteString("\n")

	switch {
	case m.loading:
		sb.WriteString(hintStyle.Render("Refreshing..."))
	case m.err != "":
		sb.WriteString(errorStyle.Render(render.Wrap("Refresh failed: "+m.err, m.wrapWidth())))
	case m.cached:
		sb.WriteString(hintStyle.Render("Showing saved data."))
	}
	return m.place(sb.String())
}

func (m Model) signedOutView() string {
	var sb strings.Builder
	sb.WriteString(welcomeStyle.Render("Vehicle-to-Everything communication, from the cloud."))
	sb.WriteString("\n\n")
	sb.WriteString(hintStyle.Render("Sign in to view connected vehicles and platform statistics."))
	sb.WriteString("\n\n")
	sb.WriteString(keyStyle.Render("L") + " sign in   " + keyStyle.Render("R") + " create account")
	return sb.String()
}

func (m Model) wrapWidth() int {
	if m.width <= 4 {
		return 0
	}
	return m.width - 4
}

func (m Model) place(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, content)
}

func card(value, label string) string {
	return cardStyle.Render(cardValueStyle.Render(value) + "\n" + cardLabelStyle.Render(label))
}

func vehicleLabel(v api.Vehicle) string {
	dot := "○"
	if v.Connected() {
		dot = "●"
	}
	name := v.Model
	if name == "" {
		name = string(v.ID)
	}
	return dot + " " + name
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
