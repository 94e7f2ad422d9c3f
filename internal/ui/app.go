package ui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/v2xdash/internal/api"
	"github.com/fragmede/v2xdash/internal/auth"
	"github.com/fragmede/v2xdash/internal/cache"
	"github.com/fragmede/v2xdash/internal/config"
	"github.com/fragmede/v2xdash/internal/monitor"
	"github.com/fragmede/v2xdash/internal/ui/authmodal"
	"github.com/fragmede/v2xdash/internal/ui/dashboard"
	"github.com/fragmede/v2xdash/internal/ui/messages"
	"github.com/fragmede/v2xdash/internal/ui/statusbar"
)

const (
	headerHeight    = 1
	statusBarHeight = 1
)

// App is the root Bubble Tea model.
type App struct {
	// Child models
	dashboard dashboard.Model
	modal     authmodal.Model
	statusBar statusbar.Model

	// Shared state
	cfg     config.Config
	cache   *cache.DB
	session *auth.Session
	monitor *monitor.Monitor
	logger  *slog.Logger

	// Restored session bookkeeping
	restoredID string
	revalidate bool

	// Dimensions
	width  int
	height int

	// For passing program reference to monitor
	program monitor.Sender
}

// NewApp creates the root application model around an existing session.
func NewApp(cfg config.Config, db *cache.DB, session *auth.Session, mon *monitor.Monitor, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		dashboard: dashboard.New(),
		modal:     authmodal.New(session),
		statusBar: statusbar.New(),
		cfg:       cfg,
		cache:     db,
		session:   session,
		monitor:   mon,
		logger:    logger,
	}
}

// SetProgram stores the tea.Program reference for the background monitor.
func (a *App) SetProgram(p monitor.Sender) {
	a.program = p
}

// Init starts the application.
func (a *App) Init() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		return messages.SessionRestoredMsg{Restored: session.Restore()}
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.statusBar.SetState(a.session.State())
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - headerHeight - statusBarHeight
		a.dashboard.SetSize(msg.Width, contentHeight)
		a.modal.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		return nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.OpenLoginMsg:
		a.openModal(auth.ModalLogin)
		return nil

	case messages.OpenRegisterMsg:
		a.openModal(auth.ModalRegister)
		return nil

	case messages.CloseModalMsg:
		a.session.CloseModal()
		return nil

	case messages.LogoutMsg:
		a.logout()
		return nil

	case messages.SessionRestoredMsg:
		if !msg.Restored {
			return nil
		}
		a.restoredID = ""
		if user, ok := a.session.CurrentUser(); ok {
			a.restoredID = user.ID
		}
		a.syncUser()
		a.showCached()
		return tea.Batch(a.validateCmd(), a.fetchCmd())

	case messages.SessionValidatedMsg:
		return a.handleValidated(msg.Err)

	case messages.LoginResultMsg:
		var cmd tea.Cmd
		a.modal, cmd = a.modal.Update(msg)
		if msg.Err != nil {
			return cmd
		}
		return tea.Batch(cmd, a.signedIn("Signed in as "+displayName(msg.Identity)))

	case messages.RegisterResultMsg:
		var cmd tea.Cmd
		a.modal, cmd = a.modal.Update(msg)
		if msg.Err != nil {
			return cmd
		}
		return tea.Batch(cmd, a.signedIn("Account created. Welcome, "+displayName(msg.Identity)))

	case messages.DashboardLoadedMsg:
		return a.handleDashboard(msg)

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		return nil
	}

	if a.session.Modal() != auth.ModalClosed {
		var cmd tea.Cmd
		a.modal, cmd = a.modal.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return a.quit()
	}

	// Text input owns the keyboard while the modal is open.
	if a.session.Modal() != auth.ModalClosed {
		if key.Matches(msg, Keys.Close) {
			a.session.CloseModal()
			return nil
		}
		var cmd tea.Cmd
		a.modal, cmd = a.modal.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return a.quit()
	case key.Matches(msg, Keys.Login):
		if !a.session.IsAuthenticated() {
			a.openModal(auth.ModalLogin)
		}
		return nil
	case key.Matches(msg, Keys.Register):
		if !a.session.IsAuthenticated() {
			a.openModal(auth.ModalRegister)
		}
		return nil
	case key.Matches(msg, Keys.Logout):
		if a.session.IsAuthenticated() {
			a.logout()
		}
		return nil
	case key.Matches(msg, Keys.Refresh):
		if a.session.IsAuthenticated() {
			return a.fetchCmd()
		}
		return nil
	}

	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.Update(msg)
	return cmd
}

func (a *App) quit() tea.Cmd {
	a.monitor.Stop()
	return tea.Quit
}

func (a *App) openModal(mode auth.Modal) {
	if mode == auth.ModalRegister {
		a.session.OpenRegisterModal()
	} else {
		a.session.OpenLoginModal()
	}
	a.modal.Open(mode)
}

func (a *App) signedIn(status string) tea.Cmd {
	a.syncUser()
	a.statusBar.SetStatus(status, false)
	a.statusBar.SetOffline(false)
	a.startMonitor()
	return a.fetchCmd()
}

func (a *App) logout() {
	a.session.Logout()
	a.revalidate = false
	a.monitor.Stop()
	if err := a.cache.ClearDashboards(); err != nil {
		a.logger.Warn("clearing cached dashboards", "error", err)
	}
	a.dashboard.Reset()
	a.statusBar.SetUser("")
	a.statusBar.SetOffline(false)
	a.statusBar.SetStatus("Signed out", false)
}

// signedOut drops everything tied to a session the API rejected.
// Nothing is shown to the user.
func (a *App) signedOut() {
	a.monitor.Stop()
	if err := a.cache.ClearDashboards(); err != nil {
		a.logger.Warn("clearing cached dashboards", "error", err)
	}
	a.dashboard.Reset()
	a.statusBar.SetUser("")
	a.statusBar.SetOffline(false)
}

// handleValidated applies the answer to the restored token. A network
// failure keeps the session and retries after the next successful refresh.
func (a *App) handleValidated(err error) tea.Cmd {
	switch {
	case err == nil:
		a.revalidate = false
		a.syncUser()
		a.statusBar.SetOffline(false)
		a.startMonitor()
		// Fetches started under the placeholder identity are dropped by
		// handleDashboard once the confirmed ID differs.
		if user, ok := a.session.CurrentUser(); ok && user.ID != a.restoredID {
			a.restoredID = user.ID
			a.showCached()
			return a.fetchCmd()
		}
	case errors.Is(err, auth.ErrNetwork):
		a.revalidate = true
		a.statusBar.SetOffline(true)
		a.startMonitor()
	case !a.session.IsAuthenticated():
		a.revalidate = false
		a.signedOut()
	}
	return nil
}

func (a *App) handleDashboard(msg messages.DashboardLoadedMsg) tea.Cmd {
	if msg.Expired && !a.session.IsAuthenticated() {
		a.revalidate = false
		a.signedOut()
		return nil
	}
	user, ok := a.session.CurrentUser()
	if !ok || msg.UserID != user.ID {
		return nil
	}
	if msg.Err != nil {
		var se *api.StatusError
		a.statusBar.SetOffline(!errors.As(msg.Err, &se))
		a.dashboard.SetError(msg.Err)
		return nil
	}
	a.statusBar.SetOffline(false)
	a.dashboard.SetData(msg.Dashboard, msg.Cached)
	if a.revalidate {
		a.revalidate = false
		return a.validateCmd()
	}
	return nil
}

func (a *App) syncUser() {
	user, ok := a.session.CurrentUser()
	if !ok {
		return
	}
	name := displayName(user)
	a.dashboard.SetUser(user.Name)
	a.statusBar.SetUser(name)
}

func (a *App) showCached() {
	user, ok := a.session.CurrentUser()
	if !ok || user.ID == "" {
		return
	}
	dash, fresh, err := a.cache.GetDashboard(user.ID, a.cfg.DashboardTTL)
	if err != nil {
		a.logger.Warn("reading cached dashboard", "error", err)
		return
	}
	if dash == nil {
		return
	}
	// Stale snapshots are shown too; a fetch is always issued alongside.
	a.logger.Debug("showing cached dashboard", "user_id", user.ID, "fresh", fresh)
	a.dashboard.SetData(dash, true)
}

func (a *App) startMonitor() {
	if a.program != nil {
		a.monitor.Start(a.program)
	}
}

func (a *App) validateCmd() tea.Cmd {
	session := a.session
	timeout := a.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return messages.SessionValidatedMsg{Err: session.Validate(ctx)}
	}
}

func (a *App) fetchCmd() tea.Cmd {
	a.dashboard.SetLoading()
	mon := a.monitor
	return func() tea.Msg {
		msg, ok := mon.Refresh(context.Background())
		if !ok {
			return nil
		}
		return msg
	}
}

// View renders the application.
func (a *App) View() string {
	var content string
	if a.session.Modal() != auth.ModalClosed {
		content = a.modal.View()
	} else {
		content = a.dashboard.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.header(), content, a.statusBar.View())
}

func (a *App) header() string {
	left := HeaderTitleStyle.Render("V2X Communication Platform") +
		HeaderSubtitleStyle.Render("  Secure Cloud-Vehicle Communication Frameworks")

	var right string
	if user, ok := a.session.CurrentUser(); ok {
		right = HeaderActionStyle.Render(displayName(user))
		if user.Name != "" && user.Email != "" {
			right = HeaderSubtitleStyle.Render(user.Email+" ") + right
		}
	} else {
		right = HeaderActionStyle.Render("L Sign In") + HeaderActionStyle.Render("R Register")
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return HeaderStyle.Render(left+HeaderStyle.UnsetPadding().Width(gap).Render("")) + right
}

func displayName(id auth.Identity) string {
	switch {
	case id.Name != "":
		return id.Name
	case id.Email != "":
		return id.Email
	default:
		return "signed in"
	}
}
