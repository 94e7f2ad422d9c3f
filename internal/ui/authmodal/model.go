package authmodal

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/v2xdash/internal/auth"
	"github.com/fragmede/v2xdash/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0D9488"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Bold(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1E40AF")).
			Padding(1, 3)
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldCount
)

var fieldKeys = [fieldCount]string{
	fieldName:     auth.FieldName,
	fieldEmail:    auth.FieldEmail,
	fieldPassword: auth.FieldPassword,
	fieldConfirm:  auth.FieldConfirmPassword,
}

var fieldLabels = [fieldCount]string{
	fieldName:     "Full Name",
	fieldEmail:    "Email",
	fieldPassword: "Password",
	fieldConfirm:  "Confirm Password",
}

var (
	loginFields    = []int{fieldEmail, fieldPassword}
	registerFields = []int{fieldName, fieldEmail, fieldPassword, fieldConfirm}
)

// Model is the sign-in / registration form shown over the dashboard.
type Model struct {
	session    *auth.Session
	mode       auth.Modal
	inputs     [fieldCount]textinput.Model
	focusIndex int
	fieldErrs  map[string]string
	err        string
	submitting bool
	width      int
	height     int
}

// New creates the form in login mode.
func New(session *auth.Session) Model {
	m := Model{session: session, mode: auth.ModalLogin}
	placeholders := [fieldCount]string{"Jane Doe", "you@example.com", "password", "password"}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.Width = 32
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		m.inputs[i] = in
	}
	m.focus(0)
	return m
}

// SetSize sets the area the form is centered in.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Open shows the form in the given mode. A form with a submission in
// flight keeps its contents.
func (m *Model) Open(mode auth.Modal) {
	if m.submitting {
		m.mode = mode
		return
	}
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.fieldErrs = nil
	m.err = ""
	m.setMode(mode)
}

// Submitting reports whether a sign-in is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

func (m *Model) setMode(mode auth.Modal) {
	m.mode = mode
	m.fieldErrs = nil
	m.err = ""
	m.focus(0)
}

func (m Model) fields() []int {
	if m.mode == auth.ModalRegister {
		return registerFields
	}
	return loginFields
}

func (m *Model) focus(idx int) {
	fields := m.fields()
	m.focusIndex = (idx + len(fields)) % len(fields)
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.inputs[fields[m.focusIndex]].Focus()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focus(m.focusIndex + 1)
			return m, nil
		case "shift+tab", "up":
			m.focus(m.focusIndex - 1)
			return m, nil
		case "ctrl+t":
			if m.submitting {
				return m, nil
			}
			m.session.SwitchModal()
			m.setMode(m.session.Modal())
			return m, nil
		case "enter":
			return m.submit()
		}

	case messages.LoginResultMsg:
		return m.handleResult(msg.Err), nil

	case messages.RegisterResultMsg:
		return m.handleResult(msg.Err), nil
	}

	var cmd tea.Cmd
	idx := m.fields()[m.focusIndex]
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	session := m.session
	name := strings.TrimSpace(m.inputs[fieldName].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	confirm := m.inputs[fieldConfirm].Value()

	var (
		err error
		cmd tea.Cmd
	)
	if m.mode == auth.ModalRegister {
		err = auth.ValidateRegistration(name, email, password, confirm)
		in := auth.RegisterInput{Name: name, Email: email, Password: password, ConfirmPassword: confirm}
		cmd = func() tea.Msg {
			id, err := session.SubmitRegister(context.Background(), in)
			return messages.RegisterResultMsg{Identity: id, Err: err}
		}
	} else {
		err = auth.ValidateLogin(email, password)
		in := auth.LoginInput{Email: email, Password: password}
		cmd = func() tea.Msg {
			id, err := session.SubmitLogin(context.Background(), in)
			return messages.LoginResultMsg{Identity: id, Err: err}
		}
	}
	if err != nil {
		m.fieldErrs = auth.FieldErrors(err)
		m.err = ""
		return m, nil
	}

	m.fieldErrs = nil
	m.err = ""
	m.submitting = true
	return m, cmd
}

func (m Model) handleResult(err error) Model {
	if !m.submitting {
		return m
	}
	m.submitting = false
	switch {
	case err == nil:
		for i := range m.inputs {
			m.inputs[i].SetValue("")
		}
		m.focus(0)
		return m
	case errors.Is(err, auth.ErrSuperseded):
		return m
	case errors.Is(err, auth.ErrInFlight):
		m.err = "A sign-in is already in progress."
		return m
	}

	if fields := auth.FieldErrors(err); fields != nil {
		m.fieldErrs = fields
		return m
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		m.err = ae.Message()
	} else {
		m.err = err.Error()
	}
	m.inputs[fieldPassword].SetValue("")
	m.inputs[fieldConfirm].SetValue("")
	return m
}

// View renders the form.
func (m Model) View() string {
	var sb strings.Builder

	if m.mode == auth.ModalRegister {
		sb.WriteString(titleStyle.Render("Create Account"))
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("Join the V2X Communication Platform"))
	} else {
		sb.WriteString(titleStyle.Render("Sign In"))
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("Access your V2X dashboard"))
	}
	sb.WriteString("\n\n")

	for _, f := range m.fields() {
		label := fieldLabels[f] + ":"
		if m.inputs[f].Focused() {
			sb.WriteString(focusedStyle.Bold(true).Render(label))
		} else {
			sb.WriteString(labelStyle.Render(label))
		}
		sb.WriteString("\n")
		sb.WriteString(m.inputs[f].View())
		sb.WriteString("\n")
		if msg, ok := m.fieldErrs[fieldKeys[f]]; ok {
			sb.WriteString(errorStyle.Render(msg))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	switch {
	case m.submitting && m.mode == auth.ModalRegister:
		sb.WriteString("Creating account...")
	case m.submitting:
		sb.WriteString("Signing in...")
	default:
		other := "register"
		if m.mode == auth.ModalRegister {
			other = "sign in"
		}
		sb.WriteString(focusedStyle.Render("Enter") + " submit  " +
			focusedStyle.Render("Tab") + " next  " +
			focusedStyle.Render("Ctrl+T") + " " + other + "  " +
			focusedStyle.Render("Esc") + " close")
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(sb.String()))
}
