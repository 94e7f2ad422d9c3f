package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Close    key.Binding
	Login    key.Binding
	Register key.Binding
	Logout   key.Binding
	Refresh  key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign in")),
	Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
	Logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "sign out")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
}
