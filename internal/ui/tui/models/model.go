package models

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Model is implemented by every view the app model can show
type Model interface {
	ViewType() View
	Init() tea.Cmd
	Update(msg tea.Msg) (Model, tea.Cmd)
	View() string
	Resize(width, height int)
}

// HandledMsg reports that a key press was consumed by a view.  It lets the app model stop propagating a key without
// the view having anything else to do.
type HandledMsg struct {
	Action string
}

// Handled returns a command producing a HandledMsg for action
func Handled(action string) tea.Cmd {
	return func() tea.Msg {
		return HandledMsg{Action: action}
	}
}
