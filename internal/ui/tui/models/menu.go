package models

import (
	"strings"

	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	menuSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)
	menuItemStyle   = lipgloss.NewStyle().Padding(0, 1)
	menuActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#43BF6D"))
)

// MenuItem is one choice in a MenuModel.  Command runs after the menu closes.
type MenuItem struct {
	Text    string
	Command tea.Cmd
}

// MenuModel is a small modal picker pushed on top of the current view.  The view underneath keeps receiving
// broadcast messages while the menu is open.
type MenuModel struct {
	Title  string
	Items  []MenuItem
	Cursor int
	// Active marks the item that is in effect when the menu opens, -1 for none
	Active        int
	width, height int
}

func NewMenuModel(title string, items []MenuItem) *MenuModel {
	return &MenuModel{Title: title, Items: items, Active: -1}
}

// WithCursor starts the menu on item i and marks it as the active choice.  Out of range values are ignored.
func (m *MenuModel) WithCursor(i int) *MenuModel {
	if i >= 0 && i < len(m.Items) {
		m.Cursor = i
		m.Active = i
	}
	return m
}

func (m *MenuModel) ViewType() View {
	return ViewMenu
}

func (m *MenuModel) Init() tea.Cmd {
	return nil
}

func closeView() tea.Msg {
	return CloseViewMsg{}
}

func (m *MenuModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.Items) == 0 {
		return m, nil
	}

	switch kb.GetActionByKey(key, kb.ContextMenu) {
	case kb.ActionMoveUp:
		m.Cursor = (m.Cursor - 1 + len(m.Items)) % len(m.Items)
	case kb.ActionMoveDown:
		m.Cursor = (m.Cursor + 1) % len(m.Items)
	case kb.ActionSelectMenuItem:
		item := m.Items[m.Cursor]
		log.Info("Menu item selected", "menu", m.Title, "item", item.Text)
		return m, tea.Batch(closeView, item.Command)
	}
	return m, nil
}

func (m *MenuModel) View() string {
	if len(m.Items) == 0 {
		return styles.CenteredText(m.width, "Nothing to choose from")
	}

	itemWidth := max(m.width-10, 10)
	var b strings.Builder
	for i, item := range m.Items {
		text := item.Text
		if i == m.Active {
			text += menuActiveStyle.Render("  (current)")
		}
		if i == m.Cursor {
			b.WriteString("> " + menuSelectedStyle.Width(itemWidth).Render(text))
		} else {
			b.WriteString("  " + menuItemStyle.Width(itemWidth).Render(text))
		}
		b.WriteByte('\n')
	}

	footer := components.KeyBindingsBar(m.width, []components.KeyBinding{
		{Key: "↑/↓", Desc: "Navigate"},
		{Key: "Enter", Desc: "Select"},
		{Key: "Esc", Desc: "Cancel"},
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Header(m.width, m.Title),
		"",
		styles.ContentBox(m.width-4, b.String(), 1),
		"",
		footer,
	)
}

func (m *MenuModel) Resize(width, height int) {
	m.width = width
	m.height = height
}
