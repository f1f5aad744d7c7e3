package components

import (
	"strings"

	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

const bindingSeparator = " • "

// KeyBinding is one entry of a footer bar
type KeyBinding struct {
	Key  string
	Desc string
}

var keyStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7D56F4")).
	Bold(true)

// KeyBindingsBar renders bindings as a centred footer.  Bindings are listed in priority order and trailing ones are
// dropped when the terminal is too narrow to show them all.
func KeyBindingsBar(width int, bindings []KeyBinding) string {
	parts := make([]string, 0, len(bindings))
	used := 0
	for _, b := range bindings {
		part := keyStyle.Render(b.Key) + ": " + b.Desc
		extra := lipgloss.Width(part)
		if len(parts) > 0 {
			extra += len(bindingSeparator) - 2 // the bullet is one cell wide
		}
		if width > 0 && len(parts) > 0 && used+extra > width {
			break
		}
		parts = append(parts, part)
		used += extra
	}
	return styles.CenteredText(width, styles.Info.Render(strings.Join(parts, bindingSeparator)))
}

// Banner renders a full width message box, used for notices and errors that sit above a view's content
func Banner(width int, style lipgloss.Style, message string) string {
	if message == "" {
		return ""
	}
	return style.Width(max(width-2, 1)).Render(message)
}
