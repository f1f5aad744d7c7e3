package models

import (
	"fmt"
	"time"

	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// slowLoadThreshold is how long an operation runs before the overlay starts showing the elapsed time
const slowLoadThreshold = 5 * time.Second

var (
	loadingSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9D86FF")).Bold(true)
	loadingTextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	loadingHintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Italic(true)
	loadingActionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#43BF6D"))
	loadingTitleStyle   = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 2)
)

// LoadingModel is the overlay shown while a catalog request or a source resolution is in flight.  It is not part of
// the view stack.
type LoadingModel struct {
	width, height int
	title         string
	message       string
	actionText    string
	spinner       spinner.Model
	started       time.Time
	now           func() time.Time
}

func NewLoadingModel(message string) *LoadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = loadingSpinnerStyle

	return &LoadingModel{
		message: message,
		spinner: s,
		started: time.Now(),
		now:     time.Now,
	}
}

// WithTitle sets the banner drawn above the box
func (m *LoadingModel) WithTitle(title string) *LoadingModel {
	m.title = title
	return m
}

// WithActionText sets the hint drawn at the bottom of the box
func (m *LoadingModel) WithActionText(text string) *LoadingModel {
	m.actionText = text
	return m
}

func (m *LoadingModel) ViewType() View {
	return ViewLoading
}

func (m *LoadingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update only animates the spinner.  Everything else is handled by the app while the overlay is up.
func (m *LoadingModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(tick)
	return m, cmd
}

// Elapsed reports how long the operation has been running
func (m *LoadingModel) Elapsed() time.Duration {
	return m.now().Sub(m.started)
}

func (m *LoadingModel) View() string {
	width := max(min(m.width-20, 72), 36)
	center := lipgloss.NewStyle().Width(width - 6).Align(lipgloss.Center)

	lines := []string{center.Render(m.spinner.View() + " " + loadingTextStyle.Render(m.message))}
	if elapsed := m.Elapsed(); elapsed > slowLoadThreshold {
		hint := fmt.Sprintf("Still working after %ds.  Providers can be slow to answer.", int(elapsed.Seconds()))
		lines = append(lines, "", center.Render(loadingHintStyle.Render(hint)))
	}
	if m.actionText != "" {
		lines = append(lines, "", center.Render(loadingActionStyle.Render(m.actionText)))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#9D86FF")).
		Padding(1, 2).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	if m.title != "" {
		banner := loadingTitleStyle.Width(width).Align(lipgloss.Center).Render(m.title)
		box = lipgloss.JoinVertical(lipgloss.Center, banner, box)
	}
	return styles.CenteredView(m.width, m.height, box)
}

func (m *LoadingModel) Resize(width, height int) {
	m.width = width
	m.height = height
}
