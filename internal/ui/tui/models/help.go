package models

import (
	"strings"

	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

var (
	helpHeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	helpKeyStyle     = lipgloss.NewStyle().Bold(true)
)

type helpSection struct {
	title   string
	context kb.ContextName
}

// helpPage is the help shown on top of one view
type helpPage struct {
	title       string
	description string
	sections    []helpSection
}

var helpPages = map[View]helpPage{
	ViewCatalog: {
		title: "Catalog",
		description: "The catalog screen lists trending and seasonal anime, your search results, favorites and watch history.\n\n" +
			"Switch tabs to move between the lists.  Trending and seasonal lists can be extended one page at a time.  " +
			"If the catalog cannot be reached a sample list is shown instead, along with a notice you can dismiss.",
		sections: []helpSection{
			{"Catalog commands:", kb.ContextCatalog},
			{"When searching or filtering:", kb.ContextSearchMode},
		},
	},
	ViewAnimeDetails: {
		title: "Anime Details",
		description: "The details screen shows everything the catalog knows about a show.\n\n" +
			"Open the episode list from here, or add the show to your favorites.",
		sections: []helpSection{{"Details commands:", kb.ContextDetails}},
	},
	ViewPlayer: {
		title: "Player",
		description: "The player screen lists the episodes of a show and controls playback in mpv.\n\n" +
			"Episodes are looked up on each configured provider in turn and the first one that has the show is used.  " +
			"If no provider has it, placeholder episodes are listed so you can see how long the show is, but they cannot be played.\n\n" +
			"When an episode finishes, the next one starts automatically.",
		sections: []helpSection{
			{"Episode list commands:", kb.ContextEpisodes},
			{"While the player has focus:", kb.ContextTransport},
		},
	},
	ViewMenu: {
		title:       "Menu",
		description: "Pick one of the options and press Enter, or Esc to cancel.",
		sections:    []helpSection{{"Menu commands:", kb.ContextMenu}},
	},
}

var generalHelp = helpPage{
	title:       "General",
	description: "Welcome to anistream, a terminal UI for browsing and watching anime.",
}

const episodeMarkers = "• ✓ : Watched - You finished this episode before\n" +
	"• ▶ : Playing - The episode currently loaded in the player\n" +
	"• ✗ : Unavailable - No provider has this episode, it is only listed so the show's length is visible\n" +
	"• F : Filler - The provider marks this episode as filler\n\n" +
	"Transport keys only work while the player has focus.  Press tab to move focus between the episode list and the player.\n"

// HelpModel is the scrollable help overlay for the view it was opened from
type HelpModel struct {
	width, height int
	context       View
	viewport      viewport.Model
}

func NewHelpModel(context View) *HelpModel {
	return &HelpModel{context: context, viewport: viewport.New(0, 0)}
}

func (m *HelpModel) ViewType() View {
	return ViewHelp
}

func (m *HelpModel) Init() tea.Cmd {
	if m.width > 0 && m.height > 0 {
		m.refresh()
	}
	return nil
}

func (m *HelpModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextHelp) {
		case kb.ActionMoveUp, kb.ActionMoveDown, kb.ActionPageUp, kb.ActionPageDown:
			m.viewport, cmd = m.viewport.Update(msg)
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		}
	}
	return m, cmd
}

func (m *HelpModel) Resize(width, height int) {
	m.width = width
	m.height = height
	// Borders, header and footer
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-10, 1)
	m.refresh()
}

func (m *HelpModel) refresh() {
	m.viewport.SetContent(m.content())
	m.viewport.GotoTop()
}

func (m *HelpModel) page() helpPage {
	if page, ok := helpPages[m.context]; ok {
		return page
	}
	return generalHelp
}

func (m *HelpModel) View() string {
	footer := styles.CenteredText(m.width, styles.Info.Render(
		"↑/↓: Scroll • PgUp/PgDn: Page scroll • Home/End: Goto top/bottom • ESC: Return"))

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Header(m.width, "Help: "+m.page().title),
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

// content lays out the page: description, global keys, then the view's own keys.  Actions already listed under the
// global keys are left out of the view sections, except in search mode where typing overrides them.
func (m *HelpModel) content() string {
	page := m.page()
	global := kb.ContextBindings[kb.ContextGlobal]
	globalActions := lo.Map(global, func(b kb.Binding, _ int) kb.Action { return b.Action })

	var b strings.Builder
	b.WriteString(helpHeadingStyle.Render(page.title) + "\n\n" + page.description + "\n\n")
	b.WriteString(helpHeadingStyle.Render("Keybindings") + "\n\n")
	b.WriteString(bindingSection("Global commands:", global))

	for _, section := range page.sections {
		bindings := kb.ContextBindings[section.context]
		if section.context != kb.ContextSearchMode {
			bindings = lo.Reject(bindings, func(b kb.Binding, _ int) bool {
				return lo.Contains(globalActions, b.Action)
			})
		}
		b.WriteString("\n" + bindingSection(section.title, bindings))
	}

	if m.context == ViewPlayer {
		b.WriteString("\n" + helpHeadingStyle.Render("Episode markers") + "\n\n" + episodeMarkers)
	}
	return b.String()
}

// bindingSection lists bindings under a title with their descriptions aligned
func bindingSection(title string, bindings []kb.Binding) string {
	if len(bindings) == 0 {
		return ""
	}
	labels := lo.Map(bindings, func(b kb.Binding, _ int) string { return keyLabel(b) })
	width := lo.Max(lo.Map(labels, func(l string, _ int) int { return lipgloss.Width(l) }))

	var b strings.Builder
	b.WriteString(helpKeyStyle.Render(title) + "\n\n")
	for i, binding := range bindings {
		pad := strings.Repeat(" ", width-lipgloss.Width(labels[i]))
		b.WriteString("• " + helpKeyStyle.Render(labels[i]) + pad + " : " + binding.KeyMap.Help + "\n")
	}
	return b.String()
}

// keyLabel names the keys of a binding, spelling out the space bar
func keyLabel(binding kb.Binding) string {
	name := func(key string) string {
		if key == " " {
			return "space"
		}
		return key
	}
	label := name(binding.KeyMap.Primary)
	if binding.KeyMap.Secondary != "" {
		label += " or " + name(binding.KeyMap.Secondary)
	}
	return label
}
