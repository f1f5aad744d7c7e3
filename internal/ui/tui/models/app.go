package models

import (
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/service"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// inputCapturer is implemented by views that have a focused text input.  While it reports true every key except
// quit goes to the view.
type inputCapturer interface {
	CapturingInput() bool
}

// backHandler is implemented by views that want to react to the back key before they are closed.  handled=true keeps
// the view open.
type backHandler interface {
	HandleBack() (handled bool, cmd tea.Cmd)
}

// AppModel is the main application model that coordinates all child models.  It is the high level wrapper.
type AppModel struct {
	width, height int

	// views is the navigation stack, the last entry is the active view.  The catalog is always at the bottom.
	views   []Model
	loading *LoadingModel // Shown over the active view while an operation runs
	help    *HelpModel    // Modal help overlay, nil when closed

	// Services used for fetching and updating state
	catalog  *service.CatalogService
	library  *library.Library
	episodes EpisodeController
}

// NewAppModel creates a new instance of the main application model
func NewAppModel(catalog *service.CatalogService, lib *library.Library, episodes EpisodeController) AppModel {
	return AppModel{
		views:    []Model{NewCatalogModel(catalog, lib)},
		catalog:  catalog,
		library:  lib,
		episodes: episodes,
	}
}

func (m AppModel) Init() tea.Cmd {
	log.Info("Initialising anistream TUI")
	return m.active().Init()
}

// Update handles messages and updates the models as appropriate
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		log.Debug("Window size changed", "old_width", m.width, "new_width", msg.Width, "old_height", m.height, "new_height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

		// Propagate new window size to all views so they are aware and can render correctly
		for _, v := range m.views {
			v.Resize(msg.Width, msg.Height)
		}
		if m.loading != nil {
			m.loading.Resize(msg.Width, msg.Height)
		}
		if m.help != nil {
			m.help.Resize(msg.Width, msg.Height)
		}
		return m, nil

	case LoadingMsg:
		return m.handleLoading(msg)

	case loadingDoneMsg:
		m.loading = nil
		if msg.result == nil {
			return m, nil
		}
		return m.Update(msg.result)

	case spinner.TickMsg:
		if m.loading != nil {
			_, cmd := m.loading.Update(msg)
			return m, cmd
		}
		return m, nil

	case HandledMsg:
		log.Trace("Key handled", "action", msg.Action)
		return m, nil

	case AnimeDetailsMsg:
		log.Info("Showing anime details", "id", msg.Anime.ID, "title", msg.Anime.Title)
		return m.push(NewAnimeDetailsModel(msg.Anime, m.library))

	case OpenAnimeMsg:
		log.Info("Opening anime", "id", msg.Anime.ID, "title", msg.Anime.Title)
		if err := m.library.AddToHistory(msg.Anime); err != nil {
			log.Warn("Failed to record anime in history", "id", msg.Anime.ID, "error", err)
		}
		// Only one player view may exist, opening another show replaces it
		m.views = m.withoutView(ViewPlayer)
		return m.push(NewPlayerModel(msg.Anime, m.episodes, m.library))

	case MenuMsg:
		return m.push(msg.Menu)

	case CloseViewMsg:
		return m.pop()

	// Playback and library changes concern views that are not necessarily on top
	case SnapshotMsg, EpisodeAdvancedMsg, FavoriteToggledMsg, PlaybackRateChosenMsg:
		return m.broadcast(msg)
	}

	return m.updateActive(msg)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := kb.GetActionByKey(msg, kb.ContextGlobal)
	if action == kb.ActionQuit {
		log.Info("Quit command received.  Shutting down...")
		return m, tea.Quit
	}

	// Keys are swallowed while an operation is running
	if m.loading != nil {
		return m, nil
	}

	if m.help != nil {
		switch action {
		case kb.ActionToggleHelp, kb.ActionBack:
			m.help = nil
			return m, nil
		}
		_, cmd := m.help.Update(msg)
		return m, cmd
	}

	if c, ok := m.active().(inputCapturer); ok && c.CapturingInput() {
		return m.updateActive(msg)
	}

	switch action {
	case kb.ActionToggleHelp:
		log.Debug("Help requested", "active_view", m.active().ViewType())
		m.help = NewHelpModel(m.active().ViewType())
		m.help.Resize(m.width, m.height)
		return m, m.help.Init()
	case kb.ActionBack:
		if h, ok := m.active().(backHandler); ok {
			handled, cmd := h.HandleBack()
			if handled {
				return m, cmd
			}
			next, popCmd := m.pop()
			return next, tea.Batch(cmd, popCmd)
		}
		return m.pop()
	}

	return m.updateActive(msg)
}

// handleLoading shows the loading overlay and runs the operation.  The operation's result is routed back through
// Update once the overlay is removed.
func (m AppModel) handleLoading(msg LoadingMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case LoadingStop:
		m.loading = nil
		return m, nil
	case LoadingStart:
		m.loading = NewLoadingModel(msg.Message).
			WithTitle("anistream").
			WithActionText("Press ctrl+c to quit")
		m.loading.Resize(m.width, m.height)
		op := msg.Operation
		return m, tea.Batch(
			m.loading.Init(),
			func() tea.Msg {
				if op == nil {
					return loadingDoneMsg{}
				}
				return loadingDoneMsg{result: op()}
			},
		)
	}
	return m, nil
}

func (m AppModel) View() string {
	// An overlay takes precedence over the views
	if m.loading != nil {
		return m.loading.View()
	}
	if m.help != nil {
		return m.help.View()
	}
	return m.active().View()
}

func (m AppModel) active() Model {
	return m.views[len(m.views)-1]
}

func (m AppModel) push(view Model) (tea.Model, tea.Cmd) {
	view.Resize(m.width, m.height)
	m.views = append(m.views, view)
	return m, view.Init()
}

// pop closes the active view.  The catalog at the bottom of the stack is never closed.
func (m AppModel) pop() (tea.Model, tea.Cmd) {
	if len(m.views) <= 1 {
		return m, nil
	}
	closed := m.active()
	m.views = m.views[:len(m.views)-1]
	log.Debug("View closed", "view", closed.ViewType(), "active_view", m.active().ViewType())

	// Lists shown underneath may depend on what happened in the closed view
	_, cmd := m.active().Update(viewActivatedMsg{})
	return m, cmd
}

func (m AppModel) withoutView(view View) []Model {
	kept := make([]Model, 0, len(m.views))
	for _, v := range m.views {
		if v.ViewType() != view {
			kept = append(kept, v)
		}
	}
	return kept
}

// updateActive delegates message processing to the active view
func (m AppModel) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	views := append([]Model(nil), m.views...)
	updated, cmd := views[len(views)-1].Update(msg)
	views[len(views)-1] = updated
	m.views = views
	return m, cmd
}

// broadcast delivers msg to every view on the stack
func (m AppModel) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	views := make([]Model, len(m.views))
	cmds := make([]tea.Cmd, 0, len(m.views))
	for i, v := range m.views {
		updated, cmd := v.Update(msg)
		views[i] = updated
		cmds = append(cmds, cmd)
	}
	m.views = views
	return m, tea.Batch(cmds...)
}
