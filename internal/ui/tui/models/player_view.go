package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/player"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
)

// volumeStep is how much the volume keys change the volume by
const volumeStep = 0.05

// resolveTimeout bounds one episode list or source resolution, across every provider tried
const resolveTimeout = 60 * time.Second

// EpisodeController is the part of the episode player the player view drives.  Implemented by
// player.EpisodePlayer.
type EpisodeController interface {
	Open(ctx context.Context, anime *domain.Anime) error
	SelectEpisode(ctx context.Context, number int) error
	Retry(ctx context.Context) error
	Back()
	Status() player.Status
	EpisodeForSession(sessionID string) (int, bool)
	Transport() *player.Transport
}

// PlayerModel shows the episodes of one anime and controls their playback.  Input goes either to the episode grid
// or, while the transport holds focus, to the playback controls.
type PlayerModel struct {
	anime         *domain.Anime
	controller    EpisodeController
	transport     *player.Transport
	library       *library.Library
	width, height int

	status   player.Status
	snapshot player.Snapshot
	cursor   int
	message  string // One line of feedback about the last action
}

// NewPlayerModel creates the player view for anime
func NewPlayerModel(anime *domain.Anime, controller EpisodeController, lib *library.Library) *PlayerModel {
	return &PlayerModel{
		anime:      anime,
		controller: controller,
		transport:  controller.Transport(),
		library:    lib,
	}
}

func (m *PlayerModel) ViewType() View {
	return ViewPlayer
}

// Init resolves the episode list
func (m *PlayerModel) Init() tea.Cmd {
	m.transport.SetFocused(false)
	return withLoading(fmt.Sprintf("Finding episodes for %s...", m.anime.Title), m.openCmd())
}

// Resize updates the model with new dimensions
func (m *PlayerModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// HandleBack releases the player focus first, and otherwise stops playback so the view can close
func (m *PlayerModel) HandleBack() (bool, tea.Cmd) {
	if m.transport.Focused() {
		m.transport.SetFocused(false)
		return true, Handled("focus:release")
	}
	controller := m.controller
	return false, func() tea.Msg {
		controller.Back()
		return HandledMsg{Action: "player:back"}
	}
}

// Update handles messages and updates the model
func (m *PlayerModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.transport.Focused() {
			return m, m.handleTransportKey(msg)
		}
		return m, m.handleGridKey(msg)

	case EpisodesResolvedMsg:
		if msg.AnimeID != m.anime.ID {
			return m, nil
		}
		m.refreshStatus()
		m.cursor = m.firstUnwatched()
		switch {
		case errors.Is(msg.Err, domain.ErrNotFound):
			log.Info("No provider has the anime, showing placeholders", "title", m.anime.Title, "episodes", len(m.status.Episodes))
		case msg.Err != nil && !errors.Is(msg.Err, domain.ErrStaleRequest):
			log.Warn("Failed to resolve episodes", "title", m.anime.Title, "error", msg.Err)
		}

	case EpisodeSelectedMsg:
		if errors.Is(msg.Err, domain.ErrStaleRequest) {
			return m, nil
		}
		m.refreshStatus()
		if msg.Err == nil && m.status.Current > 0 {
			m.message = ""
			m.transport.SetFocused(true)
		}

	case EpisodeAdvancedMsg:
		m.refreshStatus()
		m.moveCursorTo(msg.Number)
		m.message = fmt.Sprintf("Playing episode %d.", msg.Number)

	case SnapshotMsg:
		m.handleSnapshot(msg.Snapshot)

	case PlaybackRateChosenMsg:
		transport := m.transport
		rate := msg.Rate
		return m, transportCmd("rate:set", func() error { return transport.SetPlaybackRate(rate) })

	case FavoriteToggledMsg:
		if msg.AnimeID == m.anime.ID {
			m.message = favoriteStatus(msg)
		}
	}

	return m, nil
}

// handleSnapshot keeps the last engine state for rendering and records finished episodes as watched
func (m *PlayerModel) handleSnapshot(snap player.Snapshot) {
	if snap.Seq < m.snapshot.Seq {
		return
	}
	previous := m.snapshot
	m.snapshot = snap

	if snap.State == player.StateEnded && (previous.State != player.StateEnded || previous.SessionID != snap.SessionID) {
		if number, ok := m.controller.EpisodeForSession(snap.SessionID); ok {
			if err := m.library.MarkWatched(m.anime.ID, number); err != nil {
				log.Warn("Failed to mark episode watched", "anime_id", m.anime.ID, "episode", number, "error", err)
			}
		}
	}

	if snap.State == player.StateIdle || snap.State == player.StateFatal {
		m.transport.SetFocused(false)
	}
	m.refreshStatus()
}

// handleGridKey processes keys while the episode grid holds focus
func (m *PlayerModel) handleGridKey(msg tea.KeyMsg) tea.Cmd {
	columns := m.gridColumns()

	switch kb.GetActionByKey(msg, kb.ContextEpisodes) {
	case kb.ActionMoveUp:
		m.moveCursor(-columns)
		return Handled("cursor_move:up")
	case kb.ActionMoveDown:
		m.moveCursor(columns)
		return Handled("cursor_move:down")
	case kb.ActionMoveLeft:
		m.moveCursor(-1)
		return Handled("cursor_move:left")
	case kb.ActionMoveRight:
		m.moveCursor(1)
		return Handled("cursor_move:right")
	case kb.ActionPageUp:
		m.moveCursor(-columns * m.gridRows())
		return Handled("cursor_move:page_up")
	case kb.ActionPageDown:
		m.moveCursor(columns * m.gridRows())
		return Handled("cursor_move:page_down")
	case kb.ActionMoveTop:
		m.cursor = 0
		return Handled("cursor_move:top")
	case kb.ActionMoveBottom:
		m.cursor = max(len(m.status.Episodes)-1, 0)
		return Handled("cursor_move:bottom")

	case kb.ActionSelectEpisode:
		return m.handleSelectEpisode()
	case kb.ActionRetry:
		return m.handleRetry()
	case kb.ActionFocusPlayer:
		if !m.hasSession() {
			m.message = "Nothing is playing.  Pick an episode first."
			return Handled("focus:no_session")
		}
		m.transport.SetFocused(true)
		return Handled("focus:player")
	case kb.ActionToggleFavorite:
		return toggleFavoriteCmd(m.library, m.anime)
	}

	return nil
}

// handleTransportKey processes keys while the player holds focus
func (m *PlayerModel) handleTransportKey(msg tea.KeyMsg) tea.Cmd {
	transport := m.transport
	key := msg.String()

	switch action := kb.GetActionByKey(msg, kb.ContextTransport); action {
	case kb.ActionTogglePlayPause, kb.ActionSeekBackward, kb.ActionSeekForward, kb.ActionToggleMute,
		kb.ActionToggleFullscreen, kb.ActionSkipSegment:
		return func() tea.Msg {
			transport.HandleKey(key)
			return HandledMsg{Action: string(action)}
		}
	case kb.ActionVolumeUp:
		volume := m.snapshot.Volume + volumeStep
		return transportCmd("volume:up", func() error { return transport.SetVolume(volume) })
	case kb.ActionVolumeDown:
		volume := m.snapshot.Volume - volumeStep
		return transportCmd("volume:down", func() error { return transport.SetVolume(volume) })
	case kb.ActionRateUp:
		return transportCmd("rate:up", func() error { return transport.CycleRate(true) })
	case kb.ActionRateDown:
		return transportCmd("rate:down", func() error { return transport.CycleRate(false) })
	case kb.ActionChooseRate:
		menu := playbackRateMenu(m.snapshot.PlaybackRate)
		return func() tea.Msg { return MenuMsg{Menu: menu} }
	case kb.ActionRetry:
		return m.handleRetry()
	case kb.ActionReleaseFocus:
		transport.SetFocused(false)
		return Handled("focus:release")
	}

	return nil
}

func (m *PlayerModel) handleSelectEpisode() tea.Cmd {
	if len(m.status.Episodes) == 0 {
		return Handled("select_episode:no_episodes")
	}
	if m.snapshot.ElementGone {
		return Handled("select_episode:player_gone")
	}
	ep := m.status.Episodes[m.cursor]
	if !ep.Playable() {
		m.message = fmt.Sprintf("Episode %d is not available from any provider.", ep.Number)
		return Handled("select_episode:not_playable")
	}

	log.Info("Episode selected to play", "title", m.anime.Title, "episode", ep.Number, "provider", ep.Provider)
	controller := m.controller
	number := ep.Number
	return withLoading(fmt.Sprintf("Loading episode %d of %s...", number, m.anime.Title), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		return EpisodeSelectedMsg{Number: number, Err: controller.SelectEpisode(ctx, number)}
	})
}

func (m *PlayerModel) handleRetry() tea.Cmd {
	if m.snapshot.ElementGone {
		return Handled("retry:player_gone")
	}
	if m.status.Err == nil && m.snapshot.State != player.StateFatal {
		return Handled("retry:nothing_failed")
	}

	log.Info("Retrying", "title", m.anime.Title, "episode", m.status.Current)
	controller := m.controller
	current := m.status.Current
	return withLoading("Retrying...", func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		return EpisodeSelectedMsg{Number: current, Err: controller.Retry(ctx)}
	})
}

func (m *PlayerModel) openCmd() tea.Cmd {
	controller := m.controller
	anime := m.anime
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		return EpisodesResolvedMsg{AnimeID: anime.ID, Err: controller.Open(ctx, anime)}
	}
}

func transportCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			log.Warn("Transport command failed", "action", action, "error", err)
		}
		return HandledMsg{Action: action}
	}
}

// playbackRateMenu builds the speed picker, starting on the current speed
func playbackRateMenu(current float64) *MenuModel {
	items := lo.Map(player.PlaybackRates, func(rate float64, _ int) MenuItem {
		return MenuItem{
			Text:    formatRate(rate),
			Command: func() tea.Msg { return PlaybackRateChosenMsg{Rate: rate} },
		}
	})
	return NewMenuModel("Playback speed", items).WithCursor(lo.IndexOf(player.PlaybackRates, current))
}

func (m *PlayerModel) refreshStatus() {
	m.status = m.controller.Status()
	if m.cursor >= len(m.status.Episodes) {
		m.cursor = max(len(m.status.Episodes)-1, 0)
	}
}

func (m *PlayerModel) hasSession() bool {
	return m.snapshot.SessionID != "" && m.snapshot.State != player.StateIdle
}

// firstUnwatched is where the cursor starts when the episodes are listed
func (m *PlayerModel) firstUnwatched() int {
	for i, ep := range m.status.Episodes {
		if !m.library.IsWatched(m.anime.ID, ep.Number) {
			return i
		}
	}
	return 0
}

func (m *PlayerModel) moveCursor(delta int) {
	if len(m.status.Episodes) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.status.Episodes)-1)
}

func (m *PlayerModel) moveCursorTo(number int) {
	if _, idx, ok := lo.FindIndexOf(m.status.Episodes, func(ep domain.Episode) bool { return ep.Number == number }); ok {
		m.cursor = idx
	}
}
