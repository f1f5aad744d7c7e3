package models

import (
	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/service"
	tea "github.com/charmbracelet/bubbletea"
)

// CatalogLoadedMsg is sent when the catalog feeds have been (re)loaded.  Failures are reported through the
// service notice, never as an error.
type CatalogLoadedMsg struct{}

// CatalogPageMsg is sent when another page of a feed has been requested
type CatalogPageMsg struct {
	Feed service.Feed
}

// SearchResultMsg carries the outcome of a catalog search
type SearchResultMsg struct {
	Result service.SearchResult
}

// AnimeDetailsMsg asks the app to show the details view for an anime
type AnimeDetailsMsg struct {
	Anime *domain.Anime
}

// OpenAnimeMsg asks the app to open the player view for an anime
type OpenAnimeMsg struct {
	Anime *domain.Anime
}

// EpisodesResolvedMsg is sent when the episode list of the open anime has been resolved.  Err is domain.ErrNotFound
// when placeholders are shown.
type EpisodesResolvedMsg struct {
	AnimeID int
	Err     error
}

// EpisodeRequestedMsg is sent when the user picks an episode to play
type EpisodeRequestedMsg struct {
	Number int
}

// EpisodeSelectedMsg is sent when a requested episode has been resolved and handed to the engine, or failed to be
type EpisodeSelectedMsg struct {
	Number int
	Err    error
}

// EpisodeAdvancedMsg is sent when playback moved on to the next episode on its own
type EpisodeAdvancedMsg struct {
	Number int
}

// SnapshotMsg carries a playback engine snapshot into the UI
type SnapshotMsg struct {
	Snapshot player.Snapshot
}

// FavoriteToggledMsg is sent after a favorite was added or removed
type FavoriteToggledMsg struct {
	AnimeID  int
	Favorite bool
	Err      error
}

// PlaybackRateChosenMsg is sent when a speed is picked from the playback rate menu
type PlaybackRateChosenMsg struct {
	Rate float64
}

// CloseViewMsg asks the app to pop the active view
type CloseViewMsg struct{}

// LoadingType starts or stops the loading overlay
type LoadingType int

const (
	LoadingStart LoadingType = iota
	LoadingStop
)

// LoadingMsg asks the app to show the loading overlay while Operation runs.  The message Operation returns is
// delivered once the overlay is removed.
type LoadingMsg struct {
	Type      LoadingType
	Message   string
	Operation tea.Cmd
}

type loadingDoneMsg struct {
	result tea.Msg
}

// withLoading wraps an operation so it runs behind the loading overlay
func withLoading(message string, operation tea.Cmd) tea.Cmd {
	return func() tea.Msg {
		return LoadingMsg{
			Type:      LoadingStart,
			Message:   message,
			Operation: operation,
		}
	}
}

// MenuMsg asks the app to show a menu over the active view
type MenuMsg struct {
	Menu *MenuModel
}

// viewActivatedMsg is delivered to a view when the view above it was closed
type viewActivatedMsg struct{}
