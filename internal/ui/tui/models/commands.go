package models

import (
	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	tea "github.com/charmbracelet/bubbletea"
)

// toggleFavoriteCmd adds or removes anime from the favorites
func toggleFavoriteCmd(lib *library.Library, anime *domain.Anime) tea.Cmd {
	if anime == nil {
		return Handled("toggle_favorite:none_selected")
	}
	return func() tea.Msg {
		favorite, err := lib.ToggleFavorite(anime)
		if err != nil {
			log.Error("Failed to save favorites", "id", anime.ID, "error", err)
		} else {
			log.Info("Favorite toggled", "id", anime.ID, "title", anime.Title, "favorite", favorite)
		}
		return FavoriteToggledMsg{AnimeID: anime.ID, Favorite: favorite, Err: err}
	}
}

// favoriteStatus describes the outcome of a favorite toggle for the status line
func favoriteStatus(msg FavoriteToggledMsg) string {
	switch {
	case msg.Err != nil:
		return "Could not save your favorites."
	case msg.Favorite:
		return "Added to favorites."
	default:
		return "Removed from favorites."
	}
}
