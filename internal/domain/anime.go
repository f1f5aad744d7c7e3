package domain

import "strings"

// DefaultEpisodeCount is used when a catalog record does not know how many episodes a show has.
const DefaultEpisodeCount = 12

// Anime represents the core catalog information about a show
type Anime struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	TitleJapanese string   `json:"title_japanese,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	LargeImageURL string   `json:"large_image_url,omitempty"`
	TrailerURL    string   `json:"trailer_url,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Score         float64  `json:"score,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Episodes      int      `json:"episodes,omitempty"`
	Status        string   `json:"status,omitempty"`
	Year          int      `json:"year,omitempty"`
	Type          string   `json:"type,omitempty"`
	Rating        string   `json:"rating,omitempty"`
}

// EpisodeCount returns the number of episodes to render for the show, falling back to DefaultEpisodeCount if the
// catalog does not know.
func (a *Anime) EpisodeCount() int {
	if a == nil || a.Episodes <= 0 {
		return DefaultEpisodeCount
	}
	return a.Episodes
}

// GenreList joins the genres for display
func (a *Anime) GenreList() string {
	return strings.Join(a.Genres, ", ")
}
