package domain

import "context"

// CatalogRepository defines the interface for the public anime catalog
type CatalogRepository interface {
	// TopAnime retrieves one page of the most popular shows.  Pages start at 1.
	TopAnime(ctx context.Context, page int) ([]*Anime, error)

	// SeasonalAnime retrieves one page of the shows airing this season
	SeasonalAnime(ctx context.Context, page int) ([]*Anime, error)

	// SearchAnime searches the catalog by free text
	SearchAnime(ctx context.Context, query string) ([]*Anime, error)
}

// ProviderClient talks to one streaming source provider.  Each call is a single round trip without retries.
type ProviderClient interface {
	// Tag returns the provider this client talks to
	Tag() ProviderTag

	// Search returns the shows matching the title.  An empty list means no match.
	Search(ctx context.Context, title string) ([]CandidateMatch, error)

	// FetchEpisodes returns the episodes of a show.  An empty list means the show has no episodes on this provider.
	FetchEpisodes(ctx context.Context, candidateID string) ([]Episode, error)

	// FetchSource returns the playable sources of an episode
	FetchSource(ctx context.Context, episodeID string) (*StreamData, error)
}
