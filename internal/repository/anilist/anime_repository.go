package anilist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
)

// mediaFields is the selection shared by every catalog query
const mediaFields = `
	id
	title {
		romaji
		english
		native
		userPreferred
	}
	coverImage {
		large
		extraLarge
	}
	bannerImage
	description(asHtml: false)
	averageScore
	genres
	episodes
	status
	seasonYear
	format
	trailer {
		id
		site
	}
`

var (
	trendingQuery = `
		query ($page: Int, $perPage: Int) {
			Page(page: $page, perPage: $perPage) {
				media(type: ANIME, sort: [TRENDING_DESC, POPULARITY_DESC], isAdult: false) {` + mediaFields + `}
			}
		}
	`
	seasonalQuery = `
		query ($page: Int, $perPage: Int, $season: MediaSeason, $seasonYear: Int) {
			Page(page: $page, perPage: $perPage) {
				media(type: ANIME, season: $season, seasonYear: $seasonYear, sort: POPULARITY_DESC, isAdult: false) {` + mediaFields + `}
			}
		}
	`
	searchQuery = `
		query ($perPage: Int, $search: String) {
			Page(page: 1, perPage: $perPage) {
				media(type: ANIME, search: $search, sort: SEARCH_MATCH, isAdult: false) {` + mediaFields + `}
			}
		}
	`
)

type media struct {
	ID    int
	Title struct {
		Romaji        string
		English       string
		Native        string
		UserPreferred string
	}
	CoverImage struct {
		Large      string
		ExtraLarge string
	}
	BannerImage  string
	Description  string
	AverageScore float64
	Genres       []string
	Episodes     int
	Status       string
	SeasonYear   int
	Format       string
	Trailer      *struct {
		ID   string
		Site string
	}
}

type pageResponse struct {
	Page struct {
		Media []media
	}
}

// AnimeRepository implements domain.CatalogRepository on the public AniList API
type AnimeRepository struct {
	client   *Client
	pageSize int
	now      func() time.Time
}

func NewAnimeRepository(client *Client, pageSize int) *AnimeRepository {
	if pageSize <= 0 {
		pageSize = 24
	}
	return &AnimeRepository{
		client:   client,
		pageSize: pageSize,
		now:      time.Now,
	}
}

var _ domain.CatalogRepository = (*AnimeRepository)(nil)

// TopAnime returns what is trending on AniList
func (r *AnimeRepository) TopAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	variables := map[string]interface{}{
		"page":    max(page, 1),
		"perPage": r.pageSize,
	}
	return r.fetch(ctx, "trending", trendingQuery, variables)
}

// SeasonalAnime returns the most popular shows of the current season
func (r *AnimeRepository) SeasonalAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	season, year := currentSeason(r.now())
	variables := map[string]interface{}{
		"page":       max(page, 1),
		"perPage":    r.pageSize,
		"season":     season,
		"seasonYear": year,
	}
	return r.fetch(ctx, "seasonal", seasonalQuery, variables)
}

func (r *AnimeRepository) SearchAnime(ctx context.Context, query string) ([]*domain.Anime, error) {
	query = domain.SanitizeQuery(query)
	if query == "" {
		return nil, nil
	}
	variables := map[string]interface{}{
		"perPage": r.pageSize,
		"search":  query,
	}
	return r.fetch(ctx, "search", searchQuery, variables)
}

func (r *AnimeRepository) fetch(ctx context.Context, name, query string, variables map[string]interface{}) ([]*domain.Anime, error) {
	var response pageResponse
	if err := r.client.Query(ctx, query, variables, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch %s anime: %w", name, err)
	}

	animeList := make([]*domain.Anime, 0, len(response.Page.Media))
	for _, m := range response.Page.Media {
		if m.ID == 0 {
			continue
		}
		animeList = append(animeList, m.toDomain())
	}

	log.Debug("Fetched AniList page", "query", name, "count", len(animeList))
	return animeList, nil
}

func (m media) toDomain() *domain.Anime {
	a := &domain.Anime{
		ID:            m.ID,
		Title:         firstNonEmpty(m.Title.UserPreferred, m.Title.Romaji, m.Title.English),
		TitleJapanese: m.Title.Native,
		ImageURL:      domain.SanitizeURL(m.CoverImage.Large),
		LargeImageURL: domain.SanitizeURL(firstNonEmpty(m.BannerImage, m.CoverImage.ExtraLarge, m.CoverImage.Large)),
		Synopsis:      domain.StripTags(m.Description),
		Score:         m.AverageScore / 10,
		Genres:        m.Genres,
		Episodes:      m.Episodes,
		Status:        statusLabel(m.Status),
		Year:          m.SeasonYear,
		Type:          m.Format,
	}
	if m.Trailer != nil && strings.EqualFold(m.Trailer.Site, "youtube") && m.Trailer.ID != "" {
		a.TrailerURL = "https://www.youtube.com/watch?v=" + m.Trailer.ID
	}
	return a
}

// currentSeason returns the AniList season containing t.  December belongs to the winter season of the next year.
func currentSeason(t time.Time) (string, int) {
	year := t.Year()
	switch t.Month() {
	case time.December:
		return "WINTER", year + 1
	case time.January, time.February:
		return "WINTER", year
	case time.March, time.April, time.May:
		return "SPRING", year
	case time.June, time.July, time.August:
		return "SUMMER", year
	default:
		return "FALL", year
	}
}

func statusLabel(status string) string {
	switch status {
	case "FINISHED":
		return "Finished Airing"
	case "RELEASING":
		return "Currently Airing"
	case "NOT_YET_RELEASED":
		return "Not yet aired"
	case "CANCELLED":
		return "Cancelled"
	case "HIATUS":
		return "On Hiatus"
	default:
		return status
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
