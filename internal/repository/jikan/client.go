// Package jikan reads the public Jikan REST catalog
package jikan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL         = "https://api.jikan.moe/v4"
	DefaultPageSize        = 24
	DefaultRequestInterval = 350 * time.Millisecond

	maxBodySize = 8 << 20
)

// Repository implements domain.CatalogRepository against the Jikan API.  Requests are paced by a limiter because
// the public API rejects bursts.
type Repository struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Repository
type Option func(*Repository)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Repository) {
		r.httpClient = c
	}
}

// WithPageSize sets the number of shows requested per page
func WithPageSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithRequestInterval sets the minimum time between two requests.  0 disables pacing.
func WithRequestInterval(d time.Duration) Option {
	return func(r *Repository) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewRepository creates a catalog repository for the Jikan API at baseURL.  An empty baseURL uses DefaultBaseURL.
func NewRepository(baseURL string, opts ...Option) *Repository {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	r := &Repository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ domain.CatalogRepository = (*Repository)(nil)

// TopAnime returns one page of shows ordered by popularity
func (r *Repository) TopAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	q := url.Values{}
	q.Set("filter", "bypopularity")
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("limit", strconv.Itoa(r.pageSize))
	return r.list(ctx, "/top/anime", q)
}

// SeasonalAnime returns one page of the shows airing this season
func (r *Repository) SeasonalAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("limit", strconv.Itoa(r.pageSize))
	return r.list(ctx, "/seasons/now", q)
}

// SearchAnime searches by title, excluding adult content.  A query that is empty once sanitised returns no results
// without a request.
func (r *Repository) SearchAnime(ctx context.Context, query string) ([]*domain.Anime, error) {
	query = domain.SanitizeQuery(query)
	if query == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("sfw", "true")
	q.Set("limit", strconv.Itoa(r.pageSize))
	return r.list(ctx, "/anime", q)
}

func (r *Repository) list(ctx context.Context, path string, q url.Values) ([]*domain.Anime, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := r.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	log.Trace("Catalog request", "url", endpoint)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog request %s returned status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}
	body := string(data)
	if !gjson.Valid(body) {
		return nil, errors.New("catalog response is not valid JSON")
	}

	anime := parseList(body)
	log.Debug("Fetched catalog page", "path", path, "count", len(anime))
	return anime, nil
}

// parseList reads the data array of a Jikan response.  Entries without an id are skipped.
func parseList(body string) []*domain.Anime {
	data := gjson.Get(body, "data")
	if !data.IsArray() {
		return nil
	}

	var out []*domain.Anime
	seen := map[int]bool{}
	for _, item := range data.Array() {
		id := int(item.Get("mal_id").Int())
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, parseAnime(item))
	}
	return out
}

func parseAnime(item gjson.Result) *domain.Anime {
	a := &domain.Anime{
		ID:            int(item.Get("mal_id").Int()),
		Title:         firstString(item, "title", "title_english"),
		TitleJapanese: item.Get("title_japanese").String(),
		ImageURL:      domain.SanitizeURL(firstString(item, "images.jpg.image_url", "images.webp.image_url")),
		LargeImageURL: domain.SanitizeURL(firstString(item, "images.jpg.large_image_url", "images.webp.large_image_url")),
		TrailerURL:    domain.SanitizeURL(firstString(item, "trailer.url", "trailer.embed_url")),
		Synopsis:      item.Get("synopsis").String(),
		Score:         item.Get("score").Float(),
		Episodes:      int(item.Get("episodes").Int()),
		Status:        item.Get("status").String(),
		Year:          int(item.Get("year").Int()),
		Type:          item.Get("type").String(),
		Rating:        item.Get("rating").String(),
	}
	if a.Year == 0 {
		a.Year = int(item.Get("aired.prop.from.year").Int())
	}
	for _, g := range item.Get("genres").Array() {
		if name := g.Get("name").String(); name != "" {
			a.Genres = append(a.Genres, name)
		}
	}
	return a
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
