package jikan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topPage = `{
  "pagination": {"current_page": 2, "has_next_page": true},
  "data": [
    {
      "mal_id": 52991,
      "title": "Sousou no Frieren",
      "title_english": "Frieren: Beyond Journey's End",
      "title_japanese": "葬送のフリーレン",
      "images": {"jpg": {"image_url": "https://cdn.example/s.jpg", "large_image_url": "https://cdn.example/l.jpg"}},
      "trailer": {"url": null, "embed_url": "https://youtube.example/embed/abc"},
      "synopsis": "An elf mage outlives her party.",
      "score": 9.31,
      "genres": [{"mal_id": 2, "name": "Adventure"}, {"mal_id": 8, "name": "Drama"}],
      "episodes": 28,
      "status": "Finished Airing",
      "year": null,
      "aired": {"prop": {"from": {"year": 2023}}},
      "type": "TV",
      "rating": "PG-13 - Teens 13 or older"
    },
    {"mal_id": 52991, "title": "duplicate"},
    {"title": "no id"},
    {"mal_id": 21, "title": "One Piece", "episodes": null, "year": 1999}
  ]
}`

type recorder struct {
	mu      sync.Mutex
	queries []url.URL
}

func (r *recorder) last() url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries[len(r.queries)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.queries = append(rec.queries, *r.URL)
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestTopAnime(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, topPage)
	repo := NewRepository(srv.URL+"/", WithRequestInterval(0), WithPageSize(10))

	anime, err := repo.TopAnime(context.Background(), 2)
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, "/top/anime", req.Path)
	assert.Equal(t, "bypopularity", req.Query().Get("filter"))
	assert.Equal(t, "2", req.Query().Get("page"))
	assert.Equal(t, "10", req.Query().Get("limit"))

	require.Len(t, anime, 2)
	assert.Equal(t, &domain.Anime{
		ID:            52991,
		Title:         "Sousou no Frieren",
		TitleJapanese: "葬送のフリーレン",
		ImageURL:      "https://cdn.example/s.jpg",
		LargeImageURL: "https://cdn.example/l.jpg",
		TrailerURL:    "https://youtube.example/embed/abc",
		Synopsis:      "An elf mage outlives her party.",
		Score:         9.31,
		Genres:        []string{"Adventure", "Drama"},
		Episodes:      28,
		Status:        "Finished Airing",
		Year:          2023,
		Type:          "TV",
		Rating:        "PG-13 - Teens 13 or older",
	}, anime[0])

	assert.Equal(t, 21, anime[1].ID)
	assert.Zero(t, anime[1].Episodes)
	assert.Equal(t, domain.DefaultEpisodeCount, anime[1].EpisodeCount())
}

func TestSeasonalAnimeDefaultsToFirstPage(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"data":[]}`)
	repo := NewRepository(srv.URL, WithRequestInterval(0))

	anime, err := repo.SeasonalAnime(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, anime)

	req := rec.last()
	assert.Equal(t, "/seasons/now", req.Path)
	assert.Equal(t, "1", req.Query().Get("page"))
	assert.Equal(t, "24", req.Query().Get("limit"))
}

func TestSearchAnime(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, topPage)
	repo := NewRepository(srv.URL, WithRequestInterval(0))

	_, err := repo.SearchAnime(context.Background(), "  <b>frieren</b>   beyond ")
	require.NoError(t, err)

	req := rec.last()
	assert.Equal(t, "/anime", req.Path)
	assert.Equal(t, "frieren beyond", req.Query().Get("q"))
	assert.Equal(t, "true", req.Query().Get("sfw"))

	anime, err := repo.SearchAnime(context.Background(), "<i></i>  ")
	require.NoError(t, err)
	assert.Nil(t, anime)
	assert.Equal(t, 1, rec.count(), "an empty query is not sent")
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"not json", http.StatusOK, `<html>maintenance</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			repo := NewRepository(srv.URL, WithRequestInterval(0))

			_, err := repo.TopAnime(context.Background(), 1)
			assert.Error(t, err)
		})
	}
}

func TestMissingDataIsEmpty(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":404}`)
	repo := NewRepository(srv.URL, WithRequestInterval(0))

	anime, err := repo.TopAnime(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, anime)
}

func TestRequestsArePaced(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"data":[]}`)
	repo := NewRepository(srv.URL, WithRequestInterval(50*time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := repo.TopAnime(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, rec.count())
}

func TestCancelledWhileWaiting(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"data":[]}`)
	repo := NewRepository(srv.URL, WithRequestInterval(time.Hour))

	_, err := repo.TopAnime(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = repo.TopAnime(ctx, 1)
	assert.Error(t, err)
	assert.Equal(t, 1, rec.count())
}
