package service

import (
	"context"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/samber/lo"
)

// Feed is one of the browsable catalog lists
type Feed int

const (
	FeedTrending Feed = iota
	FeedSeasonal
)

func (f Feed) String() string {
	switch f {
	case FeedTrending:
		return "trending"
	case FeedSeasonal:
		return "seasonal"
	default:
		return "unknown"
	}
}

// Notices shown to the user in place of errors
const (
	NoticeFallback       = "Could not load the live catalog.  Showing sample titles instead."
	NoticeUnreachable    = "Could not reach the catalog.  Check your connection and try again."
	NoticeLoadMoreFailed = "Could not load more titles.  Try again."
	NoticeSearchBlocked  = "That search was blocked.  Try a plain title."
	NoticeNoResults      = "No results.  Try another title or check your connection."
	NoticeSearchFailed   = "The search could not be completed.  Try again later."
)

// SearchResult is the outcome of a search.  Notice is empty when there is nothing to tell the user.
type SearchResult struct {
	Query  string
	Anime  []*domain.Anime
	Notice string
}

type feedState struct {
	anime []*domain.Anime
	page  int
}

// CatalogService keeps the catalog lists the view browses.  It never surfaces errors: failures become a notice and
// the sample catalog stands in for a list that could not be loaded.
type CatalogService struct {
	repo     domain.CatalogRepository
	fallback []*domain.Anime

	mu           sync.RWMutex
	feeds        map[Feed]*feedState
	search       SearchResult
	notice       string
	fromFallback bool
}

func NewCatalogService(repo domain.CatalogRepository, fallback []*domain.Anime) *CatalogService {
	return &CatalogService{
		repo:     repo,
		fallback: fallback,
		feeds: map[Feed]*feedState{
			FeedTrending: {},
			FeedSeasonal: {},
		},
	}
}

// Load fetches the first page of every feed.  A feed that fails or comes back empty shows the sample catalog.
func (s *CatalogService) Load(ctx context.Context) {
	type outcome struct {
		anime []*domain.Anime
		err   error
	}
	fetch := map[Feed]func(context.Context, int) ([]*domain.Anime, error){
		FeedTrending: s.repo.TopAnime,
		FeedSeasonal: s.repo.SeasonalAnime,
	}

	results := make(map[Feed]outcome, len(fetch))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for feed, fn := range fetch {
		wg.Add(1)
		go func(feed Feed, fn func(context.Context, int) ([]*domain.Anime, error)) {
			defer wg.Done()
			anime, err := fn(ctx, 1)
			mu.Lock()
			results[feed] = outcome{anime: anime, err: err}
			mu.Unlock()
		}(feed, fn)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notice = ""
	s.fromFallback = false
	for feed, res := range results {
		state := s.feeds[feed]
		if res.err == nil && len(res.anime) > 0 {
			state.anime = res.anime
			state.page = 1
			continue
		}

		if res.err != nil {
			log.Warn("Failed to load catalog feed, using sample catalog", "feed", feed, "error", res.err)
			s.notice = NoticeUnreachable
		} else {
			log.Warn("Catalog feed is empty, using sample catalog", "feed", feed)
			if s.notice == "" {
				s.notice = NoticeFallback
			}
		}
		state.anime = s.fallback
		state.page = 0
		s.fromFallback = true
	}
}

// LoadMore appends the next page of a feed.  An empty page leaves the feed as it is.  Feeds showing the sample
// catalog start over from the first page.
func (s *CatalogService) LoadMore(ctx context.Context, feed Feed) {
	s.mu.RLock()
	state, ok := s.feeds[feed]
	if !ok {
		s.mu.RUnlock()
		return
	}
	next := state.page + 1
	s.mu.RUnlock()

	var (
		anime []*domain.Anime
		err   error
	)
	switch feed {
	case FeedTrending:
		anime, err = s.repo.TopAnime(ctx, next)
	case FeedSeasonal:
		anime, err = s.repo.SeasonalAnime(ctx, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		log.Warn("Failed to load more of a catalog feed", "feed", feed, "page", next, "error", err)
		s.notice = NoticeLoadMoreFailed
		return
	}
	if len(anime) == 0 {
		log.Debug("Catalog feed has no more pages", "feed", feed, "page", next)
		return
	}

	if state.page == 0 {
		state.anime = nil
	}
	state.anime = lo.UniqBy(append(state.anime, anime...), func(a *domain.Anime) int { return a.ID })
	state.page = next
	s.fromFallback = lo.SomeBy(lo.Values(s.feeds), func(f *feedState) bool { return f.page == 0 })
}

// Search runs a catalog search.  The result is also kept for lookups by id.
func (s *CatalogService) Search(ctx context.Context, query string) SearchResult {
	result := SearchResult{Query: domain.SanitizeQuery(query)}

	switch {
	case result.Query == "":
		result.Notice = NoticeSearchBlocked
	default:
		anime, err := s.repo.SearchAnime(ctx, result.Query)
		switch {
		case err != nil:
			log.Warn("Catalog search failed", "query", result.Query, "error", err)
			result.Notice = NoticeSearchFailed
		case len(anime) == 0:
			result.Notice = NoticeNoResults
		default:
			result.Anime = anime
		}
	}

	s.mu.Lock()
	s.search = result
	s.mu.Unlock()
	return result
}

// Feed returns the anime loaded so far for a feed
func (s *CatalogService) Feed(feed Feed) []*domain.Anime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.feeds[feed]; ok {
		return state.anime
	}
	return nil
}

// Page returns the last page loaded for a feed.  0 means the feed shows the sample catalog.
func (s *CatalogService) Page(feed Feed) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.feeds[feed]; ok {
		return state.page
	}
	return 0
}

// LastSearch returns the result of the most recent search
func (s *CatalogService) LastSearch() SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

// Notice returns the message describing the last catalog failure, if any
func (s *CatalogService) Notice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notice
}

// DismissNotice clears the current notice
func (s *CatalogService) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}

// FromFallback reports whether any feed is showing the sample catalog
func (s *CatalogService) FromFallback() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fromFallback
}

// AnimeByID finds an anime among the loaded feeds and the last search
func (s *CatalogService) AnimeByID(id int) *domain.Anime {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lists := [][]*domain.Anime{s.feeds[FeedTrending].anime, s.feeds[FeedSeasonal].anime, s.search.Anime}
	for _, list := range lists {
		if a, ok := lo.Find(list, func(a *domain.Anime) bool { return a.ID == id }); ok {
			return a
		}
	}
	return nil
}
