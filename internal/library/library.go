package library

import (
	"fmt"
	"sort"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/store"
	"github.com/samber/lo"
)

// HistoryLimit is the number of shows kept in the watch history
const HistoryLimit = 20

const (
	favoritesKey = "favorites"
	historyKey   = "history"
	watchedKey   = "watchedEpisodes"
)

// Library holds the user's favorites, watch history and watched episodes.  Everything is read from the store once in
// Load, and every mutating call writes the affected key back before returning.
type Library struct {
	store store.Store

	mu        sync.RWMutex
	favorites []*domain.Anime
	history   []*domain.Anime
	watched   map[int][]int
}

// Load reads the library from the store.  A key that cannot be decoded is logged and treated as empty.
func Load(s store.Store) *Library {
	l := &Library{
		store:   s,
		watched: map[int][]int{},
	}

	l.favorites = loadKey[[]*domain.Anime](s, favoritesKey)
	l.history = loadKey[[]*domain.Anime](s, historyKey)
	if watched := loadKey[map[int][]int](s, watchedKey); watched != nil {
		l.watched = watched
	}

	log.Info("Loaded library", "favorites", len(l.favorites), "history", len(l.history), "watched_shows", len(l.watched))
	return l
}

func loadKey[T any](s store.Store, key string) T {
	var v T
	if _, err := s.Get(key, &v); err != nil {
		log.Warn("Failed to read library key, resetting it", "key", key, "error", err)
		var zero T
		return zero
	}
	return v
}

// Favorites returns the favorite shows, most recently added first
func (l *Library) Favorites() []*domain.Anime {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*domain.Anime(nil), l.favorites...)
}

// IsFavorite reports whether the show is a favorite
func (l *Library) IsFavorite(id int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.ContainsBy(l.favorites, func(a *domain.Anime) bool { return a.ID == id })
}

// ToggleFavorite adds the show to the front of the favorites, or removes it if it is already a favorite.  Returns
// whether the show is a favorite after the call.
func (l *Library) ToggleFavorite(anime *domain.Anime) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	without := lo.Filter(l.favorites, func(a *domain.Anime, _ int) bool { return a.ID != anime.ID })
	added := len(without) == len(l.favorites)
	if added {
		l.favorites = append([]*domain.Anime{anime}, without...)
	} else {
		l.favorites = without
	}

	if err := l.store.Set(favoritesKey, l.favorites); err != nil {
		return added, fmt.Errorf("saving favorites: %w", err)
	}
	return added, nil
}

// History returns the watch history, most recent first
func (l *Library) History() []*domain.Anime {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*domain.Anime(nil), l.history...)
}

// AddToHistory moves the show to the front of the history.  The history never holds the same show twice and never
// exceeds HistoryLimit entries, the oldest entry is dropped first.
func (l *Library) AddToHistory(anime *domain.Anime) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := append([]*domain.Anime{anime}, lo.Filter(l.history, func(a *domain.Anime, _ int) bool { return a.ID != anime.ID })...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	l.history = history

	if err := l.store.Set(historyKey, l.history); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// ClearHistory removes the whole history
func (l *Library) ClearHistory() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = nil
	if err := l.store.Remove(historyKey); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// MarkWatched records that an episode of a show was watched.  Marking an episode twice is a no-op.
func (l *Library) MarkWatched(animeID, episode int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lo.Contains(l.watched[animeID], episode) {
		return nil
	}
	episodes := append(append([]int(nil), l.watched[animeID]...), episode)
	sort.Ints(episodes)
	l.watched[animeID] = episodes

	if err := l.store.Set(watchedKey, l.watched); err != nil {
		return fmt.Errorf("saving watched episodes: %w", err)
	}
	return nil
}

// Watched returns the watched episode numbers of a show in ascending order
func (l *Library) Watched(animeID int) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]int(nil), l.watched[animeID]...)
}

// IsWatched reports whether the episode of the show was watched
func (l *Library) IsWatched(animeID, episode int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Contains(l.watched[animeID], episode)
}
