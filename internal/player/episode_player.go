package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
)

// SourceResolver resolves episode lists and sources.  Implemented by resolver.Resolver.
type SourceResolver interface {
	ResolveEpisodes(ctx context.Context, title string) ([]domain.Episode, domain.ProviderTag, error)
	ResolveSource(ctx context.Context, ep domain.Episode) (*domain.StreamData, error)
}

// PlaceholderFunc builds the non-playable episode list shown when no provider has a title
type PlaceholderFunc func(n int) []domain.Episode

// Status is the coordinator state the view renders
type Status struct {
	Anime    *domain.Anime
	Provider domain.ProviderTag
	Episodes []domain.Episode
	// NotFound is set when no provider had the title and Episodes are placeholders
	NotFound bool
	// Current is the selected episode number, 0 if none
	Current int
	Loading bool
	// Err is the last resolution failure for the current selection
	Err error
}

// EpisodePlayer coordinates episode resolution and playback for one show at a time.  Every selection bumps a
// generation counter and cancels the previous request, and a result that arrives for an older generation is
// discarded without touching the engine.
type EpisodePlayer struct {
	resolver     SourceResolver
	engine       *Engine
	transport    *Transport
	placeholders PlaceholderFunc
	unsubscribe  func()

	// loadMu serialises engine Load and Unload calls made on behalf of selections
	loadMu sync.Mutex

	mu          sync.Mutex
	baseCtx     context.Context
	anime       *domain.Anime
	episodes    []domain.Episode
	provider    domain.ProviderTag
	notFound    bool
	current     int
	loading     bool
	err         error
	generation  uint64
	cancel      context.CancelFunc
	sessionFor  map[string]int
	lastSession string
	advancedFor string
	callbacks   []func(int)
}

// NewEpisodePlayer creates the coordinator.  screen may be nil.
func NewEpisodePlayer(resolver SourceResolver, engine *Engine, screen Screen, placeholders PlaceholderFunc) *EpisodePlayer {
	p := &EpisodePlayer{
		resolver:     resolver,
		engine:       engine,
		transport:    NewTransport(engine, screen),
		placeholders: placeholders,
		baseCtx:      context.Background(),
		sessionFor:   map[string]int{},
	}
	p.unsubscribe = engine.Subscribe(p.handleSnapshot)
	return p
}

// Engine returns the playback engine
func (p *EpisodePlayer) Engine() *Engine {
	return p.engine
}

// Transport returns the transport controls bound to the engine
func (p *EpisodePlayer) Transport() *Transport {
	return p.transport
}

// OnEpisodeComplete registers a callback fired with the next episode number when playback advances automatically
func (p *EpisodePlayer) OnEpisodeComplete(fn func(number int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// Open resolves the episodes of a show.  If no provider has it, a placeholder list is installed and
// domain.ErrNotFound is returned so the view can show a banner over the grid.
func (p *EpisodePlayer) Open(ctx context.Context, anime *domain.Anime) error {
	ctx, gen := p.begin(ctx, func() {
		p.anime = anime
		p.episodes = nil
		p.provider = ""
		p.notFound = false
		p.current = 0
		p.loading = true
	})
	p.unload()

	episodes, provider, err := p.resolver.ResolveEpisodes(ctx, anime.Title)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return domain.ErrStaleRequest
	}
	p.loading = false

	switch {
	case err == nil:
		p.episodes = episodes
		p.provider = provider
		return nil
	case errors.Is(err, domain.ErrNotFound):
		p.episodes = p.placeholders(anime.EpisodeCount())
		p.notFound = true
		p.err = err
		return err
	default:
		p.err = err
		return err
	}
}

// SelectEpisode resolves and plays episode number.  The current session is stopped before anything else happens.
// Returns domain.ErrStaleRequest if another selection replaced this one while it was resolving.
func (p *EpisodePlayer) SelectEpisode(ctx context.Context, number int) error {
	p.mu.Lock()
	ep, ok := domain.FindEpisode(p.episodes, number)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("episode %d is not in the episode list", number)
	}

	ctx, gen := p.begin(ctx, func() {
		p.current = number
		p.loading = ep.Playable()
	})
	p.unload()

	if !ep.Playable() {
		p.fail(gen, domain.ErrNotPlayable)
		return domain.ErrNotPlayable
	}

	log.Info("Selecting episode", "episode", number, "provider", ep.Provider, "generation", gen)
	data, err := p.resolver.ResolveSource(ctx, ep)
	if err != nil {
		if p.fail(gen, err) {
			return domain.ErrStaleRequest
		}
		return err
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		log.Debug("Discarding stale source resolution", "episode", number, "generation", gen)
		return domain.ErrStaleRequest
	}
	p.loading = false
	p.mu.Unlock()

	if err := p.engine.Load(data); err != nil {
		p.fail(gen, err)
		return err
	}

	p.mu.Lock()
	if snap := p.engine.Snapshot(); snap.SessionID != "" {
		p.sessionFor[snap.SessionID] = number
		p.lastSession = snap.SessionID
	}
	p.mu.Unlock()
	return nil
}

// Retry rebuilds the current selection from scratch.  Without a selection it resolves the episode list again.
func (p *EpisodePlayer) Retry(ctx context.Context) error {
	p.mu.Lock()
	anime, current, notFound := p.anime, p.current, p.notFound
	p.mu.Unlock()

	if anime == nil {
		return nil
	}
	if notFound || current == 0 {
		if err := p.Open(ctx, anime); err != nil {
			return err
		}
		if current == 0 {
			return nil
		}
	}
	return p.SelectEpisode(ctx, current)
}

// Back cancels any pending request, stops playback and forgets the current show
func (p *EpisodePlayer) Back() {
	p.begin(context.Background(), func() {
		p.anime = nil
		p.episodes = nil
		p.provider = ""
		p.notFound = false
		p.current = 0
		p.loading = false
	})
	p.unload()
}

// Close stops playback and detaches from the engine
func (p *EpisodePlayer) Close() {
	p.Back()
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

// Status returns a copy of the coordinator state
func (p *EpisodePlayer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Anime:    p.anime,
		Provider: p.provider,
		Episodes: append([]domain.Episode(nil), p.episodes...),
		NotFound: p.notFound,
		Current:  p.current,
		Loading:  p.loading,
		Err:      p.err,
	}
}

// Episodes returns the resolved episode list
func (p *EpisodePlayer) Episodes() []domain.Episode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Episode(nil), p.episodes...)
}

// EpisodeForSession returns the episode number a playback session was started for
func (p *EpisodePlayer) EpisodeForSession(sessionID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	number, ok := p.sessionFor[sessionID]
	return number, ok
}

// Provider returns the provider the episode list was resolved from
func (p *EpisodePlayer) Provider() domain.ProviderTag {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.provider
}

// begin cancels the in-flight request, bumps the generation and applies update, all under the lock.  Returns the
// context for the new request and its generation.
func (p *EpisodePlayer) begin(ctx context.Context, update func()) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	// Snapshots of the last session may still be in flight, older ones are gone
	for id := range p.sessionFor {
		if id != p.lastSession {
			delete(p.sessionFor, id)
		}
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.baseCtx = context.WithoutCancel(ctx)
	p.err = nil
	update()
	return ctx, p.generation
}

// unload stops the engine synchronously before a new request starts
func (p *EpisodePlayer) unload() {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	p.engine.Unload()
}

// fail records err for generation gen.  Returns true if the generation is stale and err was dropped.
func (p *EpisodePlayer) fail(gen uint64, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		return true
	}
	p.loading = false
	p.err = err
	return false
}

// handleSnapshot auto-advances when a session ends and keeps the transport's fullscreen state in sync
func (p *EpisodePlayer) handleSnapshot(snap Snapshot) {
	p.transport.HandleFullscreenChange(snap.Fullscreen)

	if snap.State != StateEnded || snap.SessionID == "" {
		return
	}

	p.mu.Lock()
	number, known := p.sessionFor[snap.SessionID]
	if !known || p.advancedFor == snap.SessionID || number != p.current {
		p.mu.Unlock()
		return
	}
	p.advancedFor = snap.SessionID

	next, ok := domain.FindEpisode(p.episodes, number+1)
	if !ok || !next.Playable() {
		p.mu.Unlock()
		log.Info("Last episode finished", "episode", number)
		return
	}
	callbacks := slices.Clone(p.callbacks)
	ctx := p.baseCtx
	p.mu.Unlock()

	log.Info("Episode finished, advancing", "episode", number, "next", next.Number)
	for _, fn := range callbacks {
		fn(next.Number)
	}

	// Snapshots are delivered from inside engine calls, so the next load runs on its own goroutine
	go func() {
		if err := p.SelectEpisode(ctx, next.Number); err != nil && !errors.Is(err, domain.ErrStaleRequest) {
			log.Warn("Auto-advance failed", "episode", next.Number, "error", err)
		}
	}()
}
