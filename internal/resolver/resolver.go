package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/metrics"
)

// Resolver resolves episode lists and episode sources across providers in a fixed priority order
type Resolver struct {
	providers []domain.ProviderClient
	byTag     map[domain.ProviderTag]domain.ProviderClient
	quality   domain.QualityPreference
	metrics   *metrics.Metrics
}

// Option configures a Resolver
type Option func(*Resolver)

// WithQualityPreference sets the labels used to pick a source
func WithQualityPreference(q domain.QualityPreference) Option {
	return func(r *Resolver) {
		r.quality = q
	}
}

// WithMetrics records resolution metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a resolver.  The order of providers is the fallback priority.
func New(providers []domain.ProviderClient, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		byTag:     make(map[domain.ProviderTag]domain.ProviderClient, len(providers)),
		quality:   domain.DefaultQualityPreference(),
	}
	for _, p := range providers {
		r.byTag[p.Tag()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider tags in priority order
func (r *Resolver) Providers() []domain.ProviderTag {
	tags := make([]domain.ProviderTag, 0, len(r.providers))
	for _, p := range r.providers {
		tags = append(tags, p.Tag())
	}
	return tags
}

// ResolveEpisodes asks each provider in turn for the episodes of title, and returns the first non-empty list with
// every episode tagged with the provider it came from.  Results are never merged across providers, and providers
// after the first hit are not queried.  Provider failures move on to the next provider.  Returns domain.ErrNotFound
// if no provider has the title.
func (r *Resolver) ResolveEpisodes(ctx context.Context, title string) ([]domain.Episode, domain.ProviderTag, error) {
	log.Info("Resolving episodes", "title", title, "providers", len(r.providers))

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		episodes, err := r.episodesFrom(ctx, p, title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			log.Warn("Provider failed, trying next provider", "provider", p.Tag(), "title", title, "error", err)
			r.metrics.ProviderFallback(string(p.Tag()), "error")
			continue
		}
		if len(episodes) == 0 {
			log.Debug("Provider has no episodes, trying next provider", "provider", p.Tag(), "title", title)
			r.metrics.ProviderFallback(string(p.Tag()), "empty")
			continue
		}

		tagged := make([]domain.Episode, len(episodes))
		for i, ep := range episodes {
			ep.Provider = p.Tag()
			ep.Placeholder = false
			tagged[i] = ep
		}

		log.Info("Resolved episodes", "title", title, "provider", p.Tag(), "episodes", len(tagged))
		r.metrics.EpisodesResolved(string(p.Tag()))
		return tagged, p.Tag(), nil
	}

	log.Info("No provider has the title", "title", title)
	r.metrics.EpisodesResolved("")
	return nil, "", domain.ErrNotFound
}

// episodesFrom runs search then info against a single provider using the first search match
func (r *Resolver) episodesFrom(ctx context.Context, p domain.ProviderClient, title string) ([]domain.Episode, error) {
	matches, err := p.Search(ctx, title)
	r.metrics.ProviderRequest(string(p.Tag()), "search", err)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	best := matches[0]
	log.Debug("Using first search match", "provider", p.Tag(), "id", best.ID, "match_title", best.Title)

	episodes, err := p.FetchEpisodes(ctx, best.ID)
	r.metrics.ProviderRequest(string(p.Tag()), "info", err)
	if err != nil {
		return nil, fmt.Errorf("fetching episodes: %w", err)
	}
	return episodes, nil
}

// ResolveSource fetches the sources of an episode from the provider the episode came from.  There is no fallback to
// other providers since episode ids are provider specific.  Placeholder episodes return domain.ErrNotPlayable
// without any provider being called.
func (r *Resolver) ResolveSource(ctx context.Context, ep domain.Episode) (*domain.StreamData, error) {
	if !ep.Playable() {
		return nil, domain.ErrNotPlayable
	}

	p, ok := r.byTag[ep.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrSourceUnavailable, ep.Provider)
	}

	data, err := p.FetchSource(ctx, ep.ID)
	r.metrics.ProviderRequest(string(p.Tag()), "watch", err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.metrics.SourceResolved(string(p.Tag()), err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if data == nil || len(data.Sources) == 0 {
		err := fmt.Errorf("%w: provider %s returned no sources for episode %d", domain.ErrSourceUnavailable, p.Tag(), ep.Number)
		r.metrics.SourceResolved(string(p.Tag()), err)
		return nil, err
	}

	r.metrics.SourceResolved(string(p.Tag()), nil)
	log.Info("Resolved episode source", "provider", p.Tag(), "episode", ep.Number, "sources", len(data.Sources))
	return data, nil
}

// SelectSource picks the source to play out of a resolved StreamData
func (r *Resolver) SelectSource(data *domain.StreamData) (domain.StreamSource, bool) {
	if data == nil {
		return domain.StreamSource{}, false
	}
	return r.quality.Select(data.Sources)
}

// QualityPreference returns the labels used to pick a source
func (r *Resolver) QualityPreference() domain.QualityPreference {
	return r.quality
}

// PlaceholderEpisodes builds a list of n non-playable episodes numbered from 1, used to render an episode grid when
// no provider has the title.
func PlaceholderEpisodes(n int) []domain.Episode {
	if n <= 0 {
		n = domain.DefaultEpisodeCount
	}
	episodes := make([]domain.Episode, n)
	for i := range episodes {
		episodes[i] = domain.Episode{
			Number:      i + 1,
			Placeholder: true,
		}
	}
	return episodes
}
