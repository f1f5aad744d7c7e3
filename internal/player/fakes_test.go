package player

import (
	"context"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/domain"
)

// fakeElement records commands and lets tests emit events by hand
type fakeElement struct {
	mu        sync.Mutex
	nativeHLS bool
	playErr   error
	sources   []string
	cleared   int
	plays     int
	pauses    int
	seeks     []float64
	volumes   []float64
	mutes     []bool
	rates     []float64
	subs      map[int]func(MediaEvent)
	nextSub   int
}

func newFakeElement() *fakeElement {
	return &fakeElement{subs: map[int]func(MediaEvent){}}
}

func (f *fakeElement) SetSource(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, url)
	return nil
}

func (f *fakeElement) ClearSource() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return f.playErr
}

func (f *fakeElement) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeElement) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeElement) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, volume)
	return nil
}

func (f *fakeElement) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, muted)
	return nil
}

func (f *fakeElement) SetPlaybackRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakeElement) SupportsNativeHLS() bool {
	return f.nativeHLS
}

func (f *fakeElement) Subscribe(fn func(MediaEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeElement) emit(ev MediaEvent) {
	f.mu.Lock()
	subs := make([]func(MediaEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (f *fakeElement) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func (f *fakeElement) seekCalls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

func (f *fakeElement) sourceCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

// subtitleElement is a fake element that also takes external subtitle tracks
type subtitleElement struct {
	*fakeElement
	added []domain.Subtitle
}

func (s *subtitleElement) AddSubtitle(url, lang string) error {
	s.added = append(s.added, domain.Subtitle{URL: url, Lang: lang})
	return nil
}

// fakeAdaptive is one adaptive client handle
type fakeAdaptive struct {
	factory   *fakeAdaptiveFactory
	policy    LoaderPolicy
	url       string
	element   MediaElement
	handler   func(AdaptiveEvent)
	destroyed bool
	startLoad int
	recovers  int
}

func (c *fakeAdaptive) LoadSource(url string)            { c.url = url }
func (c *fakeAdaptive) AttachMedia(element MediaElement) { c.element = element }
func (c *fakeAdaptive) OnEvent(fn func(AdaptiveEvent))   { c.handler = fn }
func (c *fakeAdaptive) StartLoad()                       { c.startLoad++ }
func (c *fakeAdaptive) RecoverMediaError()               { c.recovers++ }

func (c *fakeAdaptive) emit(ev AdaptiveEvent) {
	c.handler(ev)
}

func (c *fakeAdaptive) Destroy() {
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()
	if !c.destroyed {
		c.destroyed = true
		c.factory.live--
	}
}

// fakeAdaptiveFactory counts handles so tests can check at most one is ever live
type fakeAdaptiveFactory struct {
	mu      sync.Mutex
	clients []*fakeAdaptive
	live    int
	maxLive int
}

func (f *fakeAdaptiveFactory) New(policy LoaderPolicy) AdaptiveClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeAdaptive{factory: f, policy: policy}
	f.clients = append(f.clients, c)
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	return c
}

func (f *fakeAdaptiveFactory) last() *fakeAdaptive {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[len(f.clients)-1]
}

// fakeScreen records fullscreen requests
type fakeScreen struct {
	requests []bool
}

func (s *fakeScreen) SetFullscreen(fullscreen bool) error {
	s.requests = append(s.requests, fullscreen)
	return nil
}

// gatedResolver resolves sources only when the test releases the gate for that episode
type gatedResolver struct {
	mu       sync.Mutex
	episodes []domain.Episode
	provider domain.ProviderTag
	listErr  error
	gates    map[int]chan struct{}
	sources  map[int]*domain.StreamData
	failures map[int]error
	fetched  []int
}

func newGatedResolver(n int) *gatedResolver {
	r := &gatedResolver{
		provider: domain.ProviderPrimary,
		gates:    map[int]chan struct{}{},
		sources:  map[int]*domain.StreamData{},
		failures: map[int]error{},
	}
	for i := 1; i <= n; i++ {
		r.episodes = append(r.episodes, domain.Episode{ID: episodeID(i), Number: i, Provider: domain.ProviderPrimary})
		r.sources[i] = &domain.StreamData{Sources: []domain.StreamSource{{URL: episodeURL(i), Quality: "default"}}}
	}
	return r
}

func episodeID(n int) string {
	return "show-episode-" + string(rune('a'+n))
}

func episodeURL(n int) string {
	return "https://cdn.example/" + episodeID(n) + ".mp4"
}

// gate makes source resolution for episode n block until the returned channel is closed
func (r *gatedResolver) gate(n int) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[n] = ch
	return ch
}

func (r *gatedResolver) ResolveEpisodes(ctx context.Context, title string) ([]domain.Episode, domain.ProviderTag, error) {
	if r.listErr != nil {
		return nil, "", r.listErr
	}
	return r.episodes, r.provider, nil
}

func (r *gatedResolver) ResolveSource(ctx context.Context, ep domain.Episode) (*domain.StreamData, error) {
	r.mu.Lock()
	r.fetched = append(r.fetched, ep.Number)
	gate := r.gates[ep.Number]
	data := r.sources[ep.Number]
	err := r.failures[ep.Number]
	r.mu.Unlock()

	if gate != nil {
		// Stale requests still complete so the coordinator has to discard them itself
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *gatedResolver) fail(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, n)
		return
	}
	r.failures[n] = err
}

func (r *gatedResolver) fetchedEpisodes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.fetched...)
}

func placeholders(n int) []domain.Episode {
	eps := make([]domain.Episode, n)
	for i := range eps {
		eps[i] = domain.Episode{Number: i + 1, Placeholder: true}
	}
	return eps
}
