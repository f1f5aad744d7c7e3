package hls

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
360/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2400000,RESOLUTION=1280x720
720/index.m3u8
`

const vodPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
#EXT-X-ENDLIST
`

const livePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:100
#EXTINF:6.0,
live100.ts
#EXTINF:6.0,
live101.ts
`

const emptyPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-ENDLIST
`

// streamServer serves a small HLS tree and counts requests per path
type streamServer struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	statuses map[string]int
	hits     map[string]int
	block    map[string]chan struct{}
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{
		bodies: map[string]string{
			"/master.m3u8":    masterPlaylist,
			"/360/index.m3u8": vodPlaylist,
			"/720/index.m3u8": vodPlaylist,
			"/360/seg0.ts":    "segment",
			"/720/seg0.ts":    "segment",
			"/live.m3u8":      livePlaylist,
			"/live100.ts":     "segment",
			"/empty.m3u8":     emptyPlaylist,
		},
		statuses: map[string]int{},
		hits:     map[string]int{},
		block:    map[string]chan struct{}{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, ok := s.bodies[r.URL.Path]
	status := s.statuses[r.URL.Path]
	block := s.block[r.URL.Path]
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (s *streamServer) setStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[path] = status
}

func (s *streamServer) setBody(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

func (s *streamServer) blockPath(path string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.block[path] = ch
	return ch
}

func (s *streamServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// fakeElement records the calls the client makes on the media element
type fakeElement struct {
	mu      sync.Mutex
	sources []string
	seeks   []float64
	plays   int
	subs    map[int]func(player.MediaEvent)
	nextSub int
}

func newFakeElement() *fakeElement {
	return &fakeElement{subs: map[int]func(player.MediaEvent){}}
}

func (f *fakeElement) SetSource(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, url)
	return nil
}

func (f *fakeElement) ClearSource() error { return nil }

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeElement) Pause() error { return nil }

func (f *fakeElement) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeElement) SetVolume(float64) error       { return nil }
func (f *fakeElement) SetMuted(bool) error           { return nil }
func (f *fakeElement) SetPlaybackRate(float64) error { return nil }
func (f *fakeElement) SupportsNativeHLS() bool       { return false }

func (f *fakeElement) Subscribe(fn func(player.MediaEvent)) func() {
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

func (f *fakeElement) emit(ev player.MediaEvent) {
	f.mu.Lock()
	subs := make([]func(player.MediaEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (f *fakeElement) sourceCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

func testPolicy() player.LoaderPolicy {
	return player.LoaderPolicy{
		ManifestTimeout:    time.Second,
		ManifestMaxRetries: 2,
		FragmentTimeout:    time.Second,
		FragmentMaxRetries: 1,
		RetryDelay:         time.Millisecond,
	}
}

func startClient(t *testing.T, srv *streamServer, policy player.LoaderPolicy, path string, opts ...func(*Client)) (*Client, *fakeElement, chan player.AdaptiveEvent) {
	t.Helper()
	c := New(policy, WithHTTPClient(srv.Client()))
	for _, opt := range opts {
		opt(c)
	}
	events := make(chan player.AdaptiveEvent, 16)
	c.OnEvent(func(ev player.AdaptiveEvent) { events <- ev })
	t.Cleanup(c.Destroy)

	element := newFakeElement()
	c.LoadSource(srv.URL + path)
	c.AttachMedia(element)
	return c, element, events
}

func nextEvent(t *testing.T, events chan player.AdaptiveEvent) player.AdaptiveEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no adaptive event received")
		return player.AdaptiveEvent{}
	}
}

func assertNoEvent(t *testing.T, events chan player.AdaptiveEvent) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected adaptive event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoadPicksHighestVariant(t *testing.T) {
	srv := newStreamServer(t)
	_, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, player.AdaptiveManifestParsed, ev.Type)
	assert.Equal(t, "1280x720", ev.Level)

	assert.Equal(t, []string{srv.URL + "/720/index.m3u8"}, element.sourceCalls())
	assert.Equal(t, 1, srv.hitCount("/720/seg0.ts"), "the first fragment is probed before attaching")
	assert.Zero(t, srv.hitCount("/360/index.m3u8"))
}

func TestLoadRespectsMaxBitrate(t *testing.T) {
	srv := newStreamServer(t)
	policy := testPolicy()
	policy.MaxBitrate = 1_000_000
	_, element, events := startClient(t, srv, policy, "/master.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, "640x360", ev.Level)
	assert.Equal(t, []string{srv.URL + "/360/index.m3u8"}, element.sourceCalls())
}

func TestLoadMediaPlaylistDirectly(t *testing.T) {
	srv := newStreamServer(t)
	_, element, events := startClient(t, srv, testPolicy(), "/720/index.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, player.AdaptiveManifestParsed, ev.Type)
	assert.Empty(t, ev.Level)
	assert.Equal(t, []string{srv.URL + "/720/index.m3u8"}, element.sourceCalls())
}

func TestManifestServerErrorIsRetried(t *testing.T) {
	srv := newStreamServer(t)
	srv.setStatus("/master.m3u8", http.StatusBadGateway)
	_, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, player.AdaptiveError, ev.Type)
	assert.True(t, ev.Fatal)
	assert.Equal(t, domain.PlaybackErrorNetwork, ev.Class)

	var statusErr *StatusError
	require.True(t, errors.As(ev.Err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)

	assert.Equal(t, 3, srv.hitCount("/master.m3u8"), "one attempt plus two retries")
	assert.Empty(t, element.sourceCalls())
}

func TestManifestNotFoundIsNotRetried(t *testing.T) {
	srv := newStreamServer(t)
	_, _, events := startClient(t, srv, testPolicy(), "/missing.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, domain.PlaybackErrorNetwork, ev.Class)
	assert.Equal(t, 1, srv.hitCount("/missing.m3u8"))
}

func TestUnparseableManifest(t *testing.T) {
	srv := newStreamServer(t)
	srv.setBody("/master.m3u8", "<html>not a playlist</html>")
	_, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	ev := nextEvent(t, events)
	assert.True(t, ev.Fatal)
	assert.Equal(t, domain.PlaybackErrorOther, ev.Class)
	assert.Empty(t, element.sourceCalls())
}

func TestEmptyMediaPlaylist(t *testing.T) {
	srv := newStreamServer(t)
	_, _, events := startClient(t, srv, testPolicy(), "/empty.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, domain.PlaybackErrorMedia, ev.Class)
	assert.ErrorIs(t, ev.Err, ErrNoSegments)
}

func TestFragmentFailure(t *testing.T) {
	srv := newStreamServer(t)
	srv.setStatus("/720/seg0.ts", http.StatusServiceUnavailable)
	_, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	ev := nextEvent(t, events)
	assert.Equal(t, domain.PlaybackErrorNetwork, ev.Class)
	assert.Equal(t, "fragment load failed", ev.Details)
	assert.Equal(t, 2, srv.hitCount("/720/seg0.ts"), "one attempt plus one retry")
	assert.Empty(t, element.sourceCalls())
}

func TestStartLoadAfterFailure(t *testing.T) {
	srv := newStreamServer(t)
	srv.setStatus("/master.m3u8", http.StatusNotFound)
	c, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	require.Equal(t, player.AdaptiveError, nextEvent(t, events).Type)

	srv.setStatus("/master.m3u8", 0)
	c.StartLoad()

	assert.Equal(t, player.AdaptiveManifestParsed, nextEvent(t, events).Type)
	assert.Equal(t, []string{srv.URL + "/720/index.m3u8"}, element.sourceCalls())
}

func TestDestroyStopsLoading(t *testing.T) {
	srv := newStreamServer(t)
	release := srv.blockPath("/master.m3u8")
	c, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")

	assert.Eventually(t, func() bool {
		return srv.hitCount("/master.m3u8") == 1
	}, time.Second, time.Millisecond)

	c.Destroy()
	close(release)

	assertNoEvent(t, events)
	assert.Empty(t, element.sourceCalls())

	// Nothing restarts a destroyed client
	c.StartLoad()
	assertNoEvent(t, events)
	assert.Equal(t, 1, srv.hitCount("/master.m3u8"))
}

func TestRecoverMediaError(t *testing.T) {
	srv := newStreamServer(t)
	c, element, events := startClient(t, srv, testPolicy(), "/master.m3u8")
	require.Equal(t, player.AdaptiveManifestParsed, nextEvent(t, events).Type)

	element.emit(player.MediaEvent{Type: player.MediaPlay})
	element.emit(player.MediaEvent{Type: player.MediaTimeUpdate, Time: 42})

	c.RecoverMediaError()
	assert.Eventually(t, func() bool {
		return len(element.sourceCalls()) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, srv.URL+"/720/index.m3u8", element.sourceCalls()[1])

	element.emit(player.MediaEvent{Type: player.MediaLoadedMetadata, Duration: 1400})
	assert.Eventually(t, func() bool {
		element.mu.Lock()
		defer element.mu.Unlock()
		return len(element.seeks) == 1 && element.plays == 1
	}, time.Second, time.Millisecond)

	element.mu.Lock()
	assert.Equal(t, []float64{42}, element.seeks)
	element.mu.Unlock()
	assertNoEvent(t, events)
}

func TestLiveRefresh(t *testing.T) {
	srv := newStreamServer(t)
	_, _, events := startClient(t, srv, testPolicy(), "/live.m3u8", func(c *Client) {
		c.refreshInterval = 10 * time.Millisecond
	})
	require.Equal(t, player.AdaptiveManifestParsed, nextEvent(t, events).Type)

	assert.Eventually(t, func() bool {
		return srv.hitCount("/live.m3u8") >= 3
	}, 2*time.Second, 5*time.Millisecond)

	srv.setStatus("/live.m3u8", http.StatusInternalServerError)

	ev := nextEvent(t, events)
	assert.Equal(t, player.AdaptiveError, ev.Type)
	assert.False(t, ev.Fatal, "the first failed refresh is left to retry")

	ev = nextEvent(t, events)
	assert.True(t, ev.Fatal)
	assert.Equal(t, domain.PlaybackErrorNetwork, ev.Class)
}

func TestPickVariant(t *testing.T) {
	vs := []Variant{
		{URL: "hi", Bandwidth: 5_000_000},
		{URL: "mid", Bandwidth: 2_000_000},
		{URL: "lo", Bandwidth: 500_000},
	}

	v, ok := pickVariant(vs, 0)
	require.True(t, ok)
	assert.Equal(t, "hi", v.URL)

	v, _ = pickVariant(vs, 2_500_000)
	assert.Equal(t, "mid", v.URL)

	v, _ = pickVariant(vs, 100)
	assert.Equal(t, "lo", v.URL, "falls back to the lowest variant")

	_, ok = pickVariant(nil, 0)
	assert.False(t, ok)
}

func TestVariantLabel(t *testing.T) {
	assert.Equal(t, "1920x1080", Variant{Resolution: "1920x1080", Bandwidth: 1}.Label())
	assert.Equal(t, "2400kbps", Variant{Bandwidth: 2_400_000}.Label())
	assert.Empty(t, Variant{}.Label())
}

func TestResolveRelativeVariants(t *testing.T) {
	master, _, err := decodePlaylist("https://cdn.example/show/master.m3u8", []byte(masterPlaylist+"#EXT-X-STREAM-INF:BANDWIDTH=100\nhttps://other.example/low.m3u8\n"))
	require.NoError(t, err)
	require.NotNil(t, master)

	vs, err := variants("https://cdn.example/show/master.m3u8", master)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, "https://cdn.example/show/720/index.m3u8", vs[0].URL)
	assert.Equal(t, "https://cdn.example/show/360/index.m3u8", vs[1].URL)
	assert.True(t, strings.HasPrefix(vs[2].URL, "https://other.example/"))
}
