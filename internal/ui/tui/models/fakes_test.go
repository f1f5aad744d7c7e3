package models

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/store"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) TopAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]*domain.Anime), args.Error(1)
}

func (m *mockCatalog) SeasonalAnime(ctx context.Context, page int) ([]*domain.Anime, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]*domain.Anime), args.Error(1)
}

func (m *mockCatalog) SearchAnime(ctx context.Context, query string) ([]*domain.Anime, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]*domain.Anime), args.Error(1)
}

// fakeControls records transport commands against a settable snapshot
type fakeControls struct {
	mu    sync.Mutex
	snap  player.Snapshot
	calls []string
}

func (f *fakeControls) Snapshot() player.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeControls) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeControls) Play() error {
	return f.record("play")
}

func (f *fakeControls) Pause() error {
	return f.record("pause")
}

func (f *fakeControls) Seek(float64) error {
	return f.record("seek")
}

func (f *fakeControls) SetVolume(float64) error {
	return f.record("volume")
}

func (f *fakeControls) SetMuted(bool) error {
	return f.record("muted")
}

func (f *fakeControls) SetPlaybackRate(float64) error {
	return f.record("rate")
}

func (f *fakeControls) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeController stands in for the episode player
type fakeController struct {
	transport *player.Transport
	controls  *fakeControls

	status    player.Status
	openErr   error
	selectErr error
	sessions  map[string]int
	selected  []int
	backs     int
}

func newFakeController(anime *domain.Anime, episodes ...domain.Episode) *fakeController {
	controls := &fakeControls{snap: player.Snapshot{Volume: 1, PlaybackRate: 1}}
	return &fakeController{
		transport: player.NewTransport(controls, nil),
		controls:  controls,
		status: player.Status{
			Anime:    anime,
			Provider: domain.ProviderPrimary,
			Episodes: episodes,
		},
		sessions: map[string]int{},
	}
}

func (f *fakeController) Open(ctx context.Context, anime *domain.Anime) error {
	return f.openErr
}

func (f *fakeController) SelectEpisode(ctx context.Context, number int) error {
	f.selected = append(f.selected, number)
	if f.selectErr == nil {
		f.status.Current = number
	}
	return f.selectErr
}

func (f *fakeController) Retry(ctx context.Context) error {
	return f.SelectEpisode(ctx, f.status.Current)
}

func (f *fakeController) Back() {
	f.backs++
	f.status.Current = 0
}

func (f *fakeController) Status() player.Status {
	return f.status
}

func (f *fakeController) EpisodeForSession(sessionID string) (int, bool) {
	n, ok := f.sessions[sessionID]
	return n, ok
}

func (f *fakeController) Transport() *player.Transport {
	return f.transport
}

func newTestLibrary(t *testing.T) *library.Library {
	t.Helper()
	s, err := store.Open(afero.NewMemMapFs(), "/library.dat", store.PlainCodec{})
	require.NoError(t, err)
	return library.Load(s)
}

func episode(number int) domain.Episode {
	return domain.Episode{ID: fmt.Sprintf("ep-%d", number), Number: number, Provider: domain.ProviderPrimary}
}

func placeholder(number int) domain.Episode {
	return domain.Episode{Number: number, Placeholder: true}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// run executes cmd and unwraps a loading request into the result of its operation
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	if loading, ok := msg.(LoadingMsg); ok {
		require.NotNil(t, loading.Operation)
		return loading.Operation()
	}
	return msg
}
