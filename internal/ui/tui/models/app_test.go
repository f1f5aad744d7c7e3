package models

import (
	"testing"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/service"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (AppModel, *fakeController) {
	t.Helper()
	ctrl := newFakeController(frieren, episode(1), episode(2))
	app := NewAppModel(service.NewCatalogService(liveRepo(), service.SampleCatalog()), newTestLibrary(t), ctrl)

	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(AppModel), ctrl
}

func update(t *testing.T, app AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	updated, ok := model.(AppModel)
	require.True(t, ok)
	return updated, cmd
}

func TestAppOpenAnime(t *testing.T) {
	app, _ := newTestApp(t)

	app, cmd := update(t, app, OpenAnimeMsg{Anime: frieren})
	require.NotNil(t, cmd)
	assert.Equal(t, ViewPlayer, app.active().ViewType())
	assert.Equal(t, []int{frieren.ID}, animeIDs(app.library.History()))

	// Opening again replaces the player rather than stacking a second one
	app, _ = update(t, app, AnimeDetailsMsg{Anime: frieren})
	app, _ = update(t, app, OpenAnimeMsg{Anime: frieren})
	require.Len(t, app.views, 3)
	assert.Equal(t, []View{ViewCatalog, ViewAnimeDetails, ViewPlayer}, viewTypes(app))
}

func TestAppBack(t *testing.T) {
	app, ctrl := newTestApp(t)
	app, _ = update(t, app, OpenAnimeMsg{Anime: frieren})
	ctrl.transport.SetFocused(true)

	// The first back only takes focus away from the player
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewPlayer, app.active().ViewType())
	assert.False(t, ctrl.transport.Focused())

	app, cmd := update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewCatalog, app.active().ViewType())
	require.NotNil(t, cmd)

	// The catalog is never closed
	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []View{ViewCatalog}, viewTypes(app))
}

func TestAppLoadingOverlay(t *testing.T) {
	app, _ := newTestApp(t)

	app, cmd := update(t, app, LoadingMsg{Type: LoadingStart, Message: "Loading catalog..."})
	require.NotNil(t, cmd)
	require.NotNil(t, app.loading)
	assert.Contains(t, app.View(), "Loading catalog...")

	// Keys other than quit are swallowed
	app, cmd = update(t, app, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)

	app, _ = update(t, app, loadingDoneMsg{result: CatalogLoadedMsg{}})
	assert.Nil(t, app.loading)
}

func TestAppHelp(t *testing.T) {
	app, _ := newTestApp(t)

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyCtrlH})
	require.NotNil(t, app.help)

	app, _ = update(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, app.help)
	assert.Equal(t, ViewCatalog, app.active().ViewType())
}

func TestAppBroadcastsSnapshots(t *testing.T) {
	app, ctrl := newTestApp(t)
	app, _ = update(t, app, OpenAnimeMsg{Anime: frieren})
	ctrl.sessions["s1"] = 1

	// The menu sits above the player, which must still see playback finish
	app, _ = update(t, app, MenuMsg{Menu: playbackRateMenu(1)})
	app, _ = update(t, app, SnapshotMsg{Snapshot: player.Snapshot{Seq: 1, SessionID: "s1", State: player.StateEnded}})

	assert.True(t, app.library.IsWatched(frieren.ID, 1))
}

func TestAppQuit(t *testing.T) {
	app, _ := newTestApp(t)
	app, _ = update(t, app, LoadingMsg{Type: LoadingStart, Message: "Loading catalog..."})

	_, cmd := update(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func viewTypes(app AppModel) []View {
	out := make([]View, 0, len(app.views))
	for _, v := range app.views {
		out = append(out, v.ViewType())
	}
	return out
}

func animeIDs(list []*domain.Anime) []int {
	out := make([]int, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
