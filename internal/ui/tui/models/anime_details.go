package models

import (
	"strconv"
	"strings"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

var (
	detailsSectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	detailsFieldStyle   = lipgloss.NewStyle().Bold(true)
)

// detailField is one "name: value" line.  Fields with an empty value are not shown.
type detailField struct {
	name, value string
}

// AnimeDetailsModel shows everything the catalog knows about one show, plus the user's own library state for it
type AnimeDetailsModel struct {
	width, height int
	anime         *domain.Anime
	library       *library.Library
	viewport      viewport.Model
}

func NewAnimeDetailsModel(anime *domain.Anime, lib *library.Library) *AnimeDetailsModel {
	return &AnimeDetailsModel{
		anime:    anime,
		library:  lib,
		viewport: viewport.New(80, 20),
	}
}

func (m *AnimeDetailsModel) ViewType() View {
	return ViewAnimeDetails
}

func (m *AnimeDetailsModel) Init() tea.Cmd {
	m.viewport.SetContent(m.content())
	return nil
}

func (m *AnimeDetailsModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)

	case FavoriteToggledMsg, viewActivatedMsg:
		// Library state may have changed underneath us
		m.viewport.SetContent(m.content())

	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextDetails) {
		case kb.ActionMoveUp, kb.ActionMoveDown, kb.ActionPageUp, kb.ActionPageDown:
			m.viewport, cmd = m.viewport.Update(msg)
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		case kb.ActionOpenAnime:
			anime := m.anime
			cmd = func() tea.Msg { return OpenAnimeMsg{Anime: anime} }
		case kb.ActionToggleFavorite:
			cmd = toggleFavoriteCmd(m.library, m.anime)
		}
	}
	return m, cmd
}

func (m *AnimeDetailsModel) View() string {
	favorite := lo.Ternary(m.library.IsFavorite(m.anime.ID), "Unfavorite", "Favorite")
	footer := components.KeyBindingsBar(m.width, []components.KeyBinding{
		{Key: "Enter", Desc: "Episodes"},
		{Key: "s", Desc: favorite},
		{Key: "↑/↓", Desc: "Scroll"},
		{Key: "Esc", Desc: "Return"},
		{Key: "Ctrl+h", Desc: "Help"},
	})

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Header(m.width, "Details: "+m.anime.Title),
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

func (m *AnimeDetailsModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-10, 1)
	m.viewport.SetContent(m.content())
}

// catalogFields are the show's catalog facts in display order
func catalogFields(a *domain.Anime) []detailField {
	orElse := func(value, fallback string) string {
		return lo.Ternary(value == "", fallback, value)
	}
	positive := func(n int) string {
		return lo.Ternary(n > 0, strconv.Itoa(n), "")
	}
	score := ""
	if a.Score > 0 {
		score = strconv.FormatFloat(a.Score, 'f', 2, 64)
	}

	return []detailField{
		{"Title", a.Title},
		{"Title (Japanese)", a.TitleJapanese},
		{"Type", orElse(a.Type, "Unknown")},
		{"Status", orElse(a.Status, "Unknown")},
		{"Episodes", orElse(positive(a.Episodes), "Unknown")},
		{"Year", orElse(positive(a.Year), "Unknown")},
		{"Score", orElse(score, "Not rated")},
		{"Genres", a.GenreList()},
		{"Rating", a.Rating},
		{"Trailer", lo.Ternary(a.TrailerURL == "", "", styles.Url.Render(a.TrailerURL))},
	}
}

// libraryFields describe the user's own state for the show
func (m *AnimeDetailsModel) libraryFields() []detailField {
	watched := m.library.Watched(m.anime.ID)
	next := ""
	for n := 1; n <= m.anime.EpisodeCount(); n++ {
		if !lo.Contains(watched, n) {
			next = "Episode " + strconv.Itoa(n)
			break
		}
	}

	return []detailField{
		{"Favorite", lo.Ternary(m.library.IsFavorite(m.anime.ID), "Yes", "No")},
		{"Watched", strconv.Itoa(len(watched)) + "/" + strconv.Itoa(m.anime.EpisodeCount()) + " episodes"},
		{"Up next", lo.Ternary(next == "", "All caught up", next)},
	}
}

func writeFields(b *strings.Builder, title string, fields []detailField) {
	b.WriteString(detailsSectionStyle.Render(title) + "\n\n")
	for _, f := range fields {
		if f.value != "" {
			b.WriteString(detailsFieldStyle.Render(f.name+": ") + f.value + "\n")
		}
	}
	b.WriteString("\n")
}

func (m *AnimeDetailsModel) content() string {
	if m.anime == nil {
		return "Error: No anime data available"
	}

	var b strings.Builder
	writeFields(&b, "Anime Information", catalogFields(m.anime))
	writeFields(&b, "Your Information", m.libraryFields())

	if m.anime.Synopsis != "" {
		b.WriteString(detailsSectionStyle.Render("Synopsis") + "\n\n")
		b.WriteString(lipgloss.NewStyle().Width(max(m.width-6, 60)).Render(m.anime.Synopsis) + "\n")
	}
	return b.String()
}
