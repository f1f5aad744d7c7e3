package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/library"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/service"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// catalogTab is one of the lists the catalog view switches between
type catalogTab int

const (
	tabTrending catalogTab = iota
	tabSeasonal
	tabSearch
	tabFavorites
	tabHistory
)

var catalogTabs = []catalogTab{tabTrending, tabSeasonal, tabSearch, tabFavorites, tabHistory}

func (t catalogTab) String() string {
	switch t {
	case tabTrending:
		return "Trending"
	case tabSeasonal:
		return "This Season"
	case tabSearch:
		return "Search"
	case tabFavorites:
		return "Favorites"
	case tabHistory:
		return "History"
	default:
		return "Unknown"
	}
}

// feed returns the catalog feed behind a tab, if it has one
func (t catalogTab) feed() (service.Feed, bool) {
	switch t {
	case tabTrending:
		return service.FeedTrending, true
	case tabSeasonal:
		return service.FeedSeasonal, true
	default:
		return 0, false
	}
}

// CatalogModel handles browsing the catalog feeds, search results and the user's library
type CatalogModel struct {
	catalog       *service.CatalogService
	library       *library.Library
	width, height int

	tab      catalogTab
	cursors  map[catalogTab]int
	filtered []*domain.Anime // Anime of the current tab after applying the filter

	filterMode   bool
	filterInput  textinput.Model
	searchMode   bool
	searchInput  textinput.Model
	searchNotice string
	status       string // One line of feedback about the last action
}

// NewCatalogModel creates a new catalog model
func NewCatalogModel(catalog *service.CatalogService, lib *library.Library) *CatalogModel {
	filterInput := textinput.New()
	filterInput.Placeholder = "Filter titles..."
	filterInput.Prompt = "Filter: "
	filterInput.CharLimit = 64
	filterInput.Width = 40

	searchInput := textinput.New()
	searchInput.Placeholder = "Title to search for..."
	searchInput.Prompt = "Search: "
	searchInput.CharLimit = domain.MaxQueryLength
	searchInput.Width = 40

	return &CatalogModel{
		catalog:     catalog,
		library:     lib,
		cursors:     map[catalogTab]int{},
		filterInput: filterInput,
		searchInput: searchInput,
	}
}

func (m *CatalogModel) ViewType() View {
	return ViewCatalog
}

// Init loads the catalog
func (m *CatalogModel) Init() tea.Cmd {
	return withLoading("Loading catalog...", m.loadCatalogCmd())
}

// Resize updates the model with new dimensions
func (m *CatalogModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// CapturingInput reports whether a text input has focus
func (m *CatalogModel) CapturingInput() bool {
	return m.searchMode || m.filterMode
}

// HandleBack clears an applied filter before anything else
func (m *CatalogModel) HandleBack() (bool, tea.Cmd) {
	if m.filterInput.Value() == "" {
		return false, nil
	}
	m.filterInput.SetValue("")
	m.applyFilter()
	return true, Handled("filter:clear")
}

// Update handles messages and updates the model
func (m *CatalogModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searchMode {
			return m, m.handleSearchModeKeyMsg(msg)
		}
		if m.filterMode {
			return m, m.handleFilterModeKeyMsg(msg)
		}
		return m, m.handleKeyPress(msg)

	case CatalogLoadedMsg:
		log.Debug("Catalog loaded", "from_fallback", m.catalog.FromFallback())
		m.applyFilter()

	case CatalogPageMsg:
		log.Debug("Catalog page loaded", "feed", msg.Feed, "page", m.catalog.Page(msg.Feed))
		m.applyFilter()

	case SearchResultMsg:
		log.Debug("Search finished", "query", msg.Result.Query, "results", len(msg.Result.Anime))
		m.searchNotice = msg.Result.Notice
		m.tab = tabSearch
		m.cursors[tabSearch] = 0
		m.applyFilter()

	case FavoriteToggledMsg:
		m.status = favoriteStatus(msg)
		m.applyFilter()

	case viewActivatedMsg:
		// History and favorites may have changed in the closed view
		m.applyFilter()
	}

	return m, nil
}

func (m *CatalogModel) handleSearchModeKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextSearchMode) {
	case kb.ActionBack:
		m.searchMode = false
		m.searchInput.Blur()
		return Handled("search:exit")
	case kb.ActionSearchComplete:
		m.searchMode = false
		m.searchInput.Blur()
		query := m.searchInput.Value()
		return withLoading(fmt.Sprintf("Searching for %q...", strings.TrimSpace(query)), m.searchCmd(query))
	}

	// Let the text input model handle other keys
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return cmd
}

func (m *CatalogModel) handleFilterModeKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextSearchMode) {
	case kb.ActionBack:
		// Cancels filtering, clearing the filter
		m.filterMode = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.applyFilter()
		return Handled("filter:exit")
	case kb.ActionSearchComplete:
		m.filterMode = false
		m.filterInput.Blur()
		return Handled("filter:apply")
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)

	// Apply the filter as we type
	m.applyFilter()
	return cmd
}

// handleKeyPress processes keyboard inputs in normal mode
func (m *CatalogModel) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextCatalog) {
	case kb.ActionMoveUp:
		m.moveCursor(-1)
		return Handled("cursor_move:up")
	case kb.ActionMoveDown:
		m.moveCursor(1)
		return Handled("cursor_move:down")
	case kb.ActionPageUp:
		m.moveCursor(-m.visibleRows())
		return Handled("cursor_move:page_up")
	case kb.ActionPageDown:
		m.moveCursor(m.visibleRows())
		return Handled("cursor_move:page_down")
	case kb.ActionMoveTop:
		m.cursors[m.tab] = 0
		return Handled("cursor_move:top")
	case kb.ActionMoveBottom:
		m.cursors[m.tab] = max(len(m.filtered)-1, 0)
		return Handled("cursor_move:bottom")

	case kb.ActionNextTab:
		m.switchTab(1)
		return Handled("tab:next")
	case kb.ActionPrevTab:
		m.switchTab(-1)
		return Handled("tab:prev")

	case kb.ActionOpenAnime:
		anime := m.selected()
		if anime == nil {
			return Handled("open_anime:none_selected")
		}
		return func() tea.Msg { return OpenAnimeMsg{Anime: anime} }
	case kb.ActionViewAnimeDetails:
		anime := m.selected()
		if anime == nil {
			return Handled("view_anime_details:none_selected")
		}
		return func() tea.Msg { return AnimeDetailsMsg{Anime: anime} }
	case kb.ActionToggleFavorite:
		return toggleFavoriteCmd(m.library, m.selected())

	case kb.ActionLoadMore:
		feed, ok := m.tab.feed()
		if !ok {
			return Handled("load_more:not_a_feed")
		}
		return withLoading("Loading more titles...", m.loadMoreCmd(feed))
	case kb.ActionRefreshCatalog:
		return withLoading("Loading catalog...", m.loadCatalogCmd())

	case kb.ActionEnableSearch:
		m.searchMode = true
		m.searchInput.SetValue(m.catalog.LastSearch().Query)
		m.searchInput.CursorEnd()
		return m.searchInput.Focus()
	case kb.ActionEnableFilter:
		m.filterMode = true
		return m.filterInput.Focus()

	case kb.ActionDismissNotice:
		m.catalog.DismissNotice()
		m.searchNotice = ""
		m.status = ""
		return Handled("notice:dismiss")
	case kb.ActionClearHistory:
		if m.tab != tabHistory {
			return Handled("clear_history:not_history_tab")
		}
		if err := m.library.ClearHistory(); err != nil {
			log.Error("Failed to clear history", "error", err)
			m.status = "Could not clear your history."
		} else {
			m.status = "History cleared."
		}
		m.applyFilter()
		return Handled("clear_history")
	}

	return nil
}

func (m *CatalogModel) loadCatalogCmd() tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		catalog.Load(ctx)
		return CatalogLoadedMsg{}
	}
}

func (m *CatalogModel) loadMoreCmd(feed service.Feed) tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		catalog.LoadMore(ctx, feed)
		return CatalogPageMsg{Feed: feed}
	}
}

func (m *CatalogModel) searchCmd(query string) tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return SearchResultMsg{Result: catalog.Search(ctx, query)}
	}
}

func (m *CatalogModel) switchTab(delta int) {
	idx := lo.IndexOf(catalogTabs, m.tab)
	idx = (idx + delta + len(catalogTabs)) % len(catalogTabs)
	m.tab = catalogTabs[idx]
	m.applyFilter()
}

// source returns the unfiltered list of the current tab
func (m *CatalogModel) source() []*domain.Anime {
	switch m.tab {
	case tabTrending:
		return m.catalog.Feed(service.FeedTrending)
	case tabSeasonal:
		return m.catalog.Feed(service.FeedSeasonal)
	case tabSearch:
		return m.catalog.LastSearch().Anime
	case tabFavorites:
		return m.library.Favorites()
	case tabHistory:
		return m.library.History()
	default:
		return nil
	}
}

// applyFilter fuzzy matches the filter text against the titles of the current tab
func (m *CatalogModel) applyFilter() {
	all := m.source()
	query := strings.TrimSpace(m.filterInput.Value())

	if query == "" {
		m.filtered = all
	} else {
		m.filtered = lo.Filter(all, func(a *domain.Anime, _ int) bool {
			return fuzzy.MatchNormalizedFold(query, a.Title) || fuzzy.MatchNormalizedFold(query, a.TitleJapanese)
		})
	}

	// Reset cursor if it's out of bounds
	if m.cursors[m.tab] >= len(m.filtered) {
		m.cursors[m.tab] = max(len(m.filtered)-1, 0)
	}
}

func (m *CatalogModel) moveCursor(delta int) {
	if len(m.filtered) == 0 {
		m.cursors[m.tab] = 0
		return
	}
	m.cursors[m.tab] = min(max(m.cursors[m.tab]+delta, 0), len(m.filtered)-1)
}

func (m *CatalogModel) selected() *domain.Anime {
	cursor := m.cursors[m.tab]
	if cursor < 0 || cursor >= len(m.filtered) {
		return nil
	}
	return m.filtered[cursor]
}

// notice returns the banner text for the current tab
func (m *CatalogModel) notice() string {
	if m.tab == tabSearch && m.searchNotice != "" {
		return m.searchNotice
	}
	return m.catalog.Notice()
}
