package models

import (
	"fmt"
	"strings"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/util"
	"github.com/charmbracelet/lipgloss"
)

// View renders the catalog model
func (m *CatalogModel) View() string {
	sections := []string{
		styles.Header(m.width, "anistream"),
		"",
		m.renderTabs(),
	}

	if notice := m.notice(); notice != "" {
		sections = append(sections, components.Banner(m.width, styles.Notice, notice))
	}
	if input := m.renderInput(); input != "" {
		sections = append(sections, styles.FilterStatus.Render(input))
	}

	sections = append(sections, styles.ContentBox(m.width-2, m.renderAnimeList(), 0))

	if m.status != "" {
		sections = append(sections, styles.Muted.Render(" "+m.status))
	}

	sections = append(sections, "", components.KeyBindingsBar(m.width, m.footerBindings()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *CatalogModel) renderTabs() string {
	tabs := make([]string, 0, len(catalogTabs))
	for _, tab := range catalogTabs {
		title := tab.String()
		if feed, ok := tab.feed(); ok && m.catalog.Page(feed) == 0 && len(m.catalog.Feed(feed)) > 0 {
			title += " (sample)"
		}
		if tab == m.tab {
			tabs = append(tabs, styles.ActiveTab.Render(title))
		} else {
			tabs = append(tabs, styles.InactiveTab.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *CatalogModel) renderInput() string {
	switch {
	case m.searchMode:
		return m.searchInput.View()
	case m.filterMode:
		return m.filterInput.View()
	case m.filterInput.Value() != "":
		return fmt.Sprintf("Filter: %s  (%d of %d)", m.filterInput.Value(), len(m.filtered), len(m.source()))
	case m.tab == tabSearch && m.catalog.LastSearch().Query != "":
		return fmt.Sprintf("Results for %q", m.catalog.LastSearch().Query)
	}
	return ""
}

// visibleRows is how many list rows fit on screen
func (m *CatalogModel) visibleRows() int {
	// Subtract space for header, tabs, banners, column header and footer
	return max(m.height-14, 1)
}

// renderAnimeList renders the anime list for the current tab
func (m *CatalogModel) renderAnimeList() string {
	animeList := m.filtered

	if len(animeList) == 0 {
		return styles.CenteredText(m.width-4, m.emptyListText())
	}

	visibleCount := min(len(animeList), m.visibleRows())
	cursor := m.cursors[m.tab]

	// Adjust starting index to keep cursor in view
	startIdx := 0
	if cursor >= visibleCount {
		startIdx = cursor - visibleCount + 1
	}
	endIdx := min(startIdx+visibleCount, len(animeList))

	// Styles for list items
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Width(m.width-4).
		Padding(0, 1)

	selectedStyle := styles.Selected.
		Width(m.width-4).
		Padding(0, 1)

	normalStyle := lipgloss.NewStyle().
		Width(m.width-4).
		Padding(0, 1)

	titleWidth := m.titleColumnWidth()

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-2s%s %-7s %5s %5s %4s",
		"", util.PadRight("Title", titleWidth), "Type", "Eps", "Score", "Year")))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width-6, 0)))
	b.WriteString("\n")

	for i := startIdx; i < endIdx; i++ {
		itemText := m.formatAnimeListItem(animeList[i], titleWidth)
		if i == cursor {
			b.WriteString(selectedStyle.Render(itemText))
		} else {
			b.WriteString(normalStyle.Render(itemText))
		}
		b.WriteString("\n")
	}

	if m.tab == tabTrending || m.tab == tabSeasonal {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("%d titles.  Press n to load more.", len(animeList))))
	}

	return b.String()
}

// titleColumnWidth gives the title whatever the fixed columns leave over
func (m *CatalogModel) titleColumnWidth() int {
	const fixedColumns = 2 + 1 + 7 + 1 + 5 + 1 + 5 + 1 + 4
	return max(m.width-8-fixedColumns, 10)
}

func (m *CatalogModel) formatAnimeListItem(anime *domain.Anime, titleWidth int) string {
	mark := " "
	if m.library.IsFavorite(anime.ID) {
		mark = "★"
	}

	episodes := "?"
	if anime.Episodes > 0 {
		episodes = fmt.Sprintf("%d", anime.Episodes)
	}
	score := "-"
	if anime.Score > 0 {
		score = fmt.Sprintf("%.2f", anime.Score)
	}
	year := ""
	if anime.Year > 0 {
		year = fmt.Sprintf("%d", anime.Year)
	}

	return fmt.Sprintf("%s %s %-7s %5s %5s %4s",
		mark,
		util.PadRight(anime.Title, titleWidth),
		util.TruncateString(anime.Type, 7),
		episodes,
		score,
		year)
}

func (m *CatalogModel) emptyListText() string {
	if m.filterInput.Value() != "" {
		return "No titles match the filter"
	}
	switch m.tab {
	case tabSearch:
		return "Press ctrl+f to search the catalog"
	case tabFavorites:
		return "No favorites yet.  Press s on a title to add it."
	case tabHistory:
		return "Nothing watched yet"
	default:
		return "No titles found"
	}
}

func (m *CatalogModel) footerBindings() []components.KeyBinding {
	if m.searchMode || m.filterMode {
		return []components.KeyBinding{
			{Key: "Enter", Desc: "Apply"},
			{Key: "Esc", Desc: "Cancel"},
		}
	}
	bindings := []components.KeyBinding{
		{Key: "Enter", Desc: "Episodes"},
		{Key: "i", Desc: "Details"},
		{Key: "Tab", Desc: "Next tab"},
		{Key: "s", Desc: "Favorite"},
		{Key: "Ctrl+f", Desc: "Search"},
		{Key: "/", Desc: "Filter"},
	}
	if m.notice() != "" {
		bindings = append(bindings, components.KeyBinding{Key: kb.ActionKey(kb.ActionDismissNotice, kb.ContextCatalog), Desc: "Dismiss"})
	}
	return append(bindings, components.KeyBinding{Key: "Ctrl+h", Desc: "Help"})
}
