package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/anistream/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/styles"
	"github.com/PizzaHomicide/anistream/internal/ui/tui/util"
	"github.com/charmbracelet/lipgloss"
)

// gridCellWidth is the width of one episode cell, mark and number included
const gridCellWidth = 7

// progressBarWidth caps the width of the playback progress bar
const progressBarWidth = 60

const playerGoneText = "The media player was closed.  Restart anistream to keep watching."

// View renders the player view
func (m *PlayerModel) View() string {
	sections := []string{
		styles.Header(m.width, m.anime.Title),
		"",
	}

	if m.status.NotFound {
		sections = append(sections, components.Banner(m.width, styles.Notice,
			"No provider has this title.  Episodes are listed for reference only."))
	}
	if m.snapshot.ElementGone {
		sections = append(sections, components.Banner(m.width, styles.Error, playerGoneText))
	} else if text := m.errorText(); text != "" {
		sections = append(sections, components.Banner(m.width, styles.Error,
			text+"  Press "+kb.ActionKey(kb.ActionRetry, kb.ContextEpisodes)+" to retry."))
	}

	grid := m.renderGrid()
	if m.transport.Focused() {
		sections = append(sections, styles.ContentBox(m.width-2, grid, 0))
		sections = append(sections, styles.FocusedBox(m.width-2, m.renderPlayerPane(), 0))
	} else {
		sections = append(sections, styles.FocusedBox(m.width-2, grid, 0))
		sections = append(sections, styles.ContentBox(m.width-2, m.renderPlayerPane(), 0))
	}

	if m.message != "" {
		sections = append(sections, styles.Muted.Render(" "+m.message))
	}

	sections = append(sections, "", components.KeyBindingsBar(m.width, m.footerBindings()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// gridColumns is how many episode cells fit on one row
func (m *PlayerModel) gridColumns() int {
	return max((m.width-8)/gridCellWidth, 1)
}

// gridRows is how many rows of episodes fit on screen
func (m *PlayerModel) gridRows() int {
	// Subtract space for header, banners, the player pane and footer
	return max(m.height-18, 2)
}

func (m *PlayerModel) renderGrid() string {
	episodes := m.status.Episodes
	if len(episodes) == 0 {
		if m.status.Loading {
			return styles.CenteredText(m.width-4, "Finding episodes...")
		}
		return styles.CenteredText(m.width-4, "No episodes")
	}

	columns := m.gridColumns()
	rows := m.gridRows()
	totalRows := (len(episodes) + columns - 1) / columns

	// Scroll so the cursor row stays visible
	cursorRow := m.cursor / columns
	startRow := 0
	if cursorRow >= rows {
		startRow = cursorRow - rows + 1
	}
	endRow := min(startRow+rows, totalRows)

	var b strings.Builder
	provider := string(m.status.Provider)
	if provider == "" {
		provider = "none"
	}
	b.WriteString(styles.Muted.Render(fmt.Sprintf("%d episodes from %s", len(episodes), provider)))
	b.WriteString("\n")

	for row := startRow; row < endRow; row++ {
		cells := make([]string, 0, columns)
		for i := row * columns; i < min((row+1)*columns, len(episodes)); i++ {
			cells = append(cells, m.renderCell(i, episodes[i]))
		}
		b.WriteString(strings.Join(cells, ""))
		if row < endRow-1 {
			b.WriteString("\n")
		}
	}

	if endRow < totalRows {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render(fmt.Sprintf("%d more rows", totalRows-endRow)))
	}

	ep := episodes[m.cursor]
	b.WriteString("\n\n")
	b.WriteString(util.TruncateString(fmt.Sprintf("%d. %s", ep.Number, ep.DisplayTitle()), max(m.width-8, 10)))

	return b.String()
}

func (m *PlayerModel) renderCell(idx int, ep domain.Episode) string {
	mark := " "
	style := lipgloss.NewStyle()
	switch {
	case ep.Number == m.status.Current && m.hasSession():
		mark = "▶"
		style = styles.Playing
	case ep.Placeholder:
		mark = "✗"
		style = styles.Placeholder
	case m.library.IsWatched(m.anime.ID, ep.Number):
		mark = "✓"
		style = styles.Watched
	case ep.IsFiller:
		mark = "F"
	}

	text := util.PadRight(fmt.Sprintf("%s%4d", mark, ep.Number), gridCellWidth-1)
	if idx == m.cursor && !m.transport.Focused() {
		return styles.Selected.Render(text) + " "
	}
	return style.Render(text) + " "
}

func (m *PlayerModel) renderPlayerPane() string {
	snap := m.snapshot
	if !m.hasSession() {
		return styles.Muted.Render("Nothing playing.  Select an episode and press enter.")
	}

	nowPlaying := fmt.Sprintf("Episode %d", m.status.Current)
	if ep, ok := domain.FindEpisode(m.status.Episodes, m.status.Current); ok {
		nowPlaying = fmt.Sprintf("%d. %s", ep.Number, ep.DisplayTitle())
	}

	lines := []string{
		styles.Playing.Render(util.TruncateString(nowPlaying, max(m.width-8, 10))),
		progressBar(min(m.width-8, progressBarWidth), snap),
		m.statusLine(),
	}
	if name, _, ok := snap.SkippableSegment(); ok && m.transport.Focused() {
		lines = append(lines, styles.Info.Render("Press "+kb.ActionKey(kb.ActionSkipSegment, kb.ContextTransport)+" to skip the "+name+"."))
	}
	return strings.Join(lines, "\n")
}

// statusLine summarises the playback session on one line
func (m *PlayerModel) statusLine() string {
	snap := m.snapshot

	volume := "muted"
	if !snap.Muted {
		volume = util.FormatPercent(snap.Volume)
	}
	quality := snap.Quality
	if quality == "" {
		quality = "auto"
	}

	parts := []string{
		stateLabel(snap.State),
		fmt.Sprintf("%s / %s", util.FormatClock(snap.CurrentTime), util.FormatClock(snap.Duration)),
		"buffered " + util.FormatClock(snap.BufferedEnd),
		"vol " + volume,
		formatRate(snap.PlaybackRate),
		quality,
		string(m.status.Provider),
	}
	if snap.Fullscreen {
		parts = append(parts, "fullscreen")
	}
	return strings.Join(parts, "  │  ")
}

// progressBar draws played and buffered portions of the episode
func progressBar(width int, snap player.Snapshot) string {
	if width < 2 {
		return ""
	}
	played := int(snap.Progress() * float64(width))
	buffered := played
	if snap.Duration > 0 && snap.BufferedEnd > 0 {
		buffered = max(min(int(snap.BufferedEnd/snap.Duration*float64(width)), width), played)
	}

	return styles.Playing.Render(strings.Repeat("━", played)) +
		styles.Info.Render(strings.Repeat("─", buffered-played)) +
		styles.Muted.Render(strings.Repeat("┄", width-buffered))
}

func stateLabel(state player.State) string {
	switch state {
	case player.StatePlaying:
		return "▶ Playing"
	case player.StatePaused:
		return "⏸ Paused"
	case player.StateLoading:
		return "Loading"
	case player.StateReady:
		return "Ready"
	case player.StateEnded:
		return "Ended"
	case player.StateFatal:
		return "Failed"
	default:
		return "Stopped"
	}
}

func formatRate(rate float64) string {
	if rate <= 0 {
		rate = 1
	}
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

// errorText explains the current failure to the user, or returns "" when nothing failed
func (m *PlayerModel) errorText() string {
	err := m.status.Err
	if err == nil && m.snapshot.State == player.StateFatal {
		err = m.snapshot.Err
	}
	// Not found is shown by its own banner
	if err == nil || errors.Is(err, domain.ErrStaleRequest) || errors.Is(err, domain.ErrNotFound) {
		return ""
	}

	var playbackErr *domain.PlaybackError
	switch {
	case errors.As(err, &playbackErr):
		return fmt.Sprintf("Playback failed: %s.", playbackErr.Reason)
	case errors.Is(err, domain.ErrPlaybackFatal):
		return "Playback failed."
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "The provider has no playable source for this episode."
	case errors.Is(err, domain.ErrNotPlayable):
		return "This episode is not available from any provider."
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "The provider could not be reached."
	default:
		return "Something went wrong loading the episode."
	}
}

func (m *PlayerModel) footerBindings() []components.KeyBinding {
	if m.transport.Focused() {
		return []components.KeyBinding{
			{Key: "Space", Desc: "Play/pause"},
			{Key: "←/→", Desc: "Seek"},
			{Key: "+/-", Desc: "Volume"},
			{Key: "m", Desc: "Mute"},
			{Key: "[/]", Desc: "Speed"},
			{Key: "f", Desc: "Fullscreen"},
			{Key: "Tab", Desc: "Episodes"},
			{Key: "Ctrl+h", Desc: "Help"},
		}
	}
	return []components.KeyBinding{
		{Key: "←↑↓→", Desc: "Move"},
		{Key: "Enter", Desc: "Play"},
		{Key: "Tab", Desc: "Player"},
		{Key: "s", Desc: "Favorite"},
		{Key: "Ctrl+h", Desc: "Help"},
		{Key: "Esc", Desc: "Back"},
	}
}
