package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityPreferenceSelect(t *testing.T) {
	pref := DefaultQualityPreference()

	t.Run("DefaultBeatsAuto", func(t *testing.T) {
		src, ok := pref.Select([]StreamSource{
			{Quality: "auto", URL: "A"},
			{Quality: "default", URL: "B"},
		})
		assert.True(t, ok)
		assert.Equal(t, "B", src.URL)
	})

	t.Run("BackupBeatsAuto", func(t *testing.T) {
		src, _ := pref.Select([]StreamSource{
			{Quality: "auto", URL: "A"},
			{Quality: "1080p", URL: "B"},
			{Quality: "backup", URL: "C"},
		})
		assert.Equal(t, "C", src.URL)
	})

	t.Run("AutoBeatsFirst", func(t *testing.T) {
		src, _ := pref.Select([]StreamSource{
			{Quality: "360p", URL: "A"},
			{Quality: "AUTO", URL: "B"},
		})
		assert.Equal(t, "B", src.URL)
	})

	t.Run("FallsBackToFirst", func(t *testing.T) {
		src, _ := pref.Select([]StreamSource{
			{Quality: "720p", URL: "A"},
			{URL: "B"},
		})
		assert.Equal(t, "A", src.URL)
	})

	t.Run("FirstMatchingLabelWins", func(t *testing.T) {
		src, _ := pref.Select([]StreamSource{
			{Quality: "default", URL: "A"},
			{Quality: "default", URL: "B"},
		})
		assert.Equal(t, "A", src.URL)
	})

	t.Run("Empty", func(t *testing.T) {
		_, ok := pref.Select(nil)
		assert.False(t, ok)
	})
}

func TestErrorMatching(t *testing.T) {
	perr := &ProviderError{Provider: ProviderSecondary, Op: "search", Err: errors.New("connection refused")}
	wrapped := fmt.Errorf("resolving: %w", perr)

	assert.True(t, errors.Is(wrapped, ErrProviderUnavailable))
	assert.False(t, errors.Is(wrapped, ErrNotFound))

	var target *ProviderError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, ProviderSecondary, target.Provider)

	playbackErr := &PlaybackError{Class: PlaybackErrorMedia, Reason: "media recovery exhausted"}
	assert.True(t, errors.Is(playbackErr, ErrPlaybackFatal))
	assert.Contains(t, playbackErr.Error(), "media recovery exhausted")
}

func TestEpisodeCount(t *testing.T) {
	assert.Equal(t, 12, (&Anime{}).EpisodeCount())
	assert.Equal(t, 24, (&Anime{Episodes: 24}).EpisodeCount())

	var missing *Anime
	assert.Equal(t, DefaultEpisodeCount, missing.EpisodeCount())
}

func TestEpisodePlayable(t *testing.T) {
	assert.True(t, Episode{ID: "ep-1", Number: 1}.Playable())
	assert.False(t, Episode{ID: "ep-1", Number: 1, Placeholder: true}.Playable())
	assert.False(t, Episode{Number: 1}.Playable())
	assert.Equal(t, "Episode 3", Episode{Number: 3}.DisplayTitle())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Frieren beyond", SanitizeQuery("  <b>Frieren</b>\n\t beyond "))
	assert.Len(t, []rune(SanitizeQuery(strings.Repeat("a", 300))), MaxQueryLength)

	assert.Equal(t, "https://cdn.example.com/a.jpg", SanitizeURL("http://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", SanitizeURL(" https://cdn.example.com/a.jpg "))
	assert.Empty(t, SanitizeURL("javascript:alert(1)"))
	assert.Empty(t, SanitizeURL("data:text/html;base64,AAAA"))
	assert.False(t, IsWebURL("ftp://example.com/file"))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Line one\nLine two", StripTags(" <i>Line one</i><br>Line two<br />"))
	assert.Equal(t, "plain", StripTags("plain"))
}
