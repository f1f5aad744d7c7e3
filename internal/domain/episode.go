package domain

import "fmt"

// ProviderTag identifies one streaming source provider.  The order providers are configured in is the fallback
// priority used when resolving episodes.
type ProviderTag string

const (
	ProviderPrimary   ProviderTag = "primary"
	ProviderSecondary ProviderTag = "secondary"
	ProviderTertiary  ProviderTag = "tertiary"
)

// CandidateMatch is a show returned by a provider search
type CandidateMatch struct {
	ID    string
	Title string
}

// Episode is a single episode as known by one provider.  Identity is the (Provider, ID) pair.
type Episode struct {
	ID       string
	Number   int
	Title    string
	IsFiller bool
	Provider ProviderTag
	// Placeholder episodes are synthesised when no provider knows the title.  They exist only so an episode grid can
	// be rendered and can never be played.
	Placeholder bool
}

// Playable reports whether a source can be fetched for the episode
func (e Episode) Playable() bool {
	return !e.Placeholder && e.ID != ""
}

// DisplayTitle returns the episode title, or a generic one when the provider did not supply a title
func (e Episode) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return fmt.Sprintf("Episode %d", e.Number)
}

// FindEpisode returns the episode with the given number from a resolved list
func FindEpisode(episodes []Episode, number int) (Episode, bool) {
	for _, ep := range episodes {
		if ep.Number == number {
			return ep, true
		}
	}
	return Episode{}, false
}

// StreamSource is one playable variant (bitrate or mirror) of an episode
type StreamSource struct {
	URL     string
	IsM3U8  bool
	Quality string
}

// Subtitle is an external subtitle track
type Subtitle struct {
	URL  string
	Lang string
}

// TimeRange marks a section of an episode, such as the intro or outro, in seconds
type TimeRange struct {
	Start float64
	End   float64
}

// StreamData is the result of resolving one episode on one provider.  A StreamData is never mutated after it is
// created, a new episode selection replaces it wholesale.
type StreamData struct {
	Sources   []StreamSource
	Subtitles []Subtitle
	Intro     *TimeRange
	Outro     *TimeRange
}
