package player

import (
	"errors"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
)

// MediaEventType is the kind of signal a media element emits
type MediaEventType int

const (
	MediaLoadedMetadata MediaEventType = iota
	MediaTimeUpdate
	MediaDurationChange
	MediaProgress
	MediaVolumeChange
	MediaRateChange
	MediaPlay
	MediaPause
	MediaEnded
	MediaError
	MediaFullscreenChange
)

func (t MediaEventType) String() string {
	switch t {
	case MediaLoadedMetadata:
		return "loadedmetadata"
	case MediaTimeUpdate:
		return "timeupdate"
	case MediaDurationChange:
		return "durationchange"
	case MediaProgress:
		return "progress"
	case MediaVolumeChange:
		return "volumechange"
	case MediaRateChange:
		return "ratechange"
	case MediaPlay:
		return "play"
	case MediaPause:
		return "pause"
	case MediaEnded:
		return "ended"
	case MediaError:
		return "error"
	case MediaFullscreenChange:
		return "fullscreenchange"
	default:
		return "unknown"
	}
}

// MediaEvent is one signal from a media element.  Only the fields relevant to Type are set.
type MediaEvent struct {
	Type       MediaEventType
	Time       float64
	Duration   float64
	Buffered   []domain.TimeRange
	Volume     float64
	Muted      bool
	Rate       float64
	Fullscreen bool
	Err        error
}

// ErrElementGone is reported in a MediaError when the element can no longer play anything, for example because the
// player window was closed.  Only a restart brings it back.
var ErrElementGone = errors.New("the media player is no longer available")

// MediaElement is the surface video is rendered on.  Implementations deliver events from their own goroutine and
// never call a subscriber from inside one of the command methods.
type MediaElement interface {
	// SetSource points the element at a url, replacing anything it was playing
	SetSource(url string) error
	// ClearSource stops playback and unloads the current source
	ClearSource() error
	// Play starts playback.  Returns domain.ErrAutoplayBlocked if playback needs user interaction first.
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error
	// SupportsNativeHLS reports whether the element can play HLS manifests on its own
	SupportsNativeHLS() bool
	// Subscribe registers fn for every event and returns a function that removes it
	Subscribe(fn func(MediaEvent)) (unsubscribe func())
}

// Screen is the container the player is displayed in
type Screen interface {
	SetFullscreen(fullscreen bool) error
}

// SubtitleTracks is implemented by elements that can load external subtitle files.  Tracks belong to the loaded
// source and are dropped with it.
type SubtitleTracks interface {
	AddSubtitle(url, lang string) error
}

// AdaptiveEventType is the kind of signal an adaptive client emits
type AdaptiveEventType int

const (
	// AdaptiveManifestParsed is emitted once the manifest has been loaded and a variant picked
	AdaptiveManifestParsed AdaptiveEventType = iota
	// AdaptiveLevelSwitched is emitted when the client changes variant
	AdaptiveLevelSwitched
	// AdaptiveError is emitted for any loader or media failure
	AdaptiveError
)

// AdaptiveEvent is one signal from an adaptive client
type AdaptiveEvent struct {
	Type AdaptiveEventType
	// Level describes the selected variant, such as 1920x1080
	Level string
	Class domain.PlaybackErrorClass
	// Fatal errors stop the client until it is told to recover.  Non-fatal errors are handled internally.
	Fatal   bool
	Details string
	Err     error
}

// AdaptiveClient streams an adaptive manifest into a media element
type AdaptiveClient interface {
	// LoadSource sets the manifest url
	LoadSource(url string)
	// AttachMedia binds the client to an element.  Loading starts once both a source and an element are set.
	AttachMedia(element MediaElement)
	// StartLoad restarts loading after a fatal network error
	StartLoad()
	// RecoverMediaError re-attaches the stream after a fatal media error
	RecoverMediaError()
	// Destroy stops all loading and detaches from the element.  The element's source is never changed after Destroy
	// returns, though an event already being delivered may still arrive.
	Destroy()
	// OnEvent registers the handler for client events.  Must be called before LoadSource.
	OnEvent(fn func(AdaptiveEvent))
}

// LoaderPolicy holds the fixed loader limits every adaptive client is created with
type LoaderPolicy struct {
	ManifestTimeout    time.Duration
	ManifestMaxRetries int
	FragmentTimeout    time.Duration
	FragmentMaxRetries int
	RetryDelay         time.Duration
	// MaxBitrate caps the variant bandwidth in bits per second.  0 means no cap.
	MaxBitrate int
}

// DefaultLoaderPolicy returns the loader limits used when none are configured
func DefaultLoaderPolicy() LoaderPolicy {
	return LoaderPolicy{
		ManifestTimeout:    10 * time.Second,
		ManifestMaxRetries: 2,
		FragmentTimeout:    20 * time.Second,
		FragmentMaxRetries: 3,
		RetryDelay:         time.Second,
	}
}

// AdaptiveClientFactory creates a new adaptive client for one playback session
type AdaptiveClientFactory func(policy LoaderPolicy) AdaptiveClient
