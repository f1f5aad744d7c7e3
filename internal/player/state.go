package player

import (
	"math"

	"github.com/PizzaHomicide/anistream/internal/domain"
)

// State is the playback engine lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateFatal   State = "fatal"
)

// AllStates lists every state, used for the state gauge
var AllStates = []State{StateIdle, StateLoading, StateReady, StatePlaying, StatePaused, StateEnded, StateFatal}

func stateNames() []string {
	names := make([]string, len(AllStates))
	for i, s := range AllStates {
		names[i] = string(s)
	}
	return names
}

// AttachMode is how a session's source was bound to the media element
type AttachMode string

const (
	AttachNone     AttachMode = ""
	AttachAdaptive AttachMode = "adaptive"
	AttachNative   AttachMode = "native"
	AttachDirect   AttachMode = "direct"
)

// Snapshot is a read-only copy of the playback session published on every change
type Snapshot struct {
	// Seq increases with every published snapshot.  Consumers can drop snapshots older than one already seen.
	Seq        uint64
	SessionID  string
	Generation uint64
	State      State
	Mode       AttachMode
	Source     domain.StreamSource
	// Quality is the label of the active source, or the variant picked by the adaptive client
	Quality      string
	CurrentTime  float64
	Duration     float64
	BufferedEnd  float64
	Playing      bool
	Muted        bool
	Volume       float64
	PlaybackRate float64
	Fullscreen   bool
	// Intro and Outro are the skippable sections the provider reported, nil when unknown
	Intro *domain.TimeRange
	Outro *domain.TimeRange
	// ElementGone is set for good once the media element has gone away
	ElementGone bool
	Err         error
}

// Progress returns the played fraction of the episode, or 0 when the duration is unknown
func (s Snapshot) Progress() float64 {
	if !validDuration(s.Duration) {
		return 0
	}
	return clamp(s.CurrentTime/s.Duration, 0, 1)
}

// SkippableSegment returns the intro or outro the playhead is currently in
func (s Snapshot) SkippableSegment() (name string, segment domain.TimeRange, ok bool) {
	for _, seg := range []struct {
		name string
		r    *domain.TimeRange
	}{{"intro", s.Intro}, {"outro", s.Outro}} {
		if seg.r != nil && s.CurrentTime >= seg.r.Start && s.CurrentTime < seg.r.End {
			return seg.name, *seg.r, true
		}
	}
	return "", domain.TimeRange{}, false
}

// bufferedEnd returns the end of the last buffered range clamped to duration
func bufferedEnd(ranges []domain.TimeRange, duration float64) float64 {
	if len(ranges) == 0 {
		return 0
	}
	end := ranges[len(ranges)-1].End
	if validDuration(duration) && end > duration {
		end = duration
	}
	if end < 0 {
		return 0
	}
	return end
}

func validDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
