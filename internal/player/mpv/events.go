package mpv

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/player"
)

// ErrPlayback wraps the reason mpv gives when it fails to play a file
var ErrPlayback = errors.New("mpv could not play the file")

// observed lists the properties the element watches, indexed by observe id - 1
var observed = []string{
	"time-pos",
	"duration",
	"demuxer-cache-time",
	"volume",
	"mute",
	"speed",
	"pause",
	"fullscreen",
}

// eventMapper turns mpv events into media events.  It tracks just enough state to fill in the fields mpv reports
// separately, such as volume and mute.  Only used from the element's reader goroutine, except for pending.
type eventMapper struct {
	// pending counts loadfile commands whose start-file has not been seen yet.  Events in between belong to the
	// file being replaced and are dropped.
	pending atomic.Int32

	loaded   bool
	paused   bool
	timePos  float64
	duration float64
	volume   float64
	muted    bool
}

func newEventMapper() *eventMapper {
	// mpv is started with --pause=yes
	return &eventMapper{volume: 1, paused: true}
}

// expectLoad is called before a loadfile command is sent
func (m *eventMapper) expectLoad() {
	m.pending.Add(1)
}

// loadDone settles one pending load, either on start-file or when mpv rejected the loadfile
func (m *eventMapper) loadDone() {
	for {
		n := m.pending.Load()
		if n <= 0 || m.pending.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (m *eventMapper) replacing() bool {
	return m.pending.Load() > 0
}

func (m *eventMapper) translate(msg message) []player.MediaEvent {
	switch msg.Event {
	case "start-file":
		m.loadDone()
		m.loaded = false
		m.timePos = 0
		m.duration = 0
	case "file-loaded":
		if m.replacing() {
			log.Debug("Dropping file-loaded of a replaced file")
			return nil
		}
		m.loaded = true
		return []player.MediaEvent{
			{Type: player.MediaLoadedMetadata, Duration: m.duration},
			m.pauseEvent(),
		}
	case "end-file":
		wasLoaded := m.loaded
		m.loaded = false
		if m.replacing() {
			return nil
		}
		switch msg.Reason {
		case "eof":
			if wasLoaded {
				return []player.MediaEvent{{Type: player.MediaEnded}}
			}
		case "error":
			return []player.MediaEvent{{Type: player.MediaError, Err: fmt.Errorf("%w: %s", ErrPlayback, msg.FileError)}}
		}
	case "property-change":
		return m.property(msg)
	}
	return nil
}

func (m *eventMapper) pauseEvent() player.MediaEvent {
	if m.paused {
		return player.MediaEvent{Type: player.MediaPause}
	}
	return player.MediaEvent{Type: player.MediaPlay}
}

func (m *eventMapper) property(msg message) []player.MediaEvent {
	// Properties are null while no file is loaded
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}

	switch msg.Name {
	case "time-pos":
		v, ok := decode[float64](msg)
		if !ok || !m.loaded || m.replacing() {
			return nil
		}
		m.timePos = v
		return []player.MediaEvent{{Type: player.MediaTimeUpdate, Time: v}}
	case "duration":
		v, ok := decode[float64](msg)
		if !ok || m.replacing() {
			return nil
		}
		m.duration = v
		return []player.MediaEvent{{Type: player.MediaDurationChange, Duration: v}}
	case "demuxer-cache-time":
		v, ok := decode[float64](msg)
		if !ok || !m.loaded || m.replacing() {
			return nil
		}
		return []player.MediaEvent{{Type: player.MediaProgress, Buffered: []domain.TimeRange{{Start: m.timePos, End: v}}}}
	case "volume":
		v, ok := decode[float64](msg)
		if !ok {
			return nil
		}
		m.volume = v / 100
		return []player.MediaEvent{{Type: player.MediaVolumeChange, Volume: m.volume, Muted: m.muted}}
	case "mute":
		v, ok := decode[bool](msg)
		if !ok {
			return nil
		}
		m.muted = v
		return []player.MediaEvent{{Type: player.MediaVolumeChange, Volume: m.volume, Muted: m.muted}}
	case "speed":
		v, ok := decode[float64](msg)
		if !ok {
			return nil
		}
		return []player.MediaEvent{{Type: player.MediaRateChange, Rate: v}}
	case "pause":
		v, ok := decode[bool](msg)
		if !ok {
			return nil
		}
		// Pause carries over between files.  Until the next file has loaded it is only remembered and reported
		// after the metadata.
		m.paused = v
		if !m.loaded || m.replacing() {
			return nil
		}
		return []player.MediaEvent{m.pauseEvent()}
	case "fullscreen":
		v, ok := decode[bool](msg)
		if !ok {
			return nil
		}
		return []player.MediaEvent{{Type: player.MediaFullscreenChange, Fullscreen: v}}
	}
	return nil
}

func decode[T any](msg message) (T, bool) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		log.Warn("Failed to unmarshal mpv property", "name", msg.Name, "data", string(msg.Data), "error", err)
		return v, false
	}
	return v, true
}
