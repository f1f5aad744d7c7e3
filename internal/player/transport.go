package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/log"
)

// SeekStep is the number of seconds the arrow keys seek by
const SeekStep = 10.0

// PlaybackRates is the menu of speed multipliers
var PlaybackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// ErrUnsupportedRate is returned for a speed that is not on the PlaybackRates menu
var ErrUnsupportedRate = errors.New("unsupported playback rate")

// Controls are the engine primitives the transport is built on
type Controls interface {
	Snapshot() Snapshot
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error
}

// Transport turns user actions into engine commands.  It does no I/O of its own and derives everything else from
// engine snapshots.
type Transport struct {
	controls Controls
	screen   Screen

	mu         sync.Mutex
	lastVolume float64
	fullscreen bool
	focused    bool
}

// NewTransport creates a transport over controls.  screen may be nil if fullscreen is not supported.
func NewTransport(controls Controls, screen Screen) *Transport {
	lastVolume := controls.Snapshot().Volume
	if lastVolume <= 0 {
		lastVolume = 1
	}
	return &Transport{
		controls:   controls,
		screen:     screen,
		lastVolume: lastVolume,
	}
}

// TogglePlayPause pauses a playing session and resumes a paused one
func (t *Transport) TogglePlayPause() error {
	if t.controls.Snapshot().Playing {
		return t.controls.Pause()
	}
	return t.controls.Play()
}

// SeekBy moves the playhead by delta seconds, clamped to the episode.  Does nothing while the duration is unknown.
func (t *Transport) SeekBy(delta float64) error {
	if delta == 0 {
		return nil
	}
	snap := t.controls.Snapshot()
	return t.seekTo(snap, snap.CurrentTime+delta)
}

// SeekToFraction moves the playhead to fraction f of the episode, f is clamped to [0, 1]
func (t *Transport) SeekToFraction(f float64) error {
	snap := t.controls.Snapshot()
	return t.seekTo(snap, clamp(f, 0, 1)*snap.Duration)
}

func (t *Transport) seekTo(snap Snapshot, target float64) error {
	if !validDuration(snap.Duration) {
		return nil
	}
	target = clamp(target, 0, snap.Duration)
	if target == snap.CurrentTime {
		return nil
	}
	return t.controls.Seek(target)
}

// SkipSegment jumps to the end of the intro or outro the playhead is in.  Does nothing anywhere else.
func (t *Transport) SkipSegment() error {
	snap := t.controls.Snapshot()
	_, segment, ok := snap.SkippableSegment()
	if !ok {
		return nil
	}
	return t.seekTo(snap, segment.End)
}

// SetVolume sets the volume, clamped to [0, 1].  A volume of 0 mutes, any other volume unmutes and is remembered for
// the next unmute.  Setting the current volume again does nothing.
func (t *Transport) SetVolume(v float64) error {
	v = clamp(v, 0, 1)
	wantMuted := v == 0

	snap := t.controls.Snapshot()
	if snap.Volume == v && snap.Muted == wantMuted {
		return nil
	}

	t.mu.Lock()
	if v > 0 {
		t.lastVolume = v
	}
	t.mu.Unlock()

	if snap.Volume != v {
		if err := t.controls.SetVolume(v); err != nil {
			return err
		}
	}
	if snap.Muted != wantMuted {
		return t.controls.SetMuted(wantMuted)
	}
	return nil
}

// ToggleMute mutes, or unmutes and restores the last non-zero volume
func (t *Transport) ToggleMute() error {
	snap := t.controls.Snapshot()

	if snap.Muted || snap.Volume == 0 {
		restore := t.LastVolume()
		if restore <= 0 {
			restore = 1
		}
		if snap.Volume != restore {
			if err := t.controls.SetVolume(restore); err != nil {
				return err
			}
		}
		if snap.Muted {
			return t.controls.SetMuted(false)
		}
		return nil
	}

	t.mu.Lock()
	t.lastVolume = snap.Volume
	t.mu.Unlock()
	return t.controls.SetMuted(true)
}

// LastVolume returns the volume an unmute restores
func (t *Transport) LastVolume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastVolume
}

// SetPlaybackRate applies a speed from the PlaybackRates menu
func (t *Transport) SetPlaybackRate(rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrUnsupportedRate, rate)
	}
	if t.controls.Snapshot().PlaybackRate == rate {
		return nil
	}
	return t.controls.SetPlaybackRate(rate)
}

// CycleRate moves to the next (or previous) speed on the menu
func (t *Transport) CycleRate(forward bool) error {
	current := t.controls.Snapshot().PlaybackRate
	idx := 2
	for i, r := range PlaybackRates {
		if r == current {
			idx = i
		}
	}
	if forward && idx < len(PlaybackRates)-1 {
		idx++
	} else if !forward && idx > 0 {
		idx--
	}
	return t.SetPlaybackRate(PlaybackRates[idx])
}

func validRate(rate float64) bool {
	for _, r := range PlaybackRates {
		if r == rate {
			return true
		}
	}
	return false
}

// ToggleFullscreen requests the opposite of the current fullscreen state.  The state itself only changes when the
// screen reports it through HandleFullscreenChange.
func (t *Transport) ToggleFullscreen() error {
	if t.screen == nil {
		return nil
	}
	return t.screen.SetFullscreen(!t.Fullscreen())
}

// HandleFullscreenChange records the fullscreen state reported by the screen
func (t *Transport) HandleFullscreenChange(fullscreen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fullscreen = fullscreen
}

// Fullscreen reports the last fullscreen state the screen reported
func (t *Transport) Fullscreen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fullscreen
}

// SetFocused marks whether the player holds input focus.  Shortcuts only work while it does.
func (t *Transport) SetFocused(focused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.focused = focused
}

// Focused reports whether the player holds input focus
func (t *Transport) Focused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// HandleKey runs the shortcut bound to key and reports whether the key was consumed.  Keys are ignored while the
// player does not hold focus.
func (t *Transport) HandleKey(key string) bool {
	if !t.Focused() {
		return false
	}

	var err error
	switch key {
	case " ", "space":
		err = t.TogglePlayPause()
	case "left":
		err = t.SeekBy(-SeekStep)
	case "right":
		err = t.SeekBy(SeekStep)
	case "m":
		err = t.ToggleMute()
	case "f":
		err = t.ToggleFullscreen()
	case "s":
		err = t.SkipSegment()
	default:
		return false
	}

	if err != nil {
		log.Warn("Transport command failed", "key", key, "error", err)
	}
	return true
}
