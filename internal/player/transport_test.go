package player

import (
	"testing"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeControls applies commands straight to a snapshot and records them
type fakeControls struct {
	snap    Snapshot
	plays   int
	pauses  int
	seeks   []float64
	volumes []float64
	mutes   []bool
	rates   []float64
}

func newFakeControls() *fakeControls {
	return &fakeControls{snap: Snapshot{State: StatePaused, Volume: 1, PlaybackRate: 1, Duration: 100}}
}

func (c *fakeControls) Snapshot() Snapshot { return c.snap }

func (c *fakeControls) Play() error {
	c.plays++
	c.snap.Playing = true
	return nil
}

func (c *fakeControls) Pause() error {
	c.pauses++
	c.snap.Playing = false
	return nil
}

func (c *fakeControls) Seek(seconds float64) error {
	c.seeks = append(c.seeks, seconds)
	c.snap.CurrentTime = seconds
	return nil
}

func (c *fakeControls) SetVolume(volume float64) error {
	c.volumes = append(c.volumes, volume)
	c.snap.Volume = volume
	return nil
}

func (c *fakeControls) SetMuted(muted bool) error {
	c.mutes = append(c.mutes, muted)
	c.snap.Muted = muted
	return nil
}

func (c *fakeControls) SetPlaybackRate(rate float64) error {
	c.rates = append(c.rates, rate)
	c.snap.PlaybackRate = rate
	return nil
}

func TestTogglePlayPause(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.TogglePlayPause())
	assert.Equal(t, 1, controls.plays)
	require.NoError(t, transport.TogglePlayPause())
	assert.Equal(t, 1, controls.pauses)
}

func TestSeekBy(t *testing.T) {
	controls := newFakeControls()
	controls.snap.CurrentTime = 50
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SeekBy(0))
	assert.Empty(t, controls.seeks, "a zero delta never seeks")

	require.NoError(t, transport.SeekBy(10))
	require.NoError(t, transport.SeekBy(-100))
	require.NoError(t, transport.SeekBy(500))
	assert.Equal(t, []float64{60, 0, 100}, controls.seeks)

	// Already at the end, so nothing to do
	require.NoError(t, transport.SeekBy(10))
	assert.Len(t, controls.seeks, 3)
}

func TestSeekWithoutDuration(t *testing.T) {
	controls := newFakeControls()
	controls.snap.Duration = 0
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SeekBy(10))
	require.NoError(t, transport.SeekToFraction(0.5))
	assert.Empty(t, controls.seeks)
}

func TestSeekToFraction(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SeekToFraction(0.25))
	require.NoError(t, transport.SeekToFraction(1.5))
	require.NoError(t, transport.SeekToFraction(-1))
	assert.Equal(t, []float64{25, 100, 0}, controls.seeks)
}

func TestSetVolume(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SetVolume(1))
	assert.Empty(t, controls.volumes, "setting the current volume does nothing")
	assert.Empty(t, controls.mutes)

	require.NoError(t, transport.SetVolume(0.6))
	require.NoError(t, transport.SetVolume(0.6))
	assert.Equal(t, []float64{0.6}, controls.volumes)
	assert.Equal(t, 0.6, transport.LastVolume())

	require.NoError(t, transport.SetVolume(0))
	assert.True(t, controls.snap.Muted, "volume 0 mutes")
	assert.Equal(t, 0.6, transport.LastVolume(), "volume 0 is not remembered")

	require.NoError(t, transport.SetVolume(1.7))
	assert.Equal(t, 1.0, controls.snap.Volume)
	assert.False(t, controls.snap.Muted)
}

func TestToggleMuteRestoresVolume(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SetVolume(0.7))
	require.NoError(t, transport.ToggleMute())
	assert.True(t, controls.snap.Muted)
	assert.Equal(t, 0.7, controls.snap.Volume)

	require.NoError(t, transport.ToggleMute())
	assert.False(t, controls.snap.Muted)
	assert.Equal(t, 0.7, controls.snap.Volume)
}

func TestToggleMuteFromZeroVolume(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	require.NoError(t, transport.SetVolume(0.3))
	require.NoError(t, transport.SetVolume(0))
	require.NoError(t, transport.ToggleMute())

	assert.Equal(t, 0.3, controls.snap.Volume)
	assert.False(t, controls.snap.Muted)
}

func TestPlaybackRate(t *testing.T) {
	controls := newFakeControls()
	transport := NewTransport(controls, nil)

	assert.ErrorIs(t, transport.SetPlaybackRate(3), ErrUnsupportedRate)
	assert.ErrorIs(t, transport.SetPlaybackRate(0), ErrUnsupportedRate)
	assert.Empty(t, controls.rates)

	require.NoError(t, transport.SetPlaybackRate(1.5))
	require.NoError(t, transport.SetPlaybackRate(1.5))
	assert.Equal(t, []float64{1.5}, controls.rates)

	require.NoError(t, transport.CycleRate(true))
	require.NoError(t, transport.CycleRate(true))
	assert.Equal(t, 2.0, controls.snap.PlaybackRate, "cycling stops at the end of the menu")

	require.NoError(t, transport.CycleRate(false))
	assert.Equal(t, 1.5, controls.snap.PlaybackRate)
}

func TestFullscreen(t *testing.T) {
	controls := newFakeControls()
	screen := &fakeScreen{}
	transport := NewTransport(controls, screen)

	require.NoError(t, transport.ToggleFullscreen())
	assert.Equal(t, []bool{true}, screen.requests)
	assert.False(t, transport.Fullscreen(), "state only changes when the screen reports it")

	transport.HandleFullscreenChange(true)
	require.NoError(t, transport.ToggleFullscreen())
	assert.Equal(t, []bool{true, false}, screen.requests)

	// The user can leave fullscreen without going through the transport
	transport.HandleFullscreenChange(false)
	assert.False(t, transport.Fullscreen())

	assert.NoError(t, NewTransport(controls, nil).ToggleFullscreen())
}

func TestHandleKeyRequiresFocus(t *testing.T) {
	controls := newFakeControls()
	controls.snap.CurrentTime = 50
	screen := &fakeScreen{}
	transport := NewTransport(controls, screen)

	for _, key := range []string{" ", "left", "right", "m", "f"} {
		assert.False(t, transport.HandleKey(key))
	}
	assert.Zero(t, controls.plays)
	assert.Empty(t, controls.seeks)
	assert.Empty(t, screen.requests)

	transport.SetFocused(true)
	assert.True(t, transport.HandleKey("space"))
	assert.Equal(t, 1, controls.plays)
	assert.True(t, transport.HandleKey("right"))
	assert.True(t, transport.HandleKey("left"))
	assert.Equal(t, []float64{60, 50}, controls.seeks)
	assert.True(t, transport.HandleKey("m"))
	assert.True(t, controls.snap.Muted)
	assert.True(t, transport.HandleKey("f"))
	assert.Equal(t, []bool{true}, screen.requests)

	assert.False(t, transport.HandleKey("x"))
}

func TestSkipSegment(t *testing.T) {
	controls := newFakeControls()
	controls.snap.Intro = &domain.TimeRange{Start: 5, End: 30}
	controls.snap.Outro = &domain.TimeRange{Start: 85, End: 100}
	transport := NewTransport(controls, nil)

	controls.snap.CurrentTime = 50
	require.NoError(t, transport.SkipSegment())
	assert.Empty(t, controls.seeks)

	controls.snap.CurrentTime = 10
	require.NoError(t, transport.SkipSegment())
	assert.Equal(t, []float64{30}, controls.seeks)

	// The end of a range is already past it
	require.NoError(t, transport.SkipSegment())
	assert.Equal(t, []float64{30}, controls.seeks)

	controls.snap.CurrentTime = 90
	transport.SetFocused(true)
	assert.True(t, transport.HandleKey("s"))
	assert.Equal(t, []float64{30, 100}, controls.seeks)

	controls.snap.Intro, controls.snap.Outro = nil, nil
	controls.snap.CurrentTime = 10
	require.NoError(t, transport.SkipSegment())
	assert.Len(t, controls.seeks, 2)
}

func TestTransportOverEngine(t *testing.T) {
	engine, element, _ := newTestEngine(EngineConfig{})
	transport := NewTransport(engine, nil)

	require.NoError(t, engine.Load(mp4Stream("https://cdn.example/ep1.mp4")))
	element.emit(MediaEvent{Type: MediaLoadedMetadata, Duration: 300})
	element.emit(MediaEvent{Type: MediaTimeUpdate, Time: 295})

	require.NoError(t, transport.SeekBy(SeekStep))
	assert.Equal(t, []float64{300}, element.seekCalls())

	require.NoError(t, transport.SetVolume(0.7))
	require.NoError(t, transport.ToggleMute())
	require.NoError(t, transport.ToggleMute())
	snap := engine.Snapshot()
	assert.Equal(t, 0.7, snap.Volume)
	assert.False(t, snap.Muted)
}
