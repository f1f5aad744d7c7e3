package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/metrics"
	"github.com/google/uuid"
)

// EngineConfig holds the settings of a playback engine
type EngineConfig struct {
	// ForceAdaptive uses the adaptive client for manifests even if the element supports them natively
	ForceAdaptive bool
	Quality       domain.QualityPreference
	Limits        RecoveryLimits
	Policy        LoaderPolicy
	Metrics       *metrics.Metrics
}

// session is the state of one load of a StreamData.  Owned by Engine and only touched with Engine.mu held.
type session struct {
	id                string
	gen               uint64
	source            domain.StreamSource
	quality           string
	mode              AttachMode
	adaptive          AdaptiveClient
	recovery          *Recovery
	currentTime       float64
	duration          float64
	buffered          []domain.TimeRange
	subtitles         []domain.Subtitle
	intro, outro      *domain.TimeRange
	playing           bool
	autoplayAttempted bool
	loaded            bool // the element has reported metadata for this source
	err               error
}

// Engine owns the playback session bound to one media element.  Every load tears down the previous session before
// a new one is attached, so at most one adaptive client is ever bound to the element.
type Engine struct {
	element    MediaElement
	newClient  AdaptiveClientFactory
	cfg        EngineConfig
	stopEvents func()

	mu         sync.Mutex
	state      State
	session    *session
	generation uint64
	seq        uint64
	volume     float64
	muted      bool
	rate       float64
	fullscreen bool
	gone       bool
	subs       map[int]func(Snapshot)
	nextSub    int
}

// NewEngine creates an engine bound to element.  newClient is called once per adaptive session.
func NewEngine(element MediaElement, newClient AdaptiveClientFactory, cfg EngineConfig) *Engine {
	if cfg.Quality == (domain.QualityPreference{}) {
		cfg.Quality = domain.DefaultQualityPreference()
	}

	e := &Engine{
		element:   element,
		newClient: newClient,
		cfg:       cfg,
		state:     StateIdle,
		volume:    1,
		rate:      1,
		subs:      map[int]func(Snapshot){},
	}
	e.stopEvents = element.Subscribe(e.HandleMediaEvent)
	return e
}

// Subscribe registers fn to receive a snapshot after every change.  fn is called without any engine lock held but
// must not block.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Snapshot returns the current session state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Load starts a new session for data.  The previous session is torn down first, then a source is selected and
// attached.  Playback starts automatically once the source is ready, unless the element blocks autoplay.
func (e *Engine) Load(data *domain.StreamData) error {
	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return ErrElementGone
	}
	e.teardownLocked()

	var sources []domain.StreamSource
	if data != nil {
		sources = data.Sources
	}
	src, ok := e.cfg.Quality.Select(sources)
	if !ok {
		e.session = nil
		e.setStateLocked(StateIdle)
		e.unlockAndPublish()
		return fmt.Errorf("%w: stream has no sources", domain.ErrSourceUnavailable)
	}

	e.generation++
	s := &session{
		id:        uuid.NewString(),
		gen:       e.generation,
		source:    src,
		quality:   qualityLabel(src),
		mode:      e.attachMode(src),
		recovery:  NewRecovery(e.cfg.Limits),
		subtitles: data.Subtitles,
		intro:     data.Intro,
		outro:     data.Outro,
	}
	e.session = s
	e.setStateLocked(StateLoading)

	log.Info("Loading playback session", "session", s.id, "mode", s.mode, "quality", s.quality, "url", src.URL)
	e.cfg.Metrics.PlaybackStarted(string(s.mode))

	var err error
	switch s.mode {
	case AttachAdaptive:
		client := e.newClient(e.cfg.Policy)
		s.adaptive = client
		gen := s.gen
		client.OnEvent(func(ev AdaptiveEvent) {
			e.handleAdaptiveEvent(gen, ev)
		})
		client.LoadSource(src.URL)
		client.AttachMedia(e.element)
	default:
		if setErr := e.element.SetSource(src.URL); setErr != nil {
			perr := &domain.PlaybackError{Class: domain.PlaybackErrorOther, Reason: "could not open source", Err: setErr}
			e.fatalLocked(perr)
			err = perr
		}
	}

	e.unlockAndPublish()
	return err
}

// Unload tears down the current session and returns to Idle
func (e *Engine) Unload() {
	e.mu.Lock()
	e.teardownLocked()
	// Bump the generation so events from the old adaptive client are dropped
	e.generation++
	e.session = nil
	e.setStateLocked(StateIdle)
	e.unlockAndPublish()
}

// Close unloads the engine and stops listening to the element
func (e *Engine) Close() {
	e.Unload()
	if e.stopEvents != nil {
		e.stopEvents()
	}
}

// Play asks the element to start playback.  The state changes once the element reports it is playing.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasPlayableSessionLocked() {
		return nil
	}
	return e.element.Play()
}

// Pause asks the element to pause.  The state changes once the element reports it paused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasPlayableSessionLocked() {
		return nil
	}
	return e.element.Pause()
}

// Seek moves the playhead to seconds
func (e *Engine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasPlayableSessionLocked() {
		return nil
	}
	return e.element.Seek(seconds)
}

// SetVolume sets the element volume.  The new value is reflected in snapshots immediately and corrected by the
// element's own volume events.
func (e *Engine) SetVolume(volume float64) error {
	e.mu.Lock()
	if err := e.element.SetVolume(volume); err != nil {
		e.mu.Unlock()
		return err
	}
	e.volume = volume
	e.unlockAndPublish()
	return nil
}

// SetMuted mutes or unmutes the element
func (e *Engine) SetMuted(muted bool) error {
	e.mu.Lock()
	if err := e.element.SetMuted(muted); err != nil {
		e.mu.Unlock()
		return err
	}
	e.muted = muted
	e.unlockAndPublish()
	return nil
}

// SetPlaybackRate sets the speed multiplier of the element
func (e *Engine) SetPlaybackRate(rate float64) error {
	e.mu.Lock()
	if err := e.element.SetPlaybackRate(rate); err != nil {
		e.mu.Unlock()
		return err
	}
	e.rate = rate
	e.unlockAndPublish()
	return nil
}

// HandleMediaEvent applies one media element event to the session and publishes the result
func (e *Engine) HandleMediaEvent(ev MediaEvent) {
	e.mu.Lock()

	switch ev.Type {
	case MediaVolumeChange:
		e.volume = clamp(ev.Volume, 0, 1)
		e.muted = ev.Muted
		e.unlockAndPublish()
		return
	case MediaRateChange:
		if ev.Rate > 0 {
			e.rate = ev.Rate
		}
		e.unlockAndPublish()
		return
	case MediaFullscreenChange:
		e.fullscreen = ev.Fullscreen
		e.unlockAndPublish()
		return
	}

	if ev.Type == MediaError && errors.Is(ev.Err, ErrElementGone) {
		e.elementGoneLocked(ev.Err)
		e.unlockAndPublish()
		return
	}

	s := e.session
	if s == nil || e.state == StateFatal {
		// Nothing is loaded, so the event belongs to a source that was already torn down
		e.mu.Unlock()
		return
	}

	if !s.loaded && ev.Type != MediaLoadedMetadata && ev.Type != MediaError {
		// Before metadata arrives, timeline events can only describe the previous source
		log.Trace("Dropping media event before metadata", "session", s.id, "type", ev.Type)
		e.mu.Unlock()
		return
	}

	switch ev.Type {
	case MediaLoadedMetadata:
		s.loaded = true
		if validDuration(ev.Duration) {
			s.duration = ev.Duration
		}
		// Every load of a file, including a reload during recovery, starts without external tracks
		e.addSubtitlesLocked(s)
		if e.state == StateLoading {
			e.setStateLocked(StateReady)
		}
		if s.mode != AttachAdaptive {
			e.autoplayLocked(s)
		}
	case MediaDurationChange:
		if validDuration(ev.Duration) {
			s.duration = ev.Duration
		}
	case MediaTimeUpdate:
		s.currentTime = ev.Time
	case MediaProgress:
		s.buffered = append([]domain.TimeRange(nil), ev.Buffered...)
	case MediaPlay:
		s.playing = true
		e.setStateLocked(StatePlaying)
	case MediaPause:
		s.playing = false
		if e.state == StatePlaying || e.state == StateReady {
			e.setStateLocked(StatePaused)
		}
	case MediaEnded:
		s.playing = false
		e.setStateLocked(StateEnded)
		log.Info("Playback ended", "session", s.id)
	case MediaError:
		if s.mode == AttachAdaptive {
			// The adaptive client owns the stream, so a decode failure goes through media recovery
			e.recoverLocked(s, AdaptiveEvent{Type: AdaptiveError, Class: domain.PlaybackErrorMedia, Fatal: true, Details: "media element error", Err: ev.Err})
		} else {
			e.fatalLocked(&domain.PlaybackError{Class: domain.PlaybackErrorMedia, Reason: "media element error", Err: ev.Err})
		}
	}

	e.unlockAndPublish()
}

// handleAdaptiveEvent applies an event from the adaptive client of the session with generation gen
func (e *Engine) handleAdaptiveEvent(gen uint64, ev AdaptiveEvent) {
	e.mu.Lock()

	s := e.session
	if s == nil || s.gen != gen || e.state == StateFatal {
		log.Debug("Dropping adaptive event from a previous session", "generation", gen, "type", ev.Type)
		e.mu.Unlock()
		return
	}

	switch ev.Type {
	case AdaptiveManifestParsed:
		if ev.Level != "" {
			s.quality = ev.Level
		}
		if e.state == StateLoading {
			e.setStateLocked(StateReady)
		}
		e.autoplayLocked(s)
	case AdaptiveLevelSwitched:
		if ev.Level != "" {
			s.quality = ev.Level
		}
	case AdaptiveError:
		if !ev.Fatal {
			log.Warn("Non-fatal adaptive stream error", "session", s.id, "class", ev.Class, "details", ev.Details, "error", ev.Err)
			e.mu.Unlock()
			return
		}
		e.recoverLocked(s, ev)
	}

	e.unlockAndPublish()
}

// recoverLocked runs the recovery state machine for a fatal error
func (e *Engine) recoverLocked(s *session, ev AdaptiveEvent) {
	action := s.recovery.Next(ev.Class)
	network, media := s.recovery.Attempts()
	log.Warn("Fatal adaptive stream error",
		"session", s.id,
		"class", ev.Class,
		"details", ev.Details,
		"action", action,
		"network_attempts", network,
		"media_attempts", media,
		"error", ev.Err,
	)

	switch action {
	case ActionRetryNetwork:
		e.cfg.Metrics.PlaybackRecovery(string(ev.Class))
		s.adaptive.StartLoad()
	case ActionRecoverMedia:
		e.cfg.Metrics.PlaybackRecovery(string(ev.Class))
		s.adaptive.RecoverMediaError()
	default:
		reason := "unrecoverable stream error"
		if Classify(ev.Class) != ActionFatal {
			reason = fmt.Sprintf("%s recovery exhausted", ev.Class)
		}
		if ev.Details != "" {
			reason = reason + ": " + ev.Details
		}
		class := ev.Class
		if class == "" {
			class = domain.PlaybackErrorOther
		}
		e.fatalLocked(&domain.PlaybackError{Class: class, Reason: reason, Err: ev.Err})
	}
}

// autoplayLocked attempts to start playback once per session.  A blocked autoplay leaves the session paused.
func (e *Engine) autoplayLocked(s *session) {
	if s.autoplayAttempted {
		return
	}
	s.autoplayAttempted = true

	err := e.element.Play()
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAutoplayBlocked):
		log.Info("Autoplay blocked, waiting for the user", "session", s.id)
		e.setStateLocked(StatePaused)
	default:
		log.Warn("Autoplay failed", "session", s.id, "error", err)
		e.setStateLocked(StatePaused)
	}
}

func (e *Engine) addSubtitlesLocked(s *session) {
	tracks, ok := e.element.(SubtitleTracks)
	if !ok || len(s.subtitles) == 0 {
		return
	}
	for _, sub := range s.subtitles {
		if err := tracks.AddSubtitle(sub.URL, sub.Lang); err != nil {
			log.Warn("Failed to add subtitle track", "session", s.id, "lang", sub.Lang, "url", sub.URL, "error", err)
		}
	}
	log.Debug("Added subtitle tracks", "session", s.id, "count", len(s.subtitles))
}

// elementGoneLocked stops accepting loads for good and fails the running session
func (e *Engine) elementGoneLocked(err error) {
	if e.gone {
		return
	}
	e.gone = true
	log.Error("Media element is gone, playback is no longer available", "error", err)
	if e.session != nil && e.state != StateFatal {
		e.fatalLocked(&domain.PlaybackError{Class: domain.PlaybackErrorOther, Reason: "the media player was closed", Err: err})
	}
}

// fatalLocked tears the session down and keeps it around only to report the failure
func (e *Engine) fatalLocked(err *domain.PlaybackError) {
	s := e.session
	log.Error("Playback failed", "session", s.id, "class", err.Class, "error", err)
	e.cfg.Metrics.PlaybackFatal(string(err.Class))

	e.teardownLocked()
	s.err = err
	s.playing = false
	e.setStateLocked(StateFatal)
}

// teardownLocked destroys the adaptive client and clears the element.  The session struct itself is kept so a
// fatal session can still be reported.
func (e *Engine) teardownLocked() {
	s := e.session
	if s == nil {
		return
	}
	if s.adaptive != nil {
		s.adaptive.Destroy()
		s.adaptive = nil
	}
	if err := e.element.ClearSource(); err != nil {
		log.Warn("Failed to clear media element source", "session", s.id, "error", err)
	}
	s.playing = false
}

func (e *Engine) attachMode(src domain.StreamSource) AttachMode {
	switch {
	case !src.IsM3U8:
		return AttachDirect
	case e.cfg.ForceAdaptive || !e.element.SupportsNativeHLS():
		return AttachAdaptive
	default:
		return AttachNative
	}
}

func (e *Engine) hasPlayableSessionLocked() bool {
	return e.session != nil && e.state != StateFatal && e.state != StateIdle
}

func (e *Engine) setStateLocked(state State) {
	if e.state == state {
		return
	}
	log.Debug("Playback state change", "from", e.state, "to", state)
	e.state = state
	e.cfg.Metrics.SetPlaybackState(string(state), stateNames())
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Seq:          e.seq,
		Generation:   e.generation,
		State:        e.state,
		Volume:       e.volume,
		Muted:        e.muted,
		PlaybackRate: e.rate,
		Fullscreen:   e.fullscreen,
		ElementGone:  e.gone,
	}
	if s := e.session; s != nil {
		snap.SessionID = s.id
		snap.Generation = s.gen
		snap.Mode = s.mode
		snap.Source = s.source
		snap.Quality = s.quality
		snap.CurrentTime = s.currentTime
		snap.Duration = s.duration
		snap.BufferedEnd = bufferedEnd(s.buffered, s.duration)
		snap.Playing = s.playing
		snap.Intro = s.intro
		snap.Outro = s.outro
		snap.Err = s.err
	}
	return snap
}

// unlockAndPublish takes a snapshot, releases the lock and hands the snapshot to every subscriber
func (e *Engine) unlockAndPublish() {
	e.seq++
	snap := e.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func qualityLabel(src domain.StreamSource) string {
	if src.Quality != "" {
		return src.Quality
	}
	return "auto"
}
