// Package mpv drives a long-lived mpv process over its JSON IPC socket and exposes it as a media element
package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/avast/retry-go/v4"
)

var (
	_ player.MediaElement   = (*Element)(nil)
	_ player.Screen         = (*Element)(nil)
	_ player.SubtitleTracks = (*Element)(nil)
)

// Options configure the mpv process
type Options struct {
	// Path to the mpv binary.  Defaults to mpv on the PATH.
	Path string
	// Args are extra command line arguments appended after the ones the element needs
	Args []string
	// SocketPath overrides the IPC socket or named pipe location
	SocketPath string
	// CommandTimeout bounds how long a command waits for mpv to reply
	CommandTimeout time.Duration
}

// SocketPath returns the IPC socket location.  MPV_IPC_SOCKET overrides the per-process default.
func SocketPath() string {
	if path := os.Getenv("MPV_IPC_SOCKET"); path != "" {
		return path
	}
	return defaultSocketPath()
}

// Element is an idle mpv instance that plays whatever source it is pointed at.  It implements player.MediaElement
// and player.Screen.
type Element struct {
	opts   Options
	cmd    *exec.Cmd
	ipc    *ipcClient
	mapper *eventMapper

	mu       sync.Mutex
	subs     map[int]func(player.MediaEvent)
	nextSub  int
	closing  bool
	dispatch chan player.MediaEvent
	exited   chan struct{}
}

// Start launches mpv in idle mode and connects to its IPC socket
func Start(ctx context.Context, opts Options) (*Element, error) {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.SocketPath == "" {
		opts.SocketPath = SocketPath()
	}

	args := []string{
		"--idle=yes",                            // Stay alive between episodes
		"--pause=yes",                           // Wait for an explicit play after each load
		"--keep-open=no",                        // Report eof instead of holding the last frame
		"--no-terminal",                         // Disable terminal control
		"--input-ipc-server=" + opts.SocketPath, // Set IPC socket path
	}
	args = append(args, opts.Args...)

	log.Info("Starting mpv", "path", opts.Path, "socket", opts.SocketPath, "args", args)
	cmd := exec.Command(opts.Path, args...)
	setupProcess(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		log.Info("mpv exited", "error", err)
		close(exited)
	}()

	conn, err := retry.DoWithData(
		func() (net.Conn, error) {
			select {
			case <-exited:
				return nil, retry.Unrecoverable(fmt.Errorf("mpv exited before opening its socket"))
			default:
			}
			return dial(ctx, opts.SocketPath)
		},
		retry.Context(ctx),
		retry.Attempts(20),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("mpv socket not ready", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("failed to connect to mpv: %w", err)
	}

	e, err := newElement(conn, opts, exited)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	e.cmd = cmd
	log.Info("Connected to mpv", "socket", opts.SocketPath)
	return e, nil
}

// newElement wraps an established IPC connection.  exited may be nil when there is no process to watch.
func newElement(conn net.Conn, opts Options, exited chan struct{}) (*Element, error) {
	if exited == nil {
		exited = make(chan struct{})
	}
	e := &Element{
		opts:     opts,
		ipc:      newIPCClient(conn, opts.CommandTimeout),
		mapper:   newEventMapper(),
		subs:     map[int]func(player.MediaEvent){},
		dispatch: make(chan player.MediaEvent, 256),
		exited:   exited,
	}

	go e.readEvents()
	go e.dispatchEvents()

	for i, name := range observed {
		if err := e.ipc.ObserveProperty(i+1, name); err != nil {
			_ = e.ipc.Close()
			return nil, fmt.Errorf("failed to observe %s: %w", name, err)
		}
	}
	return e, nil
}

// SetSource loads url, replacing whatever is playing.  The file starts paused.  Events still queued for the
// replaced file are dropped.
func (e *Element) SetSource(url string) error {
	if err := e.ipc.SetProperty("pause", true); err != nil {
		return err
	}
	e.mapper.expectLoad()
	if _, err := e.ipc.Command("loadfile", url, "replace"); err != nil {
		e.mapper.loadDone()
		return err
	}
	return nil
}

// ClearSource stops playback and returns mpv to idle
func (e *Element) ClearSource() error {
	_, err := e.ipc.Command("stop")
	return err
}

func (e *Element) Play() error {
	return e.ipc.SetProperty("pause", false)
}

func (e *Element) Pause() error {
	return e.ipc.SetProperty("pause", true)
}

func (e *Element) Seek(seconds float64) error {
	_, err := e.ipc.Command("seek", seconds, "absolute")
	return err
}

// SetVolume takes a volume in [0, 1].  mpv's own scale is 0 to 100.
func (e *Element) SetVolume(volume float64) error {
	return e.ipc.SetProperty("volume", volume*100)
}

func (e *Element) SetMuted(muted bool) error {
	return e.ipc.SetProperty("mute", muted)
}

func (e *Element) SetPlaybackRate(rate float64) error {
	return e.ipc.SetProperty("speed", rate)
}

// SupportsNativeHLS is always true, mpv plays HLS manifests itself
func (e *Element) SupportsNativeHLS() bool {
	return true
}

// SetFullscreen toggles the mpv window's fullscreen state
func (e *Element) SetFullscreen(fullscreen bool) error {
	return e.ipc.SetProperty("fullscreen", fullscreen)
}

// AddSubtitle loads an external subtitle file into the current file.  mpv selects a track by its own language
// preferences.
func (e *Element) AddSubtitle(url, lang string) error {
	_, err := e.ipc.Command("sub-add", url, "auto", lang, lang)
	return err
}

// Subscribe registers fn for media events.  Events are delivered from a dedicated goroutine, never from inside a
// command.
func (e *Element) Subscribe(fn func(player.MediaEvent)) func() {
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

// Exited is closed when the mpv process exits
func (e *Element) Exited() <-chan struct{} {
	return e.exited
}

// Close quits mpv and removes its socket
func (e *Element) Close() {
	e.mu.Lock()
	e.closing = true
	e.mu.Unlock()

	if _, err := e.ipc.Command("quit"); err != nil {
		log.Debug("mpv quit command failed", "error", err)
	}
	_ = e.ipc.Close()

	if e.cmd != nil {
		select {
		case <-e.exited:
		case <-time.After(2 * time.Second):
			log.Warn("mpv did not quit, killing it")
			_ = e.cmd.Process.Kill()
		}
		removeSocket(e.opts.SocketPath)
	}
}

// readEvents translates mpv events and queues them for dispatch
func (e *Element) readEvents() {
	for msg := range e.ipc.Events() {
		log.Trace("Received mpv event", "event", msg.Event, "name", msg.Name)
		for _, ev := range e.mapper.translate(msg) {
			e.dispatch <- ev
		}
	}

	e.mu.Lock()
	closing := e.closing
	e.mu.Unlock()
	if !closing {
		log.Error("Lost connection to mpv")
		e.dispatch <- player.MediaEvent{Type: player.MediaError, Err: fmt.Errorf("%w: %w", player.ErrElementGone, ErrClosed)}
	}
	close(e.dispatch)
}

// dispatchEvents hands queued events to subscribers.  Running it apart from readEvents lets a subscriber send
// commands without blocking the replies it waits for.
func (e *Element) dispatchEvents() {
	for ev := range e.dispatch {
		e.mu.Lock()
		subs := make([]func(player.MediaEvent), 0, len(e.subs))
		for _, fn := range e.subs {
			subs = append(subs, fn)
		}
		e.mu.Unlock()

		for _, fn := range subs {
			fn(ev)
		}
	}
}
