// Package hls loads HLS manifests and drives a media element with the selected variant
package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PizzaHomicide/anistream/internal/domain"
	"github.com/PizzaHomicide/anistream/internal/log"
	"github.com/PizzaHomicide/anistream/internal/player"
	"github.com/avast/retry-go/v4"
	"github.com/grafov/m3u8"
)

const (
	// maxPlaylistSize bounds the bytes read from any playlist response
	maxPlaylistSize = 4 << 20
	// fragmentProbeSize is how much of the first fragment is read to check that it is reachable
	fragmentProbeSize = 64 << 10
)

var _ player.AdaptiveClient = (*Client)(nil)

// ErrRecoveryTimeout is reported when the element does not reload the variant during media recovery
var ErrRecoveryTimeout = errors.New("media did not reload in time")

// StatusError is a non-2xx response from the stream server
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Client implements player.AdaptiveClient on top of a media element that can play HLS media playlists.  It picks
// the variant itself, checks that the stream is reachable before handing it to the element, and keeps live
// playlists fresh.
type Client struct {
	policy     player.LoaderPolicy
	httpClient *http.Client
	// refreshInterval overrides the live refresh period, which is otherwise the target duration
	refreshInterval time.Duration

	mu          sync.Mutex
	handler     func(player.AdaptiveEvent)
	source      string
	element     player.MediaElement
	unsubscribe func()
	variant     *Variant
	position    float64
	playing     bool
	metadata    chan struct{}
	cancel      context.CancelFunc
	destroyed   bool

	// attachMu is held while the element's source is changed so Destroy can wait for it
	attachMu sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for playlists and fragments
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client bound by policy
func New(policy player.LoaderPolicy, opts ...Option) *Client {
	c := &Client{
		policy:     policy,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFactory returns a factory creating one client per playback session
func NewFactory(opts ...Option) player.AdaptiveClientFactory {
	return func(policy player.LoaderPolicy) player.AdaptiveClient {
		return New(policy, opts...)
	}
}

func (c *Client) OnEvent(fn func(player.AdaptiveEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// LoadSource sets the manifest url.  Loading starts once an element is attached.
func (c *Client) LoadSource(url string) {
	c.mu.Lock()
	c.source = url
	ready := c.element != nil
	c.mu.Unlock()

	if ready {
		c.restart(c.load)
	}
}

// AttachMedia binds the element.  Loading starts once a source is set.
func (c *Client) AttachMedia(element player.MediaElement) {
	unsubscribe := element.Subscribe(c.handleMediaEvent)

	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.element = element
	c.unsubscribe = unsubscribe
	ready := c.source != ""
	c.mu.Unlock()

	if ready {
		c.restart(c.load)
	}
}

// StartLoad loads the manifest again from scratch
func (c *Client) StartLoad() {
	c.restart(c.load)
}

// RecoverMediaError hands the current variant to the element again and resumes from the last known position.
// Without a variant it falls back to a full load.
func (c *Client) RecoverMediaError() {
	c.restart(c.recover)
}

// Destroy stops loading and detaches from the element.  An event already being delivered when Destroy is called can
// still arrive, but the element's source is never changed after Destroy returns.
func (c *Client) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	// Wait out an attach in progress
	c.attachMu.Lock()
	c.attachMu.Unlock()
}

// restart cancels the running loader and starts fn on a new goroutine
func (c *Client) restart(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.source == "" || c.element == nil {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go fn(ctx)
}

// load fetches the manifest, picks a variant, checks the first fragment and attaches the variant
func (c *Client) load(ctx context.Context) {
	c.mu.Lock()
	source := c.source
	c.mu.Unlock()

	logger := log.With("manifest", source)
	logger.Debug("Loading manifest")

	master, media, err := c.fetchPlaylist(ctx, source, c.policy.ManifestTimeout, c.policy.ManifestMaxRetries)
	if err != nil {
		c.fail(ctx, err, "manifest load failed")
		return
	}

	variant := Variant{URL: source}
	if master != nil {
		vs, err := variants(source, master)
		if err != nil {
			c.fail(ctx, err, "invalid variant")
			return
		}
		picked, ok := pickVariant(vs, c.policy.MaxBitrate)
		if !ok {
			c.fail(ctx, ErrNoSegments, "master playlist has no variants")
			return
		}
		variant = picked
		logger.Info("Selected variant", "url", variant.URL, "bandwidth", variant.Bandwidth, "resolution", variant.Resolution)

		_, media, err = c.fetchPlaylist(ctx, variant.URL, c.policy.ManifestTimeout, c.policy.ManifestMaxRetries)
		if err != nil {
			c.fail(ctx, err, "variant load failed")
			return
		}
		if media == nil {
			c.fail(ctx, &ParseError{URL: variant.URL, Err: errors.New("variant is not a media playlist")}, "variant load failed")
			return
		}
	}

	segments, err := segmentURLs(variant.URL, media)
	if err != nil {
		c.fail(ctx, err, "empty media playlist")
		return
	}
	if err := c.probeFragment(ctx, segments[0]); err != nil {
		c.fail(ctx, err, "fragment load failed")
		return
	}

	if err := c.attach(ctx, variant, 0); err != nil {
		c.fail(ctx, err, "could not attach variant")
		return
	}
	c.emit(ctx, player.AdaptiveEvent{Type: player.AdaptiveManifestParsed, Level: variant.Label()})

	if !media.Closed {
		c.refreshLive(ctx, variant.URL, media.TargetDuration)
	}
}

// recover re-attaches the last variant at the last known position
func (c *Client) recover(ctx context.Context) {
	c.mu.Lock()
	variant := c.variant
	position := c.position
	playing := c.playing
	element := c.element
	c.mu.Unlock()

	if variant == nil {
		c.load(ctx)
		return
	}

	timeout := c.policy.FragmentTimeout
	if timeout <= 0 {
		timeout = player.DefaultLoaderPolicy().FragmentTimeout
	}

	log.Info("Recovering media error", "url", variant.URL, "position", position)
	metadata := c.expectMetadata()
	if err := c.attach(ctx, *variant, position); err != nil {
		c.fail(ctx, err, "could not re-attach variant")
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-metadata:
	case <-time.After(timeout):
		c.fail(ctx, ErrRecoveryTimeout, "media did not reload")
		return
	}

	if position > 0 {
		if err := element.Seek(position); err != nil {
			log.Warn("Failed to restore position after recovery", "position", position, "error", err)
		}
	}
	if playing {
		if err := element.Play(); err != nil {
			log.Warn("Failed to resume playback after recovery", "error", err)
		}
	}
}

// attach points the element at the variant unless the loader was cancelled
func (c *Client) attach(ctx context.Context, variant Variant, position float64) error {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	element := c.element
	c.variant = &variant
	c.position = position
	c.mu.Unlock()

	return element.SetSource(variant.URL)
}

// refreshLive reloads a live playlist every target duration.  Failed refreshes are reported as non-fatal until the
// fragment retry ceiling is reached.
func (c *Client) refreshLive(ctx context.Context, url string, targetDuration float64) {
	interval := c.refreshInterval
	if interval <= 0 {
		interval = time.Duration(targetDuration * float64(time.Second))
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, _, err := c.fetchPlaylist(ctx, url, c.policy.FragmentTimeout, 0)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return
		}

		failures++
		if failures > c.policy.FragmentMaxRetries {
			c.fail(ctx, err, "live playlist refresh failed")
			return
		}
		c.emit(ctx, player.AdaptiveEvent{
			Type:    player.AdaptiveError,
			Class:   domain.PlaybackErrorNetwork,
			Fatal:   false,
			Details: "live playlist refresh failed",
			Err:     err,
		})
	}
}

// fetchPlaylist downloads and decodes a playlist, retrying network failures up to maxRetries times
func (c *Client) fetchPlaylist(ctx context.Context, url string, timeout time.Duration, maxRetries int) (*m3u8.MasterPlaylist, *m3u8.MediaPlaylist, error) {
	body, err := c.fetch(ctx, url, timeout, maxRetries, maxPlaylistSize)
	if err != nil {
		return nil, nil, err
	}
	return decodePlaylist(url, body)
}

// probeFragment reads the start of a fragment to check that it can be loaded
func (c *Client) probeFragment(ctx context.Context, url string) error {
	_, err := c.fetch(ctx, url, c.policy.FragmentTimeout, c.policy.FragmentMaxRetries, fragmentProbeSize)
	return err
}

func (c *Client) fetch(ctx context.Context, url string, timeout time.Duration, maxRetries int, limit int64) ([]byte, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return retry.DoWithData(
		func() ([]byte, error) {
			return c.get(ctx, url, timeout, limit)
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries+1)),
		retry.Delay(c.policy.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("Retrying stream request", "url", url, "attempt", n+1, "error", err)
		}),
	)
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration, limit int64) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// retryable reports whether a request is worth repeating.  Client errors other than timeouts and rate limits are not.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// classify maps a loader failure to the error class the engine recovers by
func classify(err error) domain.PlaybackErrorClass {
	var parseErr *ParseError
	switch {
	case errors.As(err, &parseErr):
		return domain.PlaybackErrorOther
	case errors.Is(err, ErrNoSegments), errors.Is(err, ErrRecoveryTimeout):
		return domain.PlaybackErrorMedia
	default:
		return domain.PlaybackErrorNetwork
	}
}

// fail reports a fatal error unless the loader was cancelled
func (c *Client) fail(ctx context.Context, err error, details string) {
	if ctx.Err() != nil {
		return
	}
	log.Warn("HLS loader error", "details", details, "error", err)
	c.emit(ctx, player.AdaptiveEvent{
		Type:    player.AdaptiveError,
		Class:   classify(err),
		Fatal:   true,
		Details: details,
		Err:     err,
	})
}

func (c *Client) emit(ctx context.Context, ev player.AdaptiveEvent) {
	c.mu.Lock()
	handler := c.handler
	destroyed := c.destroyed
	c.mu.Unlock()

	if destroyed || ctx.Err() != nil || handler == nil {
		return
	}
	handler(ev)
}

// expectMetadata returns a channel closed on the element's next loadedmetadata event
func (c *Client) expectMetadata() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata = make(chan struct{})
	return c.metadata
}

// handleMediaEvent tracks the playback position and state needed to recover
func (c *Client) handleMediaEvent(ev player.MediaEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case player.MediaTimeUpdate:
		c.position = ev.Time
	case player.MediaPlay:
		c.playing = true
	case player.MediaPause, player.MediaEnded:
		c.playing = false
	case player.MediaLoadedMetadata:
		if c.metadata != nil {
			close(c.metadata)
			c.metadata = nil
		}
	}
}
