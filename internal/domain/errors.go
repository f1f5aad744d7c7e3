package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no provider knows the requested title
	ErrNotFound = errors.New("title not found on any provider")
	// ErrProviderUnavailable marks a network, HTTP or decoding failure talking to a single provider
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrSourceUnavailable is returned when the provider of an episode returned no usable sources for it
	ErrSourceUnavailable = errors.New("no usable source for episode")
	// ErrNotPlayable is returned when attempting to resolve a placeholder episode
	ErrNotPlayable = errors.New("episode is not playable")
	// ErrPlaybackFatal is the class of every unrecoverable playback failure
	ErrPlaybackFatal = errors.New("playback failed")
	// ErrStaleRequest is returned when a request completed after the selection it belonged to was replaced
	ErrStaleRequest = errors.New("request superseded by a newer selection")
	// ErrAutoplayBlocked is returned by a media element that refuses to start playback without user interaction
	ErrAutoplayBlocked = errors.New("autoplay blocked")
)

// ProviderError wraps a failure from a single provider call
type ProviderError struct {
	Provider ProviderTag
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrProviderUnavailable
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// PlaybackErrorClass is the broad category of a playback failure
type PlaybackErrorClass string

const (
	PlaybackErrorNetwork PlaybackErrorClass = "network"
	PlaybackErrorMedia   PlaybackErrorClass = "media"
	PlaybackErrorOther   PlaybackErrorClass = "other"
)

// PlaybackError is a fatal playback failure with a human-readable cause
type PlaybackError struct {
	Class  PlaybackErrorClass
	Reason string
	Err    error
}

func (e *PlaybackError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s playback error: %s: %v", e.Class, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s playback error: %s", e.Class, e.Reason)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Is makes every PlaybackError match ErrPlaybackFatal
func (e *PlaybackError) Is(target error) bool {
	return target == ErrPlaybackFatal
}
