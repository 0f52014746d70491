// Package playback runs a timeline through an audio engine and drives the
// on-screen playhead.
//
// The Controller and VisualSync never talk to each other. Both are started
// from the same *timeline.Timeline and loop on its Duration, the controller
// through the engine's own looping and VisualSync by wall clock.
package playback

import (
	"errors"
	"fmt"
)

// Engine is the audio back end. Load and Play are called once per session;
// Busy reports whether audio is still being produced.
type Engine interface {
	Load(path string) error
	Play(loop bool) error
	Stop() error
	Busy() bool
}

var (
	// ErrEngine wraps failures reported by an Engine
	ErrEngine = errors.New("audio engine")
	// ErrEngineStalled means the engine did not stop or go quiet before Stop gave up
	ErrEngineStalled = errors.New("audio engine did not stop in time")
)

// RenderError means a timeline could not be turned into playable audio
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: %s: %v", e.Reason, e.Err)
	}
	return "render: " + e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }
