package main

import (
	"fmt"

	"midiroll/audio"
	"midiroll/config"
	"midiroll/debug"
	"midiroll/midi"
	"midiroll/playback"
)

var backendFlag string

// newEngine builds the audio engine named by the config. The returned
// cleanup releases drivers opened for it.
func newEngine(c *config.Config) (playback.Engine, func(), error) {
	backend := c.Audio.Backend
	if backendFlag != "" {
		backend = config.Backend(backendFlag)
	}
	debug.Log("engine", "backend %s", backend)

	switch backend {
	case config.BackendSilent, "":
		return playback.NewSilentEngine(), func() {}, nil

	case config.BackendSynth:
		e, err := audio.NewSynthEngine(c.Audio.SoundFont, c.Audio.SampleRate)
		if err != nil {
			return nil, nil, err
		}
		return e, func() {}, nil

	case config.BackendPort:
		out, err := midi.FindOut(c.Audio.PortName)
		if err != nil {
			midi.CloseDriver()
			return nil, nil, err
		}
		e, err := midi.NewPortEngine(out)
		if err != nil {
			midi.CloseDriver()
			return nil, nil, err
		}
		return e, midi.CloseDriver, nil
	}
	return nil, nil, fmt.Errorf("unknown audio backend %q (want silent, synth or port)", backend)
}

func newController(c *config.Config, e playback.Engine) *playback.Controller {
	return playback.NewController(e,
		playback.WithPollInterval(c.Audio.PollInterval()),
		playback.WithStopTimeout(c.Audio.StopTimeout()),
	)
}
