package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midiroll/config"
	"midiroll/pianoroll"
	"midiroll/playback"
	"midiroll/timeline"
)

func TestGenFlagsOverlayConfig(t *testing.T) {
	c := config.DefaultConfig()
	f := genFlags{bars: 2, key: "B minor"}
	s, err := f.settings(c)
	require.NoError(t, err)
	assert.Equal(t, config.Settings{Tempo: 120, Key: "B minor", Bars: 2}, s)

	f = genFlags{tempo: -1}
	_, err = f.settings(c)
	assert.Error(t, err)
}

func TestGenFlagsBuild(t *testing.T) {
	s := config.Settings{Tempo: 100, Key: "F major", Bars: 3}

	f := genFlags{seed: 11}
	a, seed, err := f.build(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), seed)
	assert.Equal(t, 12, a.NoteCount())
	b, _, err := f.build(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	f = genFlags{seed: 11, model: true, temperature: 1, topK: 5, strict: true}
	tl, _, err := f.build(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 12, tl.NoteCount())
	assert.Equal(t, "model", f.source())
}

func TestPrintRoll(t *testing.T) {
	f := genFlags{seed: 1}
	tl, _, err := f.build(context.Background(), config.DefaultSettings())
	require.NoError(t, err)

	var out bytes.Buffer
	printRoll(&out, pianoroll.Render(tl), 40, 10)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines[len(lines)-1], "16 notes")
	assert.Contains(t, out.String(), "█")

	out.Reset()
	printRoll(&out, pianoroll.Render(nil), 40, 10)
	assert.Equal(t, "(empty timeline)\n", out.String())
}

func TestNewEngineSelectsBackend(t *testing.T) {
	c := config.DefaultConfig()
	e, cleanup, err := newEngine(c)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &playback.SilentEngine{}, e)

	c.Audio.Backend = config.BackendSynth
	_, _, err = newEngine(c)
	assert.Error(t, err, "synth needs a soundfont")

	c.Audio.Backend = "theremin"
	_, _, err = newEngine(c)
	assert.ErrorContains(t, err, "theremin")
}

func TestPlayLoopStopsAfterLoops(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.Audio.PollIntervalMs = 10
	tl, err := timeline.New(120, timeline.Track{Notes: []timeline.Note{
		{Pitch: 60, Velocity: 100, Start: 0, End: 0.1},
	}})
	require.NoError(t, err)

	engine := playback.NewSilentEngine()
	c := playback.NewController(engine,
		playback.WithTempDir(t.TempDir()),
		playback.WithPollInterval(10*time.Millisecond))
	var out bytes.Buffer
	require.NoError(t, playLoop(context.Background(), &out, c, engine, tl, 2))
	assert.Equal(t, playback.Idle, c.State())
	assert.Contains(t, out.String(), "pass 3")
	assert.Contains(t, out.String(), "audio ")
}
