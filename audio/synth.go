package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"midiroll/debug"
)

const DefaultSampleRate = 44100

// SynthEngine renders MIDI files with a SoundFont and plays them on the
// default output device.
type SynthEngine struct {
	sampleRate int
	font       *meltysynth.SoundFont

	mu     sync.Mutex
	file   *meltysynth.MidiFile
	player *ebitaudio.Player
}

// NewSynthEngine parses the SoundFont at path
func NewSynthEngine(soundFont string, sampleRate int) (*SynthEngine, error) {
	if soundFont == "" {
		return nil, errors.New("no soundfont configured")
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	data, err := os.ReadFile(soundFont)
	if err != nil {
		return nil, fmt.Errorf("loading soundfont: %w", err)
	}
	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing soundfont %s: %w", soundFont, err)
	}
	debug.Log("audio", "soundfont %s loaded at %d Hz", soundFont, sampleRate)
	return &SynthEngine{sampleRate: sampleRate, font: font}, nil
}

func (e *SynthEngine) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mf, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.file = mf
	debug.Log("audio", "loaded %s (%v)", path, mf.GetLength())
	return nil
}

func (e *SynthEngine) Play(loop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return errors.New("nothing loaded")
	}
	e.closePlayer()

	synth, err := meltysynth.NewSynthesizer(e.font, meltysynth.NewSynthesizerSettings(int32(e.sampleRate)))
	if err != nil {
		return fmt.Errorf("creating synthesizer: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(e.file, loop)

	var limit int64
	if !loop {
		limit = int64(e.file.GetLength().Seconds() * float64(e.sampleRate))
	}

	ctx, err := sharedContext(e.sampleRate)
	if err != nil {
		return err
	}
	player, err := ctx.NewPlayerF32(newStream(seq, limit))
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	player.Play()
	e.player = player
	return nil
}

func (e *SynthEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closePlayer()
}

func (e *SynthEngine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player != nil && e.player.IsPlaying()
}

func (e *SynthEngine) closePlayer() error {
	if e.player == nil {
		return nil
	}
	e.player.Pause()
	err := e.player.Close()
	e.player = nil
	return err
}
