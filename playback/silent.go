package playback

import (
	"errors"
	"sync"
	"time"

	"midiroll/debug"
	"midiroll/timeline"
)

// SilentEngine produces no sound. It reads the file it is given and keeps
// time against the wall clock, so it behaves like a real engine for the
// controller and the UI.
type SilentEngine struct {
	mu       sync.Mutex
	duration time.Duration
	loop     bool
	playing  bool
	started  time.Time
	now      func() time.Time
}

func NewSilentEngine() *SilentEngine {
	return &SilentEngine{now: time.Now}
}

func (e *SilentEngine) Load(path string) error {
	tl, err := timeline.ReadFile(path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = time.Duration(tl.Duration() * float64(time.Second))
	e.playing = false
	return nil
}

func (e *SilentEngine) Play(loop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.duration <= 0 {
		return errors.New("nothing loaded")
	}
	e.loop = loop
	e.playing = true
	e.started = e.now()
	debug.Log("silent", "playing %v loop=%v", e.duration, loop)
	return nil
}

func (e *SilentEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	return nil
}

func (e *SilentEngine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return false
	}
	if e.loop {
		return true
	}
	return e.now().Sub(e.started) < e.duration
}

// Loops reports how many times playback has wrapped
func (e *SilentEngine) Loops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing || e.duration <= 0 {
		return 0
	}
	return int(e.now().Sub(e.started) / e.duration)
}
