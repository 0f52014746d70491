package midi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"midiroll/debug"
	"midiroll/timeline"
)

// PortEngine plays timelines on a MIDI output port
type PortEngine struct {
	send func(gomidi.Message) error
	now  func() time.Time

	playing atomic.Bool

	mu     sync.Mutex
	sched  Schedule
	loaded bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPortEngine opens out for sending
func NewPortEngine(out drivers.Out) (*PortEngine, error) {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", out, err)
	}
	debug.Log("midi", "output %s", out)
	return newPortEngine(send), nil
}

func newPortEngine(send func(gomidi.Message) error) *PortEngine {
	return &PortEngine{send: send, now: time.Now}
}

func (e *PortEngine) Load(path string) error {
	tl, err := timeline.ReadFile(path)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched = BuildSchedule(tl)
	e.loaded = true
	return nil
}

func (e *PortEngine) Play(loop bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return errors.New("nothing loaded")
	}
	if e.sched.Length <= 0 {
		return errors.New("empty schedule")
	}
	e.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.playing.Store(true)
	go e.run(ctx, e.sched, loop, e.done)
	return nil
}

func (e *PortEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	return nil
}

func (e *PortEngine) Busy() bool {
	return e.playing.Load()
}

func (e *PortEngine) stopLocked() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.playing.Store(false)
}

func (e *PortEngine) run(ctx context.Context, s Schedule, loop bool, done chan struct{}) {
	defer close(done)
	defer e.silence(s)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for pass := 0; ; pass++ {
		start := e.now()
		for _, ev := range s.Events {
			if !e.waitUntil(ctx, timer, start.Add(ev.At)) {
				return
			}
			if err := e.send(ev.Msg); err != nil {
				debug.LogEvery(100, "midi", "send: %v", err)
			}
		}
		if !e.waitUntil(ctx, timer, start.Add(s.Length)) {
			return
		}
		if !loop {
			e.playing.Store(false)
			return
		}
		debug.Log("midi", "loop %d", pass+1)
	}
}

// waitUntil blocks until t or cancellation; false means cancelled
func (e *PortEngine) waitUntil(ctx context.Context, timer *time.Timer, t time.Time) bool {
	d := t.Sub(e.now())
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer.Reset(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}

func (e *PortEngine) silence(s Schedule) {
	for _, msg := range s.AllNotesOff() {
		e.send(msg)
	}
}
