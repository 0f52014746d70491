package midi

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"midiroll/timeline"
)

func shortTimeline() *timeline.Timeline {
	return &timeline.Timeline{Tempo: 120, Tracks: []timeline.Track{
		{ID: 0, Program: 5, Notes: []timeline.Note{
			{Pitch: 60, Velocity: 100, Start: 0, End: 0.02},
			{Pitch: 60, Velocity: 90, Start: 0.02, End: 0.04},
		}},
		{ID: 1, Notes: []timeline.Note{{Pitch: 40, Velocity: 0, Start: 0.01, End: 0.03}}},
	}}
}

func TestBuildSchedule(t *testing.T) {
	s := BuildSchedule(shortTimeline())
	assert.Equal(t, 40*time.Millisecond, s.Length)
	assert.Equal(t, []uint8{0, 1}, s.Channels)
	require.Len(t, s.Events, 2+6)

	for i := 1; i < len(s.Events); i++ {
		assert.LessOrEqual(t, s.Events[i-1].At, s.Events[i].At)
	}

	// at 20ms the first note ends before the repeat starts
	var ch, key, vel uint8
	var at20 []gomidi.Message
	for _, ev := range s.Events {
		if ev.At == 20*time.Millisecond {
			at20 = append(at20, ev.Msg)
		}
	}
	require.Len(t, at20, 2)
	assert.True(t, at20[0].GetNoteEnd(&ch, &key))
	assert.True(t, at20[1].GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, uint8(90), vel)

	// zero velocity is bumped so the note-on is not read as a note-off
	for _, ev := range s.Events {
		if ev.Msg.GetNoteOn(&ch, &key, &vel) && key == 40 {
			assert.Equal(t, uint8(1), vel)
		}
	}
	assert.Len(t, s.AllNotesOff(), 2)
}

type recorder struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (r *recorder) send(m gomidi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recorder) count(match func(gomidi.Message) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if match(m) {
			n++
		}
	}
	return n
}

func isNoteOn(m gomidi.Message) bool {
	var ch, key, vel uint8
	return m.GetNoteStart(&ch, &key, &vel)
}

func isAllOff(m gomidi.Message) bool {
	var ch, cc, val uint8
	return m.GetControlChange(&ch, &cc, &val) && cc == 123
}

func loadedEngine(t *testing.T) (*PortEngine, *recorder) {
	path := filepath.Join(t.TempDir(), "short.mid")
	require.NoError(t, shortTimeline().WriteFile(path))
	rec := &recorder{}
	e := newPortEngine(rec.send)
	require.NoError(t, e.Load(path))
	return e, rec
}

func TestPortEnginePlaysOnce(t *testing.T) {
	e, rec := loadedEngine(t)
	require.NoError(t, e.Play(false))
	assert.True(t, e.Busy())

	assert.Eventually(t, func() bool { return !e.Busy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, rec.count(isNoteOn))
	assert.Equal(t, 2, rec.count(isAllOff))
	require.NoError(t, e.Stop())
}

func TestPortEngineLoopsUntilStopped(t *testing.T) {
	e, rec := loadedEngine(t)
	require.NoError(t, e.Play(true))

	assert.Eventually(t, func() bool { return rec.count(isNoteOn) >= 6 }, time.Second, 5*time.Millisecond)
	assert.True(t, e.Busy())

	require.NoError(t, e.Stop())
	assert.False(t, e.Busy())
	assert.Equal(t, 2, rec.count(isAllOff))
	require.NoError(t, e.Stop())
}

func TestPortEngineNeedsLoad(t *testing.T) {
	e := newPortEngine((&recorder{}).send)
	assert.Error(t, e.Play(true))
	assert.Error(t, e.Load(filepath.Join(t.TempDir(), "nope.mid")))
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through Port-0", "FluidSynth virt 128:0"}
	assert.Equal(t, 1, matchPort(names, "fluid"))
	assert.Equal(t, 0, matchPort(names, "THROUGH"))
	assert.Equal(t, -1, matchPort(names, "launchpad"))
}

func TestPortWatcherReportsChanges(t *testing.T) {
	var mu sync.Mutex
	current := []string{"a"}
	w := NewPortWatcher()
	w.pollRate = 5 * time.Millisecond
	w.scan = func() (Ports, error) {
		mu.Lock()
		defer mu.Unlock()
		return Ports{Out: append([]string(nil), current...)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Equal(t, PortEvent{Type: PortConnected, Name: "a"}, <-w.Events())

	mu.Lock()
	current = []string{"b"}
	mu.Unlock()

	got := map[PortEvent]bool{}
	for len(got) < 2 {
		select {
		case ev := <-w.Events():
			got[ev] = true
		case <-time.After(time.Second):
			t.Fatal("no port events")
		}
	}
	assert.True(t, got[PortEvent{Type: PortConnected, Name: "b"}])
	assert.True(t, got[PortEvent{Type: PortDisconnected, Name: "a"}])
}
