package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midiroll/melody"
	"midiroll/timeline"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func waitFrame(t *testing.T, ch chan Frame, ok func(Frame) bool) Frame {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case f := <-ch:
			if ok(f) {
				return f
			}
		case <-deadline:
			t.Fatal("no matching frame")
		}
	}
}

func TestVisualSyncTracksElapsed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ch := make(chan Frame, 1)
	v := NewVisualSync(ch, WithClock(clock.Now), WithFrameInterval(time.Millisecond))
	tl := melody.Generate(120, "C major", 4, melody.WithSeed(1)) // 2 s

	v.Start(tl, clock.Now())
	defer v.Stop()

	clock.Advance(500 * time.Millisecond)
	f := waitFrame(t, ch, func(f Frame) bool { return f.Elapsed == 500*time.Millisecond })
	assert.Equal(t, 50.0, f.X)
	assert.Equal(t, 0, f.Loop)
	assert.Equal(t, 500*time.Millisecond, v.Position())
}

func TestVisualSyncLoopResetsToZero(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ch := make(chan Frame, 1)
	v := NewVisualSync(ch, WithClock(clock.Now), WithFrameInterval(time.Millisecond))
	tl := melody.Generate(120, "C major", 2, melody.WithSeed(1)) // 1 s

	v.Start(tl, clock.Now())
	defer v.Stop()

	clock.Advance(1100 * time.Millisecond)
	f := waitFrame(t, ch, func(f Frame) bool { return f.Loop == 1 })
	assert.Equal(t, time.Duration(0), f.Elapsed)

	clock.Advance(300 * time.Millisecond)
	f = waitFrame(t, ch, func(f Frame) bool { return f.Elapsed == 300*time.Millisecond })
	assert.Equal(t, 1, f.Loop)
	assert.Equal(t, 30.0, f.X)
}

func TestVisualSyncKeepsOnlyNewestFrame(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ch := make(chan Frame, 1)
	v := NewVisualSync(ch, WithClock(clock.Now), WithFrameInterval(time.Millisecond))
	tl := melody.Generate(120, "C major", 20, melody.WithSeed(1))

	v.Start(tl, clock.Now())
	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	v.Stop()

	require.Len(t, ch, 1)
	f := <-ch
	assert.Equal(t, time.Second, f.Elapsed)
	assert.False(t, v.Running())
}

func TestVisualSyncIgnoresEmptyTimeline(t *testing.T) {
	ch := make(chan Frame, 1)
	v := NewVisualSync(ch)
	v.Start(&timeline.Timeline{Tempo: 120}, time.Now())
	assert.False(t, v.Running())
	v.Stop()
}

func TestVisualSyncRestart(t *testing.T) {
	ch := make(chan Frame, 1)
	v := NewVisualSync(ch, WithFrameInterval(time.Millisecond))
	tl := melody.Generate(120, "C major", 4, melody.WithSeed(1))

	v.Start(tl, time.Now())
	v.Start(tl, time.Now())
	assert.True(t, v.Running())
	v.Stop()
	v.Stop()
	assert.False(t, v.Running())
}
