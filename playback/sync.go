package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"midiroll/debug"
	"midiroll/timeline"
)

// FrameRate is how often the playhead is recomputed
const FrameRate = 30

// Frame is one playhead update for the UI
type Frame struct {
	Elapsed time.Duration
	X       float64 // canvas pixels
	Loop    int     // visual loops completed
}

// VisualSync animates the playhead against the wall clock. Frames go out
// on a channel the UI drains; when the UI falls behind, only the newest
// frame is kept.
type VisualSync struct {
	out      chan Frame
	interval time.Duration
	pps      float64
	now      func() time.Time

	position atomic.Int64 // elapsed ns, written only by the run loop

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SyncOption func(*VisualSync)

func WithFrameInterval(d time.Duration) SyncOption {
	return func(v *VisualSync) {
		if d > 0 {
			v.interval = d
		}
	}
}

func WithSyncPixelsPerSecond(pps float64) SyncOption {
	return func(v *VisualSync) {
		if pps > 0 {
			v.pps = pps
		}
	}
}

func WithClock(now func() time.Time) SyncOption {
	return func(v *VisualSync) {
		v.now = now
	}
}

// NewVisualSync sends frames on out, which should have a buffer of 1
func NewVisualSync(out chan Frame, opts ...SyncOption) *VisualSync {
	v := &VisualSync{
		out:      out,
		interval: time.Second / FrameRate,
		pps:      100,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start animates tl from startedAt, replacing any running animation
func (v *VisualSync) Start(tl *timeline.Timeline, startedAt time.Time) {
	v.Stop()

	dur := time.Duration(tl.Duration() * float64(time.Second))
	if dur <= 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.done = make(chan struct{})
	v.position.Store(0)
	go v.run(ctx, dur, startedAt, v.done)
}

// Stop ends the animation and waits for the loop to exit
func (v *VisualSync) Stop() {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether an animation loop is active
func (v *VisualSync) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cancel != nil
}

// Position is the elapsed time within the current visual loop
func (v *VisualSync) Position() time.Duration {
	return time.Duration(v.position.Load())
}

func (v *VisualSync) run(ctx context.Context, dur time.Duration, startedAt time.Time, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	loop := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := v.now()
		elapsed := now.Sub(startedAt)
		if elapsed > dur {
			// wall-clock loop boundary, independent of the engine's own loop
			startedAt = now
			elapsed = 0
			loop++
			debug.Log("sync", "visual loop %d", loop)
		}
		v.position.Store(int64(elapsed))

		v.publish(ctx, Frame{
			Elapsed: elapsed,
			X:       elapsed.Seconds() * v.pps,
			Loop:    loop,
		})
		debug.LogEvery(FrameRate*5, "sync", "x=%.0f elapsed=%v", elapsed.Seconds()*v.pps, elapsed)
	}
}

// publish replaces an unread frame rather than blocking the loop
func (v *VisualSync) publish(ctx context.Context, f Frame) {
	if cap(v.out) == 0 {
		select {
		case v.out <- f:
		case <-ctx.Done():
		}
		return
	}
	for {
		select {
		case v.out <- f:
			return
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-v.out:
		default:
		}
	}
}
