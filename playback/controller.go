package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"midiroll/debug"
	"midiroll/timeline"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultStopTimeout  = 2 * time.Second
)

type State int32

const (
	Idle State = iota
	Playing
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Session is a snapshot of the current playback
type Session struct {
	ID        uuid.UUID
	Timeline  *timeline.Timeline
	StartedAt time.Time
	Path      string // temporary .mid handed to the engine
}

type session struct {
	Session
	cancel  context.CancelFunc
	ctx     context.Context
	done    chan struct{}
	release sync.Once
}

// releaseResource deletes the temp file; safe to call more than once
func (s *session) releaseResource() {
	s.release.Do(func() {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			debug.Log("playback", "removing %s: %v", s.Path, err)
			return
		}
		debug.Log("playback", "released %s", filepath.Base(s.Path))
	})
}

// discard removes a session file that never reached a session
func discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		debug.Log("playback", "removing %s: %v", path, err)
	}
}

// Controller owns at most one playback session at a time
type Controller struct {
	engine       Engine
	pollInterval time.Duration
	stopTimeout  time.Duration
	tempDir      string
	now          func() time.Time

	state atomic.Int32
	mu    sync.Mutex // serializes Start/Stop
	sess  *session
}

type Option func(*Controller)

func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.stopTimeout = d
		}
	}
}

// WithTempDir sets where session files are written (default os.TempDir)
func WithTempDir(dir string) Option {
	return func(c *Controller) {
		c.tempDir = dir
	}
}

func NewController(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:       engine,
		pollInterval: DefaultPollInterval,
		stopTimeout:  DefaultStopTimeout,
		tempDir:      os.TempDir(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) Playing() bool {
	return c.State() == Playing
}

// Session returns the live session, if any
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.State() != Playing {
		return Session{}, false
	}
	return c.sess.Session, true
}

// Start plays tl on a loop. Starting the timeline that is already playing
// does nothing; any other session is stopped first.
func (c *Controller) Start(ctx context.Context, tl *timeline.Timeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Playing && c.sess != nil && c.sess.Timeline == tl {
		return nil
	}
	if c.sess != nil {
		if err := c.stopLocked(ctx); err != nil {
			debug.Log("playback", "stopping previous session: %v", err)
		}
	}

	if tl.Empty() {
		return &RenderError{Reason: "timeline has no notes"}
	}
	if err := tl.Validate(); err != nil {
		return &RenderError{Reason: "invalid timeline", Err: err}
	}

	id := uuid.New()
	path := filepath.Join(c.tempDir, "midiroll-"+id.String()+".mid")
	if err := tl.WriteFile(path); err != nil {
		return &RenderError{Reason: "writing midi", Err: err}
	}
	if err := c.engine.Load(path); err != nil {
		discard(path)
		return fmt.Errorf("%w: load: %w", ErrEngine, err)
	}
	if err := c.engine.Play(true); err != nil {
		discard(path)
		return fmt.Errorf("%w: play: %w", ErrEngine, err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &session{
		Session: Session{ID: id, Timeline: tl, StartedAt: c.now(), Path: path},
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.sess = s
	c.state.Store(int32(Playing))
	go c.watch(s)

	debug.Log("playback", "session %s started: %s", id, tl)
	return nil
}

// watch runs until the session is cancelled or the engine goes quiet on
// its own, then releases the session file.
func (c *Controller) watch(s *session) {
	defer close(s.done)
	defer s.releaseResource()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.ctx.Err() != nil {
				return
			}
			if !c.engine.Busy() {
				if c.state.CompareAndSwap(int32(Playing), int32(Idle)) {
					debug.Log("playback", "session %s ended by engine", s.ID)
				}
				return
			}
		}
	}
}

// Stop halts playback and waits, bounded by the stop timeout, for the
// engine to go quiet. Stopping while idle is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) error {
	s := c.sess
	if s == nil {
		return nil
	}
	c.sess = nil
	c.state.Store(int32(Stopping))
	defer c.state.Store(int32(Idle))
	defer s.releaseResource()

	s.cancel()
	wctx, cancel := context.WithTimeout(ctx, c.stopTimeout)
	defer cancel()

	// engine.Stop may block on a hung device; it gets the same deadline
	stopped := make(chan error, 1)
	go func() { stopped <- c.engine.Stop() }()

	var errs []error
	expired := false
	select {
	case err := <-stopped:
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: stop: %w", ErrEngine, err))
		}
		if !c.waitQuiet(wctx) {
			expired = true
			break
		}
		select {
		case <-s.done:
		case <-wctx.Done():
			expired = true
		}
	case <-wctx.Done():
		expired = true
		debug.Log("playback", "session %s: engine stop did not return", s.ID)
	}

	if expired {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, ErrEngineStalled)
		}
	}

	debug.Log("playback", "session %s stopped", s.ID)
	return errors.Join(errs...)
}

// waitQuiet polls until the engine is idle; false means ctx ran out first
func (c *Controller) waitQuiet(ctx context.Context) bool {
	if !c.engine.Busy() {
		return true
	}
	ticker := time.NewTicker(min(c.pollInterval, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !c.engine.Busy() {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}
