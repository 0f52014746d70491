package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sqweek/dialog"

	"midiroll/generative"
	"midiroll/midi"
	"midiroll/playback"
	"midiroll/timeline"
)

// FrameMsg carries a playhead update from the visual sync loop
type FrameMsg playback.Frame

// PortEventMsg reports a MIDI output port appearing or disappearing
type PortEventMsg midi.PortEvent

type playbackMsg struct {
	tl  *timeline.Timeline
	err error
}

type stoppedMsg struct {
	err error
}

type generatedMsg struct {
	tl     *timeline.Timeline
	key    string
	tempo  int
	bars   int
	source string
	err    error
}

type fileMsg struct {
	path string
	save bool
	err  error
}

func ListenForFrames(frames chan playback.Frame) tea.Cmd {
	return func() tea.Msg {
		return FrameMsg(<-frames)
	}
}

func ListenForPorts(w *midi.PortWatcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return PortEventMsg(ev)
	}
}

// startPlayback restarts playback of tl off the UI goroutine; stopping a
// previous session can take up to the stop timeout
func startPlayback(ctx context.Context, c *playback.Controller, tl *timeline.Timeline, restart bool) tea.Cmd {
	return func() tea.Msg {
		if restart {
			if err := c.Stop(ctx); err != nil {
				return playbackMsg{tl: tl, err: err}
			}
		}
		return playbackMsg{tl: tl, err: c.Start(ctx, tl)}
	}
}

func stopPlayback(ctx context.Context, c *playback.Controller) tea.Cmd {
	return func() tea.Msg {
		return stoppedMsg{err: c.Stop(ctx)}
	}
}

func generateWithModel(ctx context.Context, s generative.Scorer, key string, tempo, bars int) tea.Cmd {
	return func() tea.Msg {
		tl, err := generative.Generate(ctx, s, generative.EventConverter{}, nil,
			generative.DefaultPolicy(), generative.DefaultMaxLen, float64(tempo))
		return generatedMsg{tl: tl, key: key, tempo: tempo, bars: bars, source: "model", err: err}
	}
}

func chooseFile(save bool, startDir string) tea.Cmd {
	return func() tea.Msg {
		b := dialog.File().
			Filter("MIDI files (*.mid, *.midi)", "mid", "midi").
			SetStartDir(startDir)
		var (
			path string
			err  error
		)
		if save {
			path, err = b.Title("Save MIDI file").Save()
		} else {
			path, err = b.Title("Open MIDI file").Load()
		}
		if err == nil && path == "" {
			err = dialog.ErrCancelled
		}
		return fileMsg{path: path, save: save, err: err}
	}
}

func cancelled(err error) bool {
	return errors.Is(err, dialog.ErrCancelled)
}

func startDir(last string) string {
	if last != "" {
		if st, err := os.Stat(last); err == nil && !st.IsDir() {
			return filepath.Dir(last)
		}
	}
	wd, _ := os.Getwd()
	return wd
}

func stopContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d+time.Second)
}
