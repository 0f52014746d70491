package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"midiroll/library"
	"midiroll/playback"
	"midiroll/timeline"
)

var (
	playGen   genFlags
	playLoops int
)

var playCmd = &cobra.Command{
	Use:   "play [file.mid]",
	Short: "Loop a MIDI file, the latest history entry or a fresh melody",
	Long: `Play a timeline on a loop until interrupted.

The argument may be a .mid path or "last" for the most recent history
entry. Without an argument a melody is generated from the flags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := playTimeline(cmd.Context(), args)
		if err != nil {
			return err
		}

		engine, cleanup, err := newEngine(cfg)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer cleanup()

		return playLoop(cmd.Context(), os.Stdout, newController(cfg, engine), engine, tl, playLoops)
	},
}

func init() {
	playGen.register(playCmd)
	playCmd.Flags().IntVar(&playLoops, "loops", 0, "stop after this many passes (0 = until interrupted)")
	rootCmd.AddCommand(playCmd)
}

func playTimeline(ctx context.Context, args []string) (*timeline.Timeline, error) {
	switch {
	case len(args) == 1 && args[0] == "last":
		dir, err := library.DefaultDir()
		if err != nil {
			return nil, err
		}
		return library.Open(dir).Load("")
	case len(args) == 1:
		return timeline.ReadFile(args[0])
	}
	s, err := playGen.settings(cfg)
	if err != nil {
		return nil, err
	}
	tl, _, err := playGen.build(ctx, s)
	return tl, err
}

// passCounter is implemented by engines that know how often they wrapped
type passCounter interface {
	Loops() int
}

// playLoop runs audio and the playhead together, printing the position
// until ctx ends, the engine goes quiet or loops passes are done. When the
// engine counts its own passes both counts are shown, so drift between the
// audio clock and the playhead is visible.
func playLoop(ctx context.Context, w io.Writer, c *playback.Controller, engine playback.Engine, tl *timeline.Timeline, loops int) error {
	frames := make(chan playback.Frame, 1)
	vs := playback.NewVisualSync(frames, playback.WithSyncPixelsPerSecond(float64(cfg.Render.PixelsPerSecond)))

	if err := c.Start(ctx, tl); err != nil {
		return err
	}
	started := time.Now()
	if sess, ok := c.Session(); ok {
		started = sess.StartedAt
	}
	vs.Start(tl, started)
	fmt.Fprintf(w, "playing %s (ctrl+c to stop)\n", tl)
	counter, _ := engine.(passCounter)

	idle := time.NewTicker(cfg.Audio.PollInterval())
	defer idle.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case f := <-frames:
			fmt.Fprintf(w, "\rpass %d", f.Loop+1)
			if counter != nil {
				fmt.Fprintf(w, "  audio %d", counter.Loops()+1)
			}
			fmt.Fprintf(w, "  %6.2fs / %.2fs", f.Elapsed.Seconds(), tl.Duration())
			if loops > 0 && f.Loop >= loops {
				break loop
			}
		case <-idle.C:
			if !c.Playing() {
				break loop
			}
		}
	}
	fmt.Fprintln(w)

	vs.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Audio.StopTimeout()+time.Second)
	defer cancel()
	return c.Stop(stopCtx)
}
