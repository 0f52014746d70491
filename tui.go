package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"midiroll/config"
	"midiroll/debug"
	"midiroll/library"
	"midiroll/midi"
	"midiroll/playback"
	"midiroll/theme"
	"midiroll/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal piano roll (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(ctx context.Context) error {
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		debug.Log("tui", "palette %s: %v", cfg.UI.Palette, err)
	}
	th := theme.New(palette)

	engine, cleanup, err := newEngine(cfg)
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan playback.Frame, 1)
	deps := tui.Deps{
		Ctx:        ctx,
		Config:     cfg,
		ConfigPath: configPath,
		Controller: newController(cfg, engine),
		Sync:       playback.NewVisualSync(frames, playback.WithSyncPixelsPerSecond(float64(cfg.Render.PixelsPerSecond))),
		Frames:     frames,
		Theme:      th,
	}

	if dir, err := library.DefaultDir(); err == nil {
		deps.Library = library.Open(dir)
	}

	if cfg.Audio.Backend == config.BackendPort || backendFlag == string(config.BackendPort) {
		w := midi.NewPortWatcher()
		go w.Run(ctx)
		deps.Ports = w
	}

	m := tui.NewModel(deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	deps.Sync.Stop()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Audio.StopTimeout())
	defer stopCancel()
	return deps.Controller.Stop(stopCtx)
}
