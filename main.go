package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"midiroll/config"
	"midiroll/debug"
)

var (
	cfg        *config.Config
	configPath string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "midiroll",
	Short: "Piano-roll visualizer and looping player for note sequences",
	Long: `midiroll generates short melodies, draws them as a piano roll and loops
them through a software synth or a MIDI port while a playhead follows along.

Run without a subcommand to open the terminal UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			if err := debug.Enable(debug.DefaultPath()); err != nil {
				return fmt.Errorf("enabling debug log: %w", err)
			}
		}

		var err error
		if configPath == "" {
			configPath, err = config.ConfigPath()
			if err != nil {
				return err
			}
		}
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", configPath, err)
		}
		debug.Dump("config", "loaded "+configPath, cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "write a debug log to "+debug.DefaultPath())
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "audio backend: silent, synth or port (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/midiroll/config.json)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
