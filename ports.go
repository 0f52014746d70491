package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"midiroll/midi"
)

var portsWatch bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports for the port backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer midi.CloseDriver()

		if portsWatch {
			fmt.Println("watching output ports (ctrl+c to stop)")
			w := midi.NewPortWatcher()
			go w.Run(cmd.Context())
			for ev := range w.Events() {
				fmt.Printf("%s: %s\n", ev.Type, ev.Name)
			}
			return nil
		}

		ports, err := midi.ListPorts()
		if err != nil {
			return err
		}
		fmt.Println("outputs:")
		for i, name := range ports.Out {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("inputs:")
		for i, name := range ports.In {
			fmt.Printf("  %d: %s\n", i, name)
		}
		if cfg.Audio.PortName != "" {
			fmt.Printf("configured port: %q\n", cfg.Audio.PortName)
		}
		return nil
	},
}

func init() {
	portsCmd.Flags().BoolVar(&portsWatch, "watch", false, "report ports as they come and go")
	rootCmd.AddCommand(portsCmd)
}
