package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"midiroll/timeline"
)

var inspectNotes bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Print what midiroll reads from a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := timeline.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Println(tl)
		lo, hi, ok := tl.PitchRange()
		if ok {
			fmt.Printf("pitch range %d-%d, %.2fs\n", lo, hi, tl.Duration())
		}
		for _, tr := range tl.Tracks {
			fmt.Printf("track %d %q program %d: %d notes\n", tr.ID, tr.Name, tr.Program, len(tr.Notes))
		}
		if inspectNotes {
			spew.Dump(tl)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectNotes, "dump", false, "dump every note")
	rootCmd.AddCommand(inspectCmd)
}
