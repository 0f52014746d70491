package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"midiroll/library"
)

func openHistory() (*library.Library, error) {
	dir, err := library.DefaultDir()
	if err != nil {
		return nil, err
	}
	return library.Open(dir), nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List generated melodies, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openHistory()
		if err != nil {
			return err
		}
		saves, err := lib.ListSaves()
		if err != nil {
			return err
		}
		if len(saves) == 0 {
			fmt.Printf("no history in %s\n", lib.Dir)
			return nil
		}
		for _, s := range saves {
			line := fmt.Sprintf("%-40s %s", s.Filename, s.Timestamp.Format("Jan 2 15:04"))
			if m := s.Meta; m != nil {
				line += fmt.Sprintf("  %-6s %3d bpm  %-9s %2d notes", m.Source, m.Tempo, m.Key, m.Notes)
				if m.Seed != 0 {
					line += fmt.Sprintf("  seed %d", m.Seed)
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <file>...",
	Short: "Delete history entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openHistory()
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := lib.Delete(name); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", name)
		}
		return nil
	},
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename <file> <name>",
	Short: "Give a history entry a name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openHistory()
		if err != nil {
			return err
		}
		renamed, err := lib.Rename(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(renamed)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file> <dest.mid>",
	Short: "Copy a history entry out as a MIDI file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openHistory()
		if err != nil {
			return err
		}
		tl, err := lib.Load(args[0])
		if err != nil {
			return err
		}
		return tl.WriteFile(args[1])
	},
}

func init() {
	historyCmd.AddCommand(historyRmCmd, historyRenameCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
