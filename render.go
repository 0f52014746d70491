package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"midiroll/pianoroll"
	"midiroll/theme"
	"midiroll/timeline"
)

var (
	renderGen   genFlags
	renderPNG   string
	renderJSON  bool
	renderCols  int
	renderScale float64
)

var renderCmd = &cobra.Command{
	Use:   "render [file.mid]",
	Short: "Draw a piano roll from a MIDI file or a fresh melody",
	Long: `Lay out a timeline as a piano roll.

With a file argument the file is drawn, otherwise a melody is generated
from the flags. The roll is printed as text; --png writes an image and
--json prints the note rectangles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var tl *timeline.Timeline
		if len(args) == 1 {
			var err error
			if tl, err = timeline.ReadFile(args[0]); err != nil {
				return err
			}
		} else {
			s, err := renderGen.settings(cfg)
			if err != nil {
				return err
			}
			if tl, _, err = renderGen.build(cmd.Context(), s); err != nil {
				return err
			}
		}

		l := pianoroll.Render(tl,
			pianoroll.WithRowHeight(cfg.Render.RowHeight),
			pianoroll.WithPixelsPerSecond(float64(cfg.Render.PixelsPerSecond)),
		)

		switch {
		case renderPNG != "":
			palette, err := theme.LoadOrDefault(cfg.UI.Palette)
			if err != nil {
				fmt.Fprintf(os.Stderr, "palette: %v, using default\n", err)
			}
			f, err := os.Create(renderPNG)
			if err != nil {
				return err
			}
			if err := pianoroll.WritePNG(f, l, palette); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%dx%d)\n", renderPNG, l.CanvasWidth, l.CanvasHeight)
		case renderJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(l)
		default:
			printRoll(os.Stdout, l, renderCols, renderScale)
		}
		return nil
	},
}

func init() {
	renderGen.register(renderCmd)
	renderCmd.Flags().StringVar(&renderPNG, "png", "", "write the roll to a PNG file")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the layout as JSON")
	renderCmd.Flags().IntVar(&renderCols, "cols", 100, "text roll width in characters")
	renderCmd.Flags().Float64Var(&renderScale, "px-per-col", 10, "canvas pixels per text column")
	rootCmd.AddCommand(renderCmd)
}

// printRoll draws the layout as plain text, one line per pitch
func printRoll(w io.Writer, l pianoroll.Layout, cols int, pxPerCol float64) {
	if l.Placeholder() {
		fmt.Fprintln(w, "(empty timeline)")
		return
	}
	sym := theme.New(nil).Symbols
	grid := l.Cells(cols, l.Rows(), pxPerCol)
	for r, row := range grid {
		var b strings.Builder
		pitch := l.PitchAt(r)
		fmt.Fprintf(&b, "%-5s", pianoroll.PitchName(pitch))
		for _, c := range row {
			switch {
			case c != pianoroll.NoNote:
				b.WriteRune(sym.Note)
			case pianoroll.IsBlackKey(pitch):
				b.WriteRune(sym.Black)
			default:
				b.WriteRune(sym.Empty)
			}
		}
		fmt.Fprintln(w, b.String())
	}
	fmt.Fprintf(w, "%d notes, %d rows, canvas %dx%d px\n", len(l.Rects), l.Rows(), l.CanvasWidth, l.CanvasHeight)
}
