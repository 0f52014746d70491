package pianoroll

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"midiroll/melody"
	"midiroll/theme"
)

const labelWidth = 36.0

// WritePNG draws the layout as a PNG: row stripes, C labels in a left
// gutter, and each track's notes in its own palette colour.
func WritePNG(w io.Writer, l Layout, p *theme.Palette) error {
	if p == nil {
		p = theme.DefaultPalette()
	}
	width := float64(l.CanvasWidth) + labelWidth
	height := float64(l.CanvasHeight)
	dc := gg.NewContext(int(width), int(height))

	setRGB(dc, p.Lookup(theme.RoleBG))
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	rh := float64(l.RowHeight)
	if !l.Placeholder() {
		for row := 0; row < l.Rows(); row++ {
			if IsBlackKey(l.PitchAt(row)) {
				setRGB(dc, p.Lookup(theme.RoleSurface))
				dc.DrawRectangle(labelWidth, float64(row)*rh, float64(l.CanvasWidth), rh)
				dc.Fill()
			}
		}
	}

	face, err := labelFace(rh)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	setRGB(dc, p.Lookup(theme.RoleFG))
	for row := 0; row < l.Rows() && !l.Placeholder(); row++ {
		pitch := l.PitchAt(row)
		if pitch%12 == 0 {
			dc.DrawStringAnchored(PitchName(pitch), 2, float64(row)*rh+rh/2, 0, 0.35)
		}
	}

	for _, r := range l.Rects {
		setRGB(dc, TrackColor(p, r.Track))
		dc.DrawRectangle(labelWidth+r.X0, r.Y0, r.X1-r.X0, r.Y1-r.Y0)
		dc.FillPreserve()
		setRGB(dc, p.Lookup(theme.RoleBG))
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// TrackColor picks a track's fill from the upper half of the palette
func TrackColor(p *theme.Palette, track int) theme.RGB {
	steps := []float64{theme.RoleAccent, theme.RoleSuccess, theme.RoleCursor, theme.RoleWarning, theme.RoleActive}
	if track < 0 {
		track = -track
	}
	return p.Lookup(steps[track%len(steps)])
}

// PitchName formats a MIDI pitch as e.g. "C4" (60 = C4)
func PitchName(pitch uint8) string {
	return fmt.Sprintf("%s%d", melody.NoteNames[pitch%12], int(pitch)/12-1)
}

// IsBlackKey reports whether pitch falls on a black piano key
func IsBlackKey(pitch uint8) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

func labelFace(rowHeight float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: max(rowHeight*0.8, 6)}), nil
}

func setRGB(dc *gg.Context, c theme.RGB) {
	dc.SetRGB255(int(c[0]), int(c[1]), int(c[2]))
}
