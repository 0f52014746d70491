// Package pianoroll maps a note timeline onto a 2-D piano-roll canvas.
//
// Time runs left to right at PixelsPerSecond, pitch runs top to bottom with
// the highest pitch in the first row. The layout is pure geometry; drawing
// it (terminal cells, PNG) is done by the helpers in this package.
package pianoroll

import (
	"math"

	"midiroll/timeline"
)

const (
	DefaultRowHeight       = 10
	DefaultPixelsPerSecond = 100
	// MinCanvasWidth keeps short timelines from producing a sliver
	MinCanvasWidth = 2000
)

// Rect is one note's rectangle in canvas coordinates
type Rect struct {
	X0       float64 `json:"x0"`
	Y0       float64 `json:"y0"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	Track    int     `json:"track"`
	Pitch    uint8   `json:"pitch"`
	Velocity uint8   `json:"velocity"`
}

// Layout is the rendered piano roll
type Layout struct {
	CanvasWidth     int     `json:"canvasWidth"`
	CanvasHeight    int     `json:"canvasHeight"`
	MinPitch        uint8   `json:"minPitch"`
	MaxPitch        uint8   `json:"maxPitch"`
	RowHeight       int     `json:"rowHeight"`
	PixelsPerSecond float64 `json:"pixelsPerSecond"`
	Rects           []Rect  `json:"rects"`
}

// Placeholder reports whether the layout came from an empty timeline
func (l Layout) Placeholder() bool {
	return len(l.Rects) == 0
}

// Rows is the number of pitch rows on the canvas
func (l Layout) Rows() int {
	if l.Placeholder() {
		return 1
	}
	return int(l.MaxPitch) - int(l.MinPitch) + 1
}

// PitchAt returns the pitch drawn in row (0 = top)
func (l Layout) PitchAt(row int) uint8 {
	return uint8(int(l.MaxPitch) - row)
}

type options struct {
	rowHeight int
	pps       float64
}

// Option configures Render
type Option func(*options)

// WithRowHeight sets the pixel height of one pitch row
func WithRowHeight(px int) Option {
	return func(o *options) {
		if px > 0 {
			o.rowHeight = px
		}
	}
}

// WithPixelsPerSecond sets the horizontal scale
func WithPixelsPerSecond(pps float64) Option {
	return func(o *options) {
		if pps > 0 {
			o.pps = pps
		}
	}
}

// Render lays out every note of tl. An empty (or nil) timeline yields a
// placeholder layout instead of failing.
func Render(tl *timeline.Timeline, opts ...Option) Layout {
	o := options{rowHeight: DefaultRowHeight, pps: DefaultPixelsPerSecond}
	for _, opt := range opts {
		opt(&o)
	}

	lo, hi, ok := tl.PitchRange()
	if !ok {
		return Layout{
			CanvasWidth:     MinCanvasWidth,
			CanvasHeight:    o.rowHeight,
			RowHeight:       o.rowHeight,
			PixelsPerSecond: o.pps,
		}
	}

	rh := float64(o.rowHeight)
	l := Layout{
		CanvasWidth:     max(MinCanvasWidth, int(math.Ceil(tl.Duration()*o.pps))),
		CanvasHeight:    (int(hi) - int(lo) + 1) * o.rowHeight,
		MinPitch:        lo,
		MaxPitch:        hi,
		RowHeight:       o.rowHeight,
		PixelsPerSecond: o.pps,
		Rects:           make([]Rect, 0, tl.NoteCount()),
	}
	for _, tr := range tl.Tracks {
		for _, n := range tr.Notes {
			y0 := float64(int(hi)-int(n.Pitch)) * rh
			l.Rects = append(l.Rects, Rect{
				X0:       n.Start * o.pps,
				Y0:       y0,
				X1:       n.End * o.pps,
				Y1:       y0 + rh,
				Track:    tr.ID,
				Pitch:    n.Pitch,
				Velocity: n.Velocity,
			})
		}
	}
	return l
}
