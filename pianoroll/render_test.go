package pianoroll

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midiroll/melody"
	"midiroll/theme"
	"midiroll/timeline"
)

func fourNotes() *timeline.Timeline {
	return &timeline.Timeline{Tempo: 120, Tracks: []timeline.Track{{Notes: []timeline.Note{
		{Pitch: 60, Velocity: 100, Start: 0, End: 0.5},
		{Pitch: 64, Velocity: 100, Start: 0.5, End: 1.0},
		{Pitch: 67, Velocity: 100, Start: 1.0, End: 1.5},
		{Pitch: 62, Velocity: 100, Start: 1.5, End: 2.0},
	}}}}
}

func TestRenderFourNotes(t *testing.T) {
	l := Render(fourNotes())

	require.Len(t, l.Rects, 4)
	assert.Equal(t, uint8(60), l.MinPitch)
	assert.Equal(t, uint8(67), l.MaxPitch)
	assert.Equal(t, (67-60+1)*10, l.CanvasHeight)
	assert.Equal(t, MinCanvasWidth, l.CanvasWidth)
	assert.False(t, l.Placeholder())

	for i, want := range []float64{0, 50, 100, 150} {
		assert.Equal(t, want, l.Rects[i].X0)
		assert.Equal(t, want+50, l.Rects[i].X1)
	}
	// highest pitch sits in the top row
	assert.Equal(t, 0.0, l.Rects[2].Y0)
	assert.Equal(t, 70.0, l.Rects[0].Y0)
}

func TestRenderRectsAreWellFormed(t *testing.T) {
	for _, key := range []string{"C major", "G# minor", "B major"} {
		tl := melody.Generate(90, key, 40, melody.WithSeed(3))
		l := Render(tl, WithRowHeight(7), WithPixelsPerSecond(33))
		lo, hi, _ := tl.PitchRange()

		assert.Equal(t, (int(hi)-int(lo)+1)*7, l.CanvasHeight)
		require.Len(t, l.Rects, tl.NoteCount())
		for i, r := range l.Rects {
			n := tl.Tracks[0].Notes[i]
			assert.Less(t, r.X0, r.X1)
			assert.Less(t, r.Y0, r.Y1)
			assert.Equal(t, n.Pitch, r.Pitch)
			assert.GreaterOrEqual(t, r.Y0, 0.0)
			assert.LessOrEqual(t, r.Y1, float64(l.CanvasHeight))
			assert.LessOrEqual(t, r.X1, float64(l.CanvasWidth))
		}
	}
}

func TestRenderKeepsTrackOrder(t *testing.T) {
	tl := &timeline.Timeline{Tempo: 120, Tracks: []timeline.Track{
		{ID: 0, Notes: []timeline.Note{{Pitch: 50, Velocity: 1, Start: 3, End: 4}}},
		{ID: 1, Notes: []timeline.Note{{Pitch: 70, Velocity: 1, Start: 0, End: 1}}},
	}}
	l := Render(tl)
	require.Len(t, l.Rects, 2)
	assert.Equal(t, 0, l.Rects[0].Track)
	assert.Equal(t, 1, l.Rects[1].Track)
}

func TestRenderEmptyIsPlaceholder(t *testing.T) {
	for _, tl := range []*timeline.Timeline{nil, {Tempo: 120}, {Tempo: 120, Tracks: []timeline.Track{{ID: 0}}}} {
		l := Render(tl, WithRowHeight(12))
		assert.True(t, l.Placeholder())
		assert.Equal(t, 12, l.CanvasHeight)
		assert.Equal(t, MinCanvasWidth, l.CanvasWidth)
		assert.Empty(t, l.Rects)
	}
}

func TestCanvasGrowsWithDuration(t *testing.T) {
	tl := melody.Generate(120, "C major", 60, melody.WithSeed(1)) // 30 s
	l := Render(tl)
	assert.Equal(t, 3000, l.CanvasWidth)
}

func TestFollow(t *testing.T) {
	cases := []struct {
		name            string
		offset, view, x int
		want            int
	}{
		{"inside", 0, 100, 50, 0},
		{"left edge", 100, 100, 100, 100},
		{"past right edge", 0, 100, 100, 100},
		{"far ahead", 0, 100, 350, 350},
		{"wrapped behind", 400, 100, 10, 10},
		{"no view", 40, 0, 7, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Follow(tc.offset, tc.view, tc.x)
			assert.Equal(t, tc.want, got)
			if tc.view > 0 {
				assert.True(t, tc.x >= got && tc.x < got+tc.view)
			}
		})
	}
	assert.Equal(t, 1900, ClampOffset(5000, 100, 2000))
	assert.Equal(t, 0, ClampOffset(-4, 100, 2000))
}

func TestCells(t *testing.T) {
	l := Render(fourNotes())
	grid := l.Cells(20, l.Rows(), 10)
	require.Len(t, grid, 8)

	// pitch 67 in row 0, columns 10..13 (one-cell gap before the next note)
	assert.Equal(t, Cell(0), grid[0][10])
	assert.Equal(t, Cell(0), grid[0][13])
	assert.Equal(t, NoNote, grid[0][14])
	assert.Equal(t, NoNote, grid[0][0])
	assert.Equal(t, Cell(0), grid[7][0])

	scrolled := l.CellsFrom(100, 5, l.Rows(), 10)
	assert.Equal(t, Cell(0), scrolled[0][0])
	assert.Nil(t, l.Cells(0, 3, 10))
}

func TestWritePNG(t *testing.T) {
	l := Render(fourNotes())
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, l, theme.DefaultPalette()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, l.CanvasWidth+int(labelWidth), img.Bounds().Dx())
	assert.Equal(t, l.CanvasHeight, img.Bounds().Dy())

	buf.Reset()
	require.NoError(t, WritePNG(&buf, Render(nil), nil))
}

func TestPitchName(t *testing.T) {
	assert.Equal(t, "C4", PitchName(60))
	assert.Equal(t, "A#3", PitchName(58))
}
