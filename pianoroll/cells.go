package pianoroll

import "math"

// Cell is one terminal character of the rasterized roll: the track id
// covering it, or NoNote
type Cell int

const NoNote Cell = -1

// Cells rasterizes the layout into rows x cols terminal cells, one row per
// pitch and pxPerCol canvas pixels per column, starting at the left edge.
func (l Layout) Cells(cols, rows int, pxPerCol float64) [][]Cell {
	return l.CellsFrom(0, cols, rows, pxPerCol)
}

// CellsFrom is Cells for a window starting at canvas pixel offset
func (l Layout) CellsFrom(offset float64, cols, rows int, pxPerCol float64) [][]Cell {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	if pxPerCol <= 0 {
		pxPerCol = 1
	}

	grid := make([][]Cell, rows)
	for r := range grid {
		grid[r] = make([]Cell, cols)
		for c := range grid[r] {
			grid[r][c] = NoNote
		}
	}

	rh := float64(max(l.RowHeight, 1))
	for _, rect := range l.Rects {
		row := int(rect.Y0 / rh)
		if row < 0 || row >= rows {
			continue
		}
		c0 := int(math.Floor((rect.X0 - offset) / pxPerCol))
		c1 := int(math.Ceil((rect.X1 - offset) / pxPerCol))
		// keep a one-cell gap between back-to-back notes when they are wide enough
		if c1-c0 > 1 {
			c1--
		}
		for c := max(c0, 0); c < min(c1, cols); c++ {
			grid[row][c] = Cell(rect.Track)
		}
	}
	return grid
}
