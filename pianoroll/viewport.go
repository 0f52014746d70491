package pianoroll

import "golang.org/x/exp/constraints"

// Follow returns the scroll offset that keeps x inside [offset, offset+view).
// When x leaves the window the view pages so x lands at its left edge; a
// playhead that wrapped back behind the window pulls the view back with it.
func Follow(offset, view, x int) int {
	if view <= 0 {
		return max(x, 0)
	}
	if x < offset || x >= offset+view {
		return max(x, 0)
	}
	return offset
}

// ClampOffset keeps a scroll offset within a canvas of width total
func ClampOffset(offset, view, total int) int {
	return clamp(offset, 0, max(total-view, 0))
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
