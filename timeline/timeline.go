// Package timeline holds the note timeline shared by the generator, the
// piano-roll renderer and playback. A Timeline is never modified after it
// is built; producing new material means building a new Timeline.
package timeline

import (
	"errors"
	"fmt"
)

// DefaultTempo is used when a file carries no tempo change
const DefaultTempo = 120.0

var (
	ErrInvalidNote  = errors.New("invalid note")
	ErrInvalidTempo = errors.New("invalid tempo")
)

// Note is a single timed note. Start and End are in seconds.
type Note struct {
	Pitch    uint8   `json:"pitch"`
	Velocity uint8   `json:"velocity"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// Duration returns End - Start
func (n Note) Duration() float64 {
	return n.End - n.Start
}

func (n Note) validate() error {
	if n.Pitch > 127 || n.Velocity > 127 {
		return fmt.Errorf("%w: pitch %d velocity %d out of range", ErrInvalidNote, n.Pitch, n.Velocity)
	}
	if n.Start < 0 || !(n.Start < n.End) {
		return fmt.Errorf("%w: start %.3f end %.3f", ErrInvalidNote, n.Start, n.End)
	}
	return nil
}

// Track is one instrument's notes in chronological order
type Track struct {
	ID      int    `json:"id"`
	Program uint8  `json:"program"`
	Name    string `json:"name,omitempty"`
	Notes   []Note `json:"notes"`
}

// Timeline is an ordered set of instrument tracks at a tempo
type Timeline struct {
	Tempo  float64 `json:"tempo"`
	Tracks []Track `json:"tracks"`
}

// New builds a validated timeline
func New(tempo float64, tracks ...Track) (*Timeline, error) {
	tl := &Timeline{Tempo: tempo, Tracks: tracks}
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	return tl, nil
}

// Validate checks tempo and every note's invariants
func (tl *Timeline) Validate() error {
	if !(tl.Tempo > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTempo, tl.Tempo)
	}
	for _, tr := range tl.Tracks {
		for i, n := range tr.Notes {
			if err := n.validate(); err != nil {
				return fmt.Errorf("track %d note %d: %w", tr.ID, i, err)
			}
		}
	}
	return nil
}

// Duration is the latest note end across all tracks (0 when empty)
func (tl *Timeline) Duration() float64 {
	if tl == nil {
		return 0
	}
	var d float64
	for _, tr := range tl.Tracks {
		for _, n := range tr.Notes {
			if n.End > d {
				d = n.End
			}
		}
	}
	return d
}

// NoteCount counts notes across all tracks
func (tl *Timeline) NoteCount() int {
	if tl == nil {
		return 0
	}
	count := 0
	for _, tr := range tl.Tracks {
		count += len(tr.Notes)
	}
	return count
}

// Empty reports whether the timeline has no notes at all
func (tl *Timeline) Empty() bool {
	return tl.NoteCount() == 0
}

// PitchRange returns the lowest and highest pitch. ok is false when empty.
func (tl *Timeline) PitchRange() (lo, hi uint8, ok bool) {
	if tl == nil {
		return 0, 0, false
	}
	lo, hi = 127, 0
	for _, tr := range tl.Tracks {
		for _, n := range tr.Notes {
			lo = min(lo, n.Pitch)
			hi = max(hi, n.Pitch)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// Notes returns every note in track order then note order
func (tl *Timeline) Notes() []Note {
	if tl == nil {
		return nil
	}
	out := make([]Note, 0, tl.NoteCount())
	for _, tr := range tl.Tracks {
		out = append(out, tr.Notes...)
	}
	return out
}

func (tl *Timeline) String() string {
	if tl == nil {
		return "<nil timeline>"
	}
	return fmt.Sprintf("%d tracks, %d notes, %.2fs @ %.0f bpm", len(tl.Tracks), tl.NoteCount(), tl.Duration(), tl.Tempo)
}
