// Package melody builds random melodies constrained to a diatonic scale.
package melody

import (
	"math/rand/v2"

	"midiroll/debug"
	"midiroll/timeline"
)

const (
	NoteDuration = 0.5 // seconds
	Velocity     = 100
	NotesPerBar  = 4
)

// Octaves spans the useful vocal/instrumental range (pitches 48-71)
var Octaves = [2]int{4, 5}

type options struct {
	rng *rand.Rand
}

// Option configures Generate
type Option func(*options)

// WithSeed makes the pitch draws reproducible
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRand draws pitches from r
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// NoteCount converts a bar count into a note count
func NoteCount(bars int) int {
	return bars * NotesPerBar
}

// Generate builds a single-track melody of noteCount back-to-back notes.
// A malformed key falls back to C major; generation never fails.
func Generate(tempo int, key string, noteCount int, opts ...Option) *timeline.Timeline {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	k, err := ParseKey(key)
	if err != nil {
		debug.Log("melody", "%v, using %s", err, DefaultKey)
		k = DefaultKey
	}
	scale := k.Scale()

	notes := make([]timeline.Note, 0, max(noteCount, 0))
	for i := 0; i < noteCount; i++ {
		pc := scale[o.rng.IntN(len(scale))]
		octave := Octaves[o.rng.IntN(len(Octaves))]
		// index times the constant keeps starts exact (no accumulated float error)
		start := float64(i) * NoteDuration
		notes = append(notes, timeline.Note{
			Pitch:    uint8(pc + 12*octave),
			Velocity: Velocity,
			Start:    start,
			End:      start + NoteDuration,
		})
	}

	tl := &timeline.Timeline{
		Tempo:  float64(max(tempo, 1)),
		Tracks: []timeline.Track{{ID: 0, Program: 0, Name: k.String(), Notes: notes}},
	}
	debug.Log("melody", "generated %s in %s", tl, k)
	return tl
}
