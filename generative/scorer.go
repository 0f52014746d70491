package generative

import (
	"context"
	"math"

	"midiroll/debug"
	"midiroll/melody"
)

const blocked = -1e9

// ScaleScorer is a built-in stand-in for a trained model. It emits
// monophonic phrases in one key: velocity, note-on, a hold, note-off and
// an occasional rest, then the end marker after Notes notes.
type ScaleScorer struct {
	Key     melody.Key
	Notes   int
	Low     int // lowest pitch offered
	High    int // highest pitch offered
	HoldMin int // shortest hold in 10ms steps
	HoldMax int
}

// NewScaleScorer parses key, falling back to C major like the melody
// generator does
func NewScaleScorer(key string, notes int) *ScaleScorer {
	k, err := melody.ParseKey(key)
	if err != nil {
		debug.Log("generative", "%v, using %s", err, melody.DefaultKey)
	}
	return &ScaleScorer{Key: k, Notes: notes, Low: 55, High: 79, HoldMin: 15, HoldMax: 50}
}

type phrase struct {
	notes    int
	sounding int // pitch or -1
	last     Kind
	lastArg  int
	prevNote int
}

func readPhrase(prefix []int) phrase {
	ph := phrase{sounding: -1, prevNote: -1}
	for _, tok := range prefix {
		kind, arg := DecodeToken(tok)
		switch kind {
		case KindNoteOn:
			ph.notes++
			ph.sounding = arg
			ph.prevNote = arg
		case KindNoteOff:
			if arg == ph.sounding {
				ph.sounding = -1
			}
		}
		ph.last, ph.lastArg = kind, arg
	}
	return ph
}

func (s *ScaleScorer) Logits(ctx context.Context, prefix []int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logits := make([]float64, VocabSize)
	for i := range logits {
		logits[i] = blocked
	}
	ph := readPhrase(prefix)

	switch {
	case ph.sounding >= 0 && ph.last == KindTimeShift:
		logits[NoteOff(ph.sounding)] = 0
	case ph.sounding >= 0:
		s.holds(logits)
	case ph.notes >= s.Notes:
		logits[EndToken] = 0
	case ph.last == KindVelocity:
		s.pitches(logits, ph.prevNote)
	case ph.last == KindNoteOff:
		logits[Velocity(BinFromVelocity(100))] = 1
		for bin := 20; bin < VelocityBins; bin++ {
			logits[Velocity(bin)] = math.Max(logits[Velocity(bin)], 0)
		}
		// short rest
		logits[TimeShift(10)] = -0.5
	default:
		s.pitches(logits, ph.prevNote)
	}
	return logits, nil
}

// pitches favours scale tones close to the previous note
func (s *ScaleScorer) pitches(logits []float64, prev int) {
	for p := s.Low; p <= s.High; p++ {
		if !s.Key.Contains(p) {
			continue
		}
		score := 0.0
		if prev >= 0 {
			score = -math.Abs(float64(p-prev)) / 4
		}
		logits[NoteOn(p)] = score
	}
}

func (s *ScaleScorer) holds(logits []float64) {
	for steps := s.HoldMin; steps <= s.HoldMax; steps++ {
		score := 0.0
		if steps%25 == 0 {
			score = 1 // eighths and quarters at 120 BPM
		}
		logits[TimeShift(steps)] = score
	}
}
