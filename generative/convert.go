package generative

import (
	"fmt"
	"sort"

	"midiroll/timeline"
)

// ConversionError means a token sequence could not become a timeline
type ConversionError struct {
	Index  int // offending token position, -1 for the whole sequence
	Token  int
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Index < 0 {
		return "convert tokens: " + e.Reason
	}
	return fmt.Sprintf("convert tokens: %s at %d (%s)", e.Reason, e.Index, TokenString(e.Token))
}

// Converter turns model output into a timeline
type Converter interface {
	Convert(tokens []int, tempo float64) (*timeline.Timeline, error)
}

// EventConverter interprets the performance-event vocabulary. In strict
// mode a note-off without a sounding note, or a note still sounding at the
// end, fails the conversion; otherwise such events are dropped or closed
// at the final time.
type EventConverter struct {
	Strict bool
}

type sounding struct {
	start    float64
	velocity uint8
}

func (c EventConverter) Convert(tokens []int, tempo float64) (*timeline.Timeline, error) {
	if tempo <= 0 {
		tempo = timeline.DefaultTempo
	}

	var (
		now      float64
		velocity = VelocityFromBin(BinFromVelocity(100))
		open     = make(map[int]sounding)
		notes    []timeline.Note
	)
	closeNote := func(pitch int, s sounding) {
		if now > s.start {
			notes = append(notes, timeline.Note{Pitch: uint8(pitch), Velocity: s.velocity, Start: s.start, End: now})
		}
	}

scan:
	for i, tok := range tokens {
		kind, arg := DecodeToken(tok)
		switch kind {
		case KindStart:
		case KindEnd:
			break scan
		case KindNoteOn:
			if s, ok := open[arg]; ok {
				closeNote(arg, s)
			}
			open[arg] = sounding{start: now, velocity: velocity}
		case KindNoteOff:
			s, ok := open[arg]
			if !ok {
				if c.Strict {
					return nil, &ConversionError{Index: i, Token: tok, Reason: "note-off without note-on"}
				}
				continue
			}
			closeNote(arg, s)
			delete(open, arg)
		case KindTimeShift:
			now += float64(arg) * TimeShiftUnit.Seconds()
		case KindVelocity:
			velocity = VelocityFromBin(arg)
		default:
			return nil, &ConversionError{Index: i, Token: tok, Reason: "token out of range"}
		}
	}

	if len(open) > 0 {
		if c.Strict {
			return nil, &ConversionError{Index: -1, Reason: fmt.Sprintf("%d notes never released", len(open))}
		}
		for pitch, s := range open {
			closeNote(pitch, s)
		}
	}
	if len(notes) == 0 {
		return nil, &ConversionError{Index: -1, Reason: "no notes"}
	}

	sort.SliceStable(notes, func(a, b int) bool {
		if notes[a].Start != notes[b].Start {
			return notes[a].Start < notes[b].Start
		}
		return notes[a].Pitch < notes[b].Pitch
	})
	return timeline.New(tempo, timeline.Track{ID: 0, Name: "generated", Notes: notes})
}
