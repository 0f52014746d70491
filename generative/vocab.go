// Package generative turns token sequences sampled from a language model
// into note timelines.
//
// Tokens follow the performance-event vocabulary: 128 note-on events, 128
// note-off events, 100 time shifts in 10 ms steps, 32 velocity bins, then a
// start and an end marker.
package generative

import (
	"fmt"
	"time"
)

const (
	NoteOnOffset    = 0
	NoteOffOffset   = NoteOnOffset + 128
	TimeShiftOffset = NoteOffOffset + 128
	VelocityOffset  = TimeShiftOffset + TimeShiftSteps
	StartToken      = VelocityOffset + VelocityBins
	EndToken        = StartToken + 1
	VocabSize       = EndToken + 1

	TimeShiftSteps = 100
	TimeShiftUnit  = 10 * time.Millisecond
	VelocityBins   = 32
)

type Kind int

const (
	KindInvalid Kind = iota
	KindNoteOn
	KindNoteOff
	KindTimeShift
	KindVelocity
	KindStart
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindTimeShift:
		return "time_shift"
	case KindVelocity:
		return "set_velocity"
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	}
	return "invalid"
}

// DecodeToken splits a token into its kind and argument (pitch, step count
// or velocity bin)
func DecodeToken(tok int) (Kind, int) {
	switch {
	case tok < 0:
		return KindInvalid, tok
	case tok < NoteOffOffset:
		return KindNoteOn, tok - NoteOnOffset
	case tok < TimeShiftOffset:
		return KindNoteOff, tok - NoteOffOffset
	case tok < VelocityOffset:
		return KindTimeShift, tok - TimeShiftOffset + 1
	case tok < StartToken:
		return KindVelocity, tok - VelocityOffset
	case tok == StartToken:
		return KindStart, 0
	case tok == EndToken:
		return KindEnd, 0
	}
	return KindInvalid, tok
}

func NoteOn(pitch int) int  { return NoteOnOffset + pitch }
func NoteOff(pitch int) int { return NoteOffOffset + pitch }

// TimeShift encodes a shift of steps*10ms (1..100)
func TimeShift(steps int) int { return TimeShiftOffset + steps - 1 }

func Velocity(bin int) int { return VelocityOffset + bin }

// VelocityFromBin maps a bin to a MIDI velocity in 3..127
func VelocityFromBin(bin int) uint8 {
	return uint8((bin+1)*(128/VelocityBins) - 1)
}

// BinFromVelocity is the inverse of VelocityFromBin
func BinFromVelocity(v uint8) int {
	return min(int(v)/(128/VelocityBins), VelocityBins-1)
}

// TokenString renders a token for logs, e.g. "note_on(60)"
func TokenString(tok int) string {
	k, arg := DecodeToken(tok)
	switch k {
	case KindStart, KindEnd:
		return k.String()
	case KindInvalid:
		return fmt.Sprintf("invalid(%d)", tok)
	}
	return fmt.Sprintf("%s(%d)", k, arg)
}
