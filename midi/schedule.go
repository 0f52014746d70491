package midi

import (
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"midiroll/timeline"
)

// Event is a message due at a fixed offset from the start of playback
type Event struct {
	At  time.Duration
	Msg gomidi.Message
}

// Schedule is a timeline flattened into time-ordered messages
type Schedule struct {
	Events   []Event
	Length   time.Duration
	Channels []uint8
}

// BuildSchedule flattens tl. Track i plays on channel i%16, the same
// assignment the SMF writer uses.
func BuildSchedule(tl *timeline.Timeline) Schedule {
	var s Schedule
	type keyed struct {
		Event
		off bool
	}
	var evs []keyed

	for i, tr := range tl.Tracks {
		ch := uint8(i % 16)
		s.Channels = append(s.Channels, ch)
		evs = append(evs, keyed{Event: Event{Msg: gomidi.ProgramChange(ch, tr.Program)}})
		for _, n := range tr.Notes {
			evs = append(evs,
				keyed{Event: Event{At: seconds(n.Start), Msg: gomidi.NoteOn(ch, n.Pitch, max(n.Velocity, 1))}},
				keyed{Event: Event{At: seconds(n.End), Msg: gomidi.NoteOff(ch, n.Pitch)}, off: true},
			)
		}
	}
	// note-offs first on a shared instant so repeated pitches retrigger
	sort.SliceStable(evs, func(a, b int) bool {
		if evs[a].At != evs[b].At {
			return evs[a].At < evs[b].At
		}
		return evs[a].off && !evs[b].off
	})

	s.Events = make([]Event, len(evs))
	for i, e := range evs {
		s.Events[i] = e.Event
	}
	s.Length = seconds(tl.Duration())
	return s
}

// AllNotesOff silences every channel the schedule used
func (s Schedule) AllNotesOff() []gomidi.Message {
	msgs := make([]gomidi.Message, 0, len(s.Channels))
	seen := make(map[uint8]bool)
	for _, ch := range s.Channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		msgs = append(msgs, gomidi.ControlChange(ch, 123, 0))
	}
	return msgs
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
