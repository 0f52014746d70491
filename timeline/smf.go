package timeline

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Resolution is the ticks-per-quarter used when writing files
const Resolution = 960

// IOError wraps a failed load or save
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s midi: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s midi %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ReadFile loads a Standard MIDI File
func ReadFile(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	tl, err := Read(bytes.NewReader(data))
	if err != nil {
		if ioErr, ok := err.(*IOError); ok {
			ioErr.Path = path
		}
		return nil, err
	}
	return tl, nil
}

// Read parses a Standard MIDI File from r
func Read(r io.Reader) (tl *Timeline, err error) {
	// the smf reader panics on some malformed input
	defer func() {
		if rec := recover(); rec != nil {
			tl = nil
			err = &IOError{Op: "read", Err: fmt.Errorf("malformed file: %v", rec)}
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	if _, ok := s.TimeFormat.(smf.MetricTicks); !ok {
		return nil, &IOError{Op: "read", Err: fmt.Errorf("unsupported time format %v", s.TimeFormat)}
	}
	return fromSMF(s)
}

type noteKey struct {
	channel, key uint8
}

type openNote struct {
	start    float64
	velocity uint8
}

func fromSMF(s *smf.SMF) (*Timeline, error) {
	tl := &Timeline{Tempo: DefaultTempo}
	if tc := s.TempoChanges(); len(tc) > 0 && tc[0].BPM > 0 {
		tl.Tempo = tc[0].BPM
	}

	seconds := func(absTicks int64) float64 {
		return float64(s.TimeAt(absTicks)) / 1e6
	}

	for _, events := range s.Tracks {
		tr := Track{ID: len(tl.Tracks)}
		open := make(map[noteKey][]openNote)
		var absTicks int64

		for _, ev := range events {
			absTicks += int64(ev.Delta)
			var name string
			if ev.Message.GetMetaTrackName(&name) {
				tr.Name = name
				continue
			}

			msg := midi.Message(ev.Message)
			var ch, key, vel, prog uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := noteKey{ch, key}
				open[k] = append(open[k], openNote{start: seconds(absTicks), velocity: vel})
			case msg.GetNoteEnd(&ch, &key):
				k := noteKey{ch, key}
				stack := open[k]
				if len(stack) == 0 {
					continue
				}
				on := stack[0]
				open[k] = stack[1:]
				end := seconds(absTicks)
				if end <= on.start {
					continue // zero-length notes cannot be drawn or played
				}
				tr.Notes = append(tr.Notes, Note{Pitch: key, Velocity: on.velocity, Start: on.start, End: end})
			case msg.GetProgramChange(&ch, &prog):
				tr.Program = prog
			}
		}

		if len(tr.Notes) == 0 {
			continue
		}
		sort.SliceStable(tr.Notes, func(a, b int) bool {
			return tr.Notes[a].Start < tr.Notes[b].Start
		})
		tl.Tracks = append(tl.Tracks, tr)
	}

	if err := tl.Validate(); err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return tl, nil
}

// WriteFile saves the timeline as a Standard MIDI File. A failed write
// leaves nothing at path.
func (tl *Timeline) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".midiroll-*.mid")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tl.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// WriteTo encodes the timeline as SMF format 1
func (tl *Timeline) WriteTo(w io.Writer) (int64, error) {
	s, err := tl.toSMF()
	if err != nil {
		return 0, err
	}
	return s.WriteTo(w)
}

type tickEvent struct {
	tick uint32
	off  bool
	msg  midi.Message
}

func (tl *Timeline) toSMF() (*smf.SMF, error) {
	if err := tl.Validate(); err != nil {
		return nil, err
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(Resolution)

	// Track 0: conductor
	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(tl.Tempo))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("adding tempo track: %w", err)
	}

	for i, tr := range tl.Tracks {
		ch := uint8(i % 16)
		events := make([]tickEvent, 0, len(tr.Notes)*2)
		for _, n := range tr.Notes {
			events = append(events,
				tickEvent{tick: tl.ticks(n.Start), msg: midi.NoteOn(ch, n.Pitch, max(n.Velocity, 1))},
				tickEvent{tick: tl.ticks(n.End), off: true, msg: midi.NoteOff(ch, n.Pitch)},
			)
		}
		// note-offs first on a shared tick so back-to-back notes don't cut each other
		sort.SliceStable(events, func(a, b int) bool {
			if events[a].tick != events[b].tick {
				return events[a].tick < events[b].tick
			}
			return events[a].off && !events[b].off
		})

		var track smf.Track
		if tr.Name != "" {
			track.Add(0, smf.MetaTrackSequenceName(tr.Name))
		}
		track.Add(0, midi.ProgramChange(ch, tr.Program))
		var last uint32
		for _, ev := range events {
			track.Add(ev.tick-last, ev.msg)
			last = ev.tick
		}
		track.Close(0)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("adding track %d: %w", tr.ID, err)
		}
	}
	return s, nil
}

func (tl *Timeline) ticks(seconds float64) uint32 {
	beats := seconds * tl.Tempo / 60
	return uint32(math.Round(beats * Resolution))
}
