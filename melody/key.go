package melody

import (
	"fmt"
	"strings"
)

// Mode is a diatonic mode
type Mode string

const (
	Major Mode = "major"
	Minor Mode = "minor"
)

// NoteNames are the twelve pitch classes, sharps only
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var intervals = map[Mode][7]int{
	Major: {0, 2, 4, 5, 7, 9, 11},
	Minor: {0, 2, 3, 5, 7, 8, 10},
}

// Key is a root pitch class plus a mode
type Key struct {
	Root int // 0-11
	Mode Mode
}

// DefaultKey is used whenever a key string can't be parsed
var DefaultKey = Key{Root: 0, Mode: Major}

// ParseError describes a malformed key string
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad key %q: %s", e.Input, e.Msg)
}

// ParseKey parses "<root> <mode>", e.g. "F# minor"
func ParseKey(s string) (Key, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return DefaultKey, &ParseError{Input: s, Msg: "want \"<root> <mode>\""}
	}

	root := -1
	name := strings.ToUpper(parts[0][:1]) + parts[0][1:]
	for i, n := range NoteNames {
		if n == name {
			root = i
			break
		}
	}
	if root < 0 {
		return DefaultKey, &ParseError{Input: s, Msg: "unknown root " + parts[0]}
	}

	mode := Mode(strings.ToLower(parts[1]))
	if _, ok := intervals[mode]; !ok {
		return DefaultKey, &ParseError{Input: s, Msg: "unknown mode " + parts[1]}
	}
	return Key{Root: root, Mode: mode}, nil
}

// Scale returns the seven pitch classes of the key
func (k Key) Scale() []int {
	ivs := intervals[k.Mode]
	out := make([]int, len(ivs))
	for i, iv := range ivs {
		out[i] = (k.Root + iv) % 12
	}
	return out
}

// Contains reports whether pitch's class is in the scale
func (k Key) Contains(pitch int) bool {
	pc := pitch % 12
	for _, s := range k.Scale() {
		if s == pc {
			return true
		}
	}
	return false
}

func (k Key) String() string {
	return NoteNames[k.Root] + " " + string(k.Mode)
}

// Keys lists every supported key string (24 of them)
func Keys() []string {
	out := make([]string, 0, len(NoteNames)*2)
	for _, n := range NoteNames {
		for _, m := range []Mode{Major, Minor} {
			out = append(out, n+" "+string(m))
		}
	}
	return out
}
