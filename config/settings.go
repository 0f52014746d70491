package config

import (
	"fmt"
	"strconv"
	"strings"

	"midiroll/melody"
)

// Settings are the three user-editable generation fields
type Settings struct {
	Tempo int    `json:"tempo"`
	Key   string `json:"key"`
	Bars  int    `json:"bars"`
}

// DefaultSettings are 120 bpm, C major, 4 bars
func DefaultSettings() Settings {
	return Settings{Tempo: 120, Key: "C major", Bars: 4}
}

// ValidationError is returned when a settings field is rejected
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// ParseSettings validates raw text fields. On error the caller keeps its
// previous settings.
func ParseSettings(tempo, key, bars string) (Settings, error) {
	t, err := parsePositive("tempo", tempo)
	if err != nil {
		return Settings{}, err
	}
	b, err := parsePositive("bars", bars)
	if err != nil {
		return Settings{}, err
	}
	// The key is free-form; malformed keys fall back to C major at generation.
	return Settings{Tempo: t, Key: strings.TrimSpace(key), Bars: b}, nil
}

func parsePositive(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: raw, Msg: "not a whole number"}
	}
	if n <= 0 {
		return 0, &ValidationError{Field: field, Value: raw, Msg: "must be positive"}
	}
	return n, nil
}

// Validate checks an already-decoded Settings value
func (s Settings) Validate() error {
	if s.Tempo <= 0 {
		return &ValidationError{Field: "tempo", Value: strconv.Itoa(s.Tempo), Msg: "must be positive"}
	}
	if s.Bars <= 0 {
		return &ValidationError{Field: "bars", Value: strconv.Itoa(s.Bars), Msg: "must be positive"}
	}
	return nil
}

// NoteCount is the generator note count for the configured bars
func (s Settings) NoteCount() int {
	return melody.NoteCount(s.Bars)
}

func (s Settings) String() string {
	return fmt.Sprintf("%d bpm, %s, %d bars", s.Tempo, s.Key, s.Bars)
}
