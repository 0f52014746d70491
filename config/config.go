package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Backend identifies which audio engine plays timelines
type Backend string

const (
	BackendSilent Backend = "silent" // no sound, wall-clock loop only
	BackendSynth  Backend = "synth"  // SoundFont synth through the sound card
	BackendPort   Backend = "port"   // MIDI output port
)

// RenderConfig holds the piano-roll scale
type RenderConfig struct {
	RowHeight       int `json:"rowHeight"`
	PixelsPerSecond int `json:"pixelsPerSecond"`
}

// AudioConfig selects and tunes the audio engine
type AudioConfig struct {
	Backend        Backend `json:"backend"`
	SoundFont      string  `json:"soundFont,omitempty"`
	PortName       string  `json:"portName,omitempty"`
	SampleRate     int     `json:"sampleRate"`
	PollIntervalMs int     `json:"pollIntervalMs"`
	StopTimeoutMs  int     `json:"stopTimeoutMs"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"` // GPL palette file
	LastFile string `json:"lastFile,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Settings Settings     `json:"settings"`
	Render   RenderConfig `json:"render"`
	Audio    AudioConfig  `json:"audio"`
	UI       UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Settings: DefaultSettings(),
		Render: RenderConfig{
			RowHeight:       10,
			PixelsPerSecond: 100,
		},
		Audio: AudioConfig{
			Backend:        BackendSilent,
			SampleRate:     44100,
			PollIntervalMs: 100,
			StopTimeoutMs:  2000,
		},
	}
}

// PollInterval is how often the audio watcher checks the engine
func (a AudioConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalMs) * time.Millisecond
}

// StopTimeout bounds how long Stop waits for the engine to go quiet
func (a AudioConfig) StopTimeout() time.Duration {
	return time.Duration(a.StopTimeoutMs) * time.Millisecond
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midiroll"), nil
}

// ConfigPath returns the full path to config.json, honouring MIDIROLL_CONFIG
func ConfigPath() (string, error) {
	if path := os.Getenv("MIDIROLL_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Missing fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Settings.Validate() != nil {
		c.Settings = def.Settings
	}
	if c.Render.RowHeight <= 0 {
		c.Render.RowHeight = def.Render.RowHeight
	}
	if c.Render.PixelsPerSecond <= 0 {
		c.Render.PixelsPerSecond = def.Render.PixelsPerSecond
	}
	if c.Audio.Backend == "" {
		c.Audio.Backend = def.Audio.Backend
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.PollIntervalMs <= 0 {
		c.Audio.PollIntervalMs = def.Audio.PollIntervalMs
	}
	if c.Audio.StopTimeoutMs <= 0 {
		c.Audio.StopTimeoutMs = def.Audio.StopTimeoutMs
	}
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
