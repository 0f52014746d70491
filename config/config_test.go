package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSettingsAcceptsPositiveFields(t *testing.T) {
	s, err := ParseSettings(" 90 ", "D minor", "8")
	require.NoError(t, err)
	assert.Equal(t, Settings{Tempo: 90, Key: "D minor", Bars: 8}, s)
	assert.Equal(t, 32, s.NoteCount())
}

func TestParseSettingsRejectsBadNumbers(t *testing.T) {
	cases := []struct {
		name      string
		tempo     string
		bars      string
		wantField string
	}{
		{"tempo text", "fast", "4", "tempo"},
		{"tempo zero", "0", "4", "tempo"},
		{"bars negative", "120", "-2", "bars"},
		{"bars empty", "120", "", "bars"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSettings(tc.tempo, "C major", tc.bars)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestParseSettingsKeepsMalformedKey(t *testing.T) {
	s, err := ParseSettings("120", "Z wrong", "4")
	require.NoError(t, err)
	assert.Equal(t, "Z wrong", s.Key)
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveThenLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg := DefaultConfig()
	cfg.Settings = Settings{Tempo: 100, Key: "A minor", Bars: 2}
	cfg.Audio.Backend = BackendPort
	cfg.Audio.PortName = "IAC Driver Bus 1"
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFileFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"settings":{"tempo":0,"key":"C major","bars":4},"render":{"rowHeight":-1}}`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), cfg.Settings)
	assert.Equal(t, 10, cfg.Render.RowHeight)
	assert.Equal(t, 100, cfg.Render.PixelsPerSecond)
	assert.Equal(t, BackendSilent, cfg.Audio.Backend)
}

func TestConfigPathHonoursEnv(t *testing.T) {
	t.Setenv("MIDIROLL_CONFIG", "/tmp/elsewhere.json")
	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.json", path)
}
