package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midiroll/melody"
	"midiroll/timeline"
)

func testLibrary(t *testing.T) (*Library, *time.Time) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	l := Open(t.TempDir())
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestSaveAndList(t *testing.T) {
	l, clock := testLibrary(t)
	tl := melody.Generate(120, "G major", 8, melody.WithSeed(5))

	first, err := l.Save(tl, "", Meta{Source: "melody", Tempo: 120, Key: "G major", Bars: 2, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01_12-00-00.mid", first.Filename)

	*clock = clock.Add(time.Minute)
	second, err := l.Save(tl, "my tune/v2", Meta{Source: "model"})
	require.NoError(t, err)
	assert.Equal(t, "my-tune-v2", second.Name)

	saves, err := l.ListSaves()
	require.NoError(t, err)
	require.Len(t, saves, 2)
	assert.Equal(t, second.Filename, saves[0].Filename)
	assert.Equal(t, first.Filename, saves[1].Filename)
	require.NotNil(t, saves[1].Meta)
	assert.Equal(t, "G major", saves[1].Meta.Key)
	assert.Equal(t, 8, saves[1].Meta.Notes)
}

func TestSameSecondDoesNotOverwrite(t *testing.T) {
	l, _ := testLibrary(t)
	tl := melody.Generate(120, "C major", 4, melody.WithSeed(1))

	a, err := l.Save(tl, "", Meta{})
	require.NoError(t, err)
	b, err := l.Save(tl, "", Meta{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Filename, b.Filename)

	saves, err := l.ListSaves()
	require.NoError(t, err)
	assert.Len(t, saves, 2)
}

func TestLoadLatest(t *testing.T) {
	l, clock := testLibrary(t)
	_, err := l.Save(melody.Generate(120, "C major", 4, melody.WithSeed(1)), "old", Meta{})
	require.NoError(t, err)
	*clock = clock.Add(time.Hour)
	_, err = l.Save(melody.Generate(90, "C major", 12, melody.WithSeed(1)), "new", Meta{})
	require.NoError(t, err)

	tl, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, tl.NoteCount())
	assert.InDelta(t, 90, tl.Tempo, 0.01)
}

func TestRenameAndDelete(t *testing.T) {
	l, _ := testLibrary(t)
	info, err := l.Save(melody.Generate(120, "C major", 4), "draft", Meta{Source: "melody"})
	require.NoError(t, err)

	renamed, err := l.Rename(info.Filename, "final")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01_12-00-00_final.mid", renamed)
	assert.FileExists(t, filepath.Join(l.Dir, "2026-03-01_12-00-00_final.json"))

	require.NoError(t, l.Delete(renamed))
	entries, err := os.ReadDir(l.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListIgnoresStrangers(t *testing.T) {
	l, _ := testLibrary(t)
	require.NoError(t, os.MkdirAll(l.Dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(l.Dir, "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(l.Dir, "song.mid"), nil, 0644))

	saves, err := l.ListSaves()
	require.NoError(t, err)
	assert.Empty(t, saves)
}

func TestMissingDirIsEmpty(t *testing.T) {
	l := Open(filepath.Join(t.TempDir(), "nope"))
	saves, err := l.ListSaves()
	require.NoError(t, err)
	assert.Empty(t, saves)

	_, err = l.Load("")
	assert.Error(t, err)
}

func TestSaveRejectsEmpty(t *testing.T) {
	l, _ := testLibrary(t)
	_, err := l.Save(&timeline.Timeline{Tempo: 120}, "", Meta{})
	assert.Error(t, err)
}
