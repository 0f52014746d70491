// Package library keeps a timestamped history of generated timelines.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"midiroll/config"
	"midiroll/timeline"
)

const stampLayout = "2006-01-02_15-04-05"

// Meta describes how a saved timeline was made
type Meta struct {
	Source string `json:"source"` // "melody", "model" or "file"
	Tempo  int    `json:"tempo,omitempty"`
	Key    string `json:"key,omitempty"`
	Bars   int    `json:"bars,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
	Notes  int    `json:"notes"`
}

// SaveInfo represents a saved timeline (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
	Meta      *Meta // nil when the sidecar is missing
}

// Library is a directory of .mid saves with JSON sidecars
type Library struct {
	Dir string
	now func() time.Time
}

// Open uses dir, creating it on first save
func Open(dir string) *Library {
	return &Library{Dir: dir, now: time.Now}
}

// DefaultDir is ~/.config/midiroll/history
func DefaultDir() (string, error) {
	base, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "history"), nil
}

// Save writes tl as <timestamp>[_<name>].mid plus a metadata sidecar
func (l *Library) Save(tl *timeline.Timeline, name string, meta Meta) (SaveInfo, error) {
	if tl.Empty() {
		return SaveInfo{}, errors.New("nothing to save")
	}
	if err := os.MkdirAll(l.Dir, 0755); err != nil {
		return SaveInfo{}, err
	}

	ts := l.now()
	base := ts.Format(stampLayout)
	safe := sanitizeFilename(name)
	if safe != "" {
		base += "_" + safe
	}
	filename := base + ".mid"
	for i := 2; exists(filepath.Join(l.Dir, filename)); i++ {
		filename = fmt.Sprintf("%s-%d.mid", base, i)
	}

	if err := tl.WriteFile(filepath.Join(l.Dir, filename)); err != nil {
		return SaveInfo{}, err
	}
	meta.Notes = tl.NoteCount()
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return SaveInfo{}, err
	}
	if err := os.WriteFile(sidecar(filepath.Join(l.Dir, filename)), data, 0644); err != nil {
		return SaveInfo{}, err
	}

	info, _ := parseFilename(filename)
	info.Meta = &meta
	return info, nil
}

// ListSaves returns saves newest first
func (l *Library) ListSaves() ([]SaveInfo, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mid") {
			continue
		}
		info, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		info.Meta = l.readMeta(entry.Name())
		saves = append(saves, info)
	}

	sort.SliceStable(saves, func(i, j int) bool {
		if saves[i].Timestamp.Equal(saves[j].Timestamp) {
			return saves[i].Filename > saves[j].Filename
		}
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// Load reads a save (the most recent when filename is empty)
func (l *Library) Load(filename string) (*timeline.Timeline, error) {
	if filename == "" {
		saves, err := l.ListSaves()
		if err != nil {
			return nil, err
		}
		if len(saves) == 0 {
			return nil, fmt.Errorf("no saves in %s", l.Dir)
		}
		filename = saves[0].Filename
	}
	return timeline.ReadFile(filepath.Join(l.Dir, filepath.Base(filename)))
}

// Path returns the full path of a save
func (l *Library) Path(filename string) string {
	return filepath.Join(l.Dir, filepath.Base(filename))
}

// Delete removes a save and its sidecar
func (l *Library) Delete(filename string) error {
	path := l.Path(filename)
	if err := os.Remove(path); err != nil {
		return err
	}
	if err := os.Remove(sidecar(path)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename changes the name part of a save, keeping its timestamp
func (l *Library) Rename(filename, newName string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(filename), ".mid")
	if len(base) < len(stampLayout) {
		return "", fmt.Errorf("invalid save filename %q", filename)
	}
	newFilename := base[:len(stampLayout)] + ".mid"
	if safe := sanitizeFilename(newName); safe != "" {
		newFilename = base[:len(stampLayout)] + "_" + safe + ".mid"
	}

	oldPath, newPath := l.Path(filename), l.Path(newFilename)
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", err
	}
	if err := os.Rename(sidecar(oldPath), sidecar(newPath)); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return newFilename, nil
}

func (l *Library) readMeta(filename string) *Meta {
	data, err := os.ReadFile(sidecar(l.Path(filename)))
	if err != nil {
		return nil
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &m
}

// parseFilename accepts 2024-01-15_14-30-00.mid or 2024-01-15_14-30-00_name.mid
func parseFilename(filename string) (SaveInfo, bool) {
	base := strings.TrimSuffix(filename, ".mid")
	if len(base) < len(stampLayout) {
		return SaveInfo{}, false
	}
	ts, err := time.ParseInLocation(stampLayout, base[:len(stampLayout)], time.Local)
	if err != nil {
		return SaveInfo{}, false
	}
	info := SaveInfo{Filename: filename, Timestamp: ts}
	if len(base) > len(stampLayout)+1 && base[len(stampLayout)] == '_' {
		info.Name = base[len(stampLayout)+1:]
	}
	return info, true
}

func sidecar(path string) string {
	return strings.TrimSuffix(path, ".mid") + ".json"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	r := strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return r.Replace(name)
}
