package tui

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"midiroll/config"
	"midiroll/debug"
	"midiroll/generative"
	"midiroll/library"
	"midiroll/melody"
	"midiroll/midi"
	"midiroll/pianoroll"
	"midiroll/playback"
	"midiroll/theme"
	"midiroll/timeline"
)

const (
	consoleLines = 200
	// canvas pixels per terminal column
	pxPerCol = 10
)

// Deps are the long-lived services the UI drives
type Deps struct {
	Ctx        context.Context
	Config     *config.Config
	ConfigPath string
	Controller *playback.Controller
	Sync       *playback.VisualSync
	Frames     chan playback.Frame
	Library    *library.Library // optional
	Ports      *midi.PortWatcher // optional
	Scorer     generative.Scorer // optional, defaults to a ScaleScorer
	Theme      *theme.Theme
}

const (
	fieldTempo = iota
	fieldKey
	fieldBars
	numFields
)

type Model struct {
	deps    Deps
	persist func(func())

	timeline *timeline.Timeline
	layout   pianoroll.Layout
	keyLabel string

	settings config.Settings
	inputs   [numFields]textinput.Model
	editing  bool
	focus    int

	console []string
	x       float64 // playhead, canvas pixels
	offset  int     // scroll, canvas pixels
	loops   int
	width   int
	height  int

	showHelp bool
	quitting bool
}

func NewModel(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Theme == nil {
		deps.Theme = theme.New(nil)
	}

	m := Model{
		deps:     deps,
		persist:  debounce.New(500 * time.Millisecond),
		settings: deps.Config.Settings,
		layout:   pianoroll.Render(nil, renderOpts(deps.Config)...),
		width:    100,
		height:   30,
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 16
		ti.Width = 16
		m.inputs[i] = ti
	}
	m.inputs[fieldKey].Placeholder = "C major"
	m.fillInputs()
	m.logf("midiroll ready: %s", m.settings)
	return m
}

func renderOpts(c *config.Config) []pianoroll.Option {
	return []pianoroll.Option{
		pianoroll.WithRowHeight(c.Render.RowHeight),
		pianoroll.WithPixelsPerSecond(float64(c.Render.PixelsPerSecond)),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForFrames(m.deps.Frames)}
	if m.deps.Ports != nil {
		cmds = append(cmds, ListenForPorts(m.deps.Ports))
	}
	return tea.Batch(cmds...)
}

// Timeline returns the installed timeline (nil before the first one)
func (m Model) Timeline() *timeline.Timeline {
	return m.timeline
}

// Settings returns the applied settings
func (m Model) Settings() config.Settings {
	return m.settings
}

// Console returns the log pane lines
func (m Model) Console() []string {
	return m.console
}

func (m *Model) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	debug.Log("console", "%s", line)
	m.console = append(m.console, line)
	if len(m.console) > consoleLines {
		m.console = m.console[len(m.console)-consoleLines:]
	}
}

func (m *Model) fillInputs() {
	m.inputs[fieldTempo].SetValue(fmt.Sprint(m.settings.Tempo))
	m.inputs[fieldKey].SetValue(m.settings.Key)
	m.inputs[fieldBars].SetValue(fmt.Sprint(m.settings.Bars))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)

	case FrameMsg:
		if m.deps.Sync != nil && m.deps.Sync.Running() {
			m.x = msg.X
			m.loops = msg.Loop
			m.offset = pianoroll.Follow(m.offset, m.viewPx(), int(m.x))
		}
		return m, ListenForFrames(m.deps.Frames)

	case PortEventMsg:
		m.logf("midi port %s: %s", msg.Type, msg.Name)
		return m, ListenForPorts(m.deps.Ports)

	case playbackMsg:
		if msg.err != nil {
			m.logf("playback failed: %v", msg.err)
			m.stopSync()
			return m, nil
		}
		if msg.tl != m.timeline {
			return m, nil
		}
		started := time.Now()
		if sess, ok := m.deps.Controller.Session(); ok {
			started = sess.StartedAt
		}
		m.x, m.offset, m.loops = 0, 0, 0
		if m.deps.Sync != nil {
			m.deps.Sync.Start(msg.tl, started)
		}
		m.logf("playing %.1fs on a loop", msg.tl.Duration())

	case stoppedMsg:
		if msg.err != nil {
			m.logf("stop: %v", msg.err)
		} else {
			m.logf("stopped")
		}

	case generatedMsg:
		if msg.err != nil {
			m.logf("generation failed: %v", msg.err)
			return m, nil
		}
		return m, m.install(msg.tl, msg.key, library.Meta{
			Source: msg.source, Tempo: msg.tempo, Key: msg.key, Bars: msg.bars,
		})

	case fileMsg:
		return m.handleFile(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.stopSync()
		ctx, cancel := stopContext(m.deps.Ctx, m.deps.Config.Audio.StopTimeout())
		defer cancel()
		if err := m.deps.Controller.Stop(ctx); err != nil {
			debug.Log("tui", "stop on quit: %v", err)
		}
		return m, tea.Quit

	case "g":
		seed := rand.Uint64()
		s := m.settings
		tl := melody.Generate(s.Tempo, s.Key, s.NoteCount(), melody.WithSeed(seed))
		m.logf("generated %d notes in %s at %d bpm", tl.NoteCount(), s.Key, s.Tempo)
		return m, m.install(tl, s.Key, library.Meta{
			Source: "melody", Tempo: s.Tempo, Key: s.Key, Bars: s.Bars, Seed: seed,
		})

	case "m":
		s := m.settings
		scorer := m.deps.Scorer
		if scorer == nil {
			scorer = generative.NewScaleScorer(s.Key, s.NoteCount())
		}
		m.logf("sampling %d bars from the model in %s...", s.Bars, s.Key)
		return m, generateWithModel(m.deps.Ctx, scorer, s.Key, s.Tempo, s.Bars)

	case "p":
		if m.timeline.Empty() {
			m.logf("nothing to play")
			return m, nil
		}
		m.stopSync()
		return m, startPlayback(m.deps.Ctx, m.deps.Controller, m.timeline, true)

	case "x", " ":
		m.stopSync()
		return m, stopPlayback(m.deps.Ctx, m.deps.Controller)

	case "o":
		return m, chooseFile(false, startDir(m.deps.Config.UI.LastFile))

	case "w":
		if m.timeline.Empty() {
			m.logf("no MIDI to save")
			return m, nil
		}
		return m, chooseFile(true, startDir(m.deps.Config.UI.LastFile))

	case "e":
		m.editing = true
		m.focus = fieldTempo
		m.fillInputs()
		return m, m.focusInput()

	case "?":
		m.showHelp = !m.showHelp

	case "esc":
		m.showHelp = false

	case "h", "left":
		m.offset = pianoroll.ClampOffset(m.offset-m.viewPx()/2, m.viewPx(), m.layout.CanvasWidth)

	case "l", "right":
		m.offset = pianoroll.ClampOffset(m.offset+m.viewPx()/2, m.viewPx(), m.layout.CanvasWidth)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.blurInputs()
		m.fillInputs()
		return m, nil

	case "tab", "down":
		m.focus = (m.focus + 1) % numFields
		return m, m.focusInput()

	case "shift+tab", "up":
		m.focus = (m.focus + numFields - 1) % numFields
		return m, m.focusInput()

	case "enter":
		m.editing = false
		m.blurInputs()
		s, err := config.ParseSettings(
			m.inputs[fieldTempo].Value(),
			m.inputs[fieldKey].Value(),
			m.inputs[fieldBars].Value(),
		)
		if err != nil {
			m.logf("settings rejected: %v", err)
			m.fillInputs()
			return m, nil
		}
		if _, err := melody.ParseKey(s.Key); err != nil {
			m.logf("%v; generation will use %s", err, melody.DefaultKey)
		}
		m.settings = s
		m.saveSettings()
		m.logf("settings: %s", s)
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusInput() tea.Cmd {
	m.blurInputs()
	return m.inputs[m.focus].Focus()
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// saveSettings writes the config file after edits settle
func (m *Model) saveSettings() {
	m.deps.Config.Settings = m.settings
	if m.deps.ConfigPath == "" {
		return
	}
	snapshot := *m.deps.Config
	path := m.deps.ConfigPath
	m.persist(func() {
		if err := snapshot.SaveFile(path); err != nil {
			debug.Log("tui", "saving config: %v", err)
		}
	})
}

// install swaps in a new timeline, draws it, records it in the history
// and starts playing it
func (m *Model) install(tl *timeline.Timeline, keyLabel string, meta library.Meta) tea.Cmd {
	m.stopSync()
	m.timeline = tl
	m.keyLabel = keyLabel
	m.layout = pianoroll.Render(tl, renderOpts(m.deps.Config)...)
	m.x, m.offset, m.loops = 0, 0, 0

	if m.deps.Library != nil {
		if info, err := m.deps.Library.Save(tl, "", meta); err != nil {
			m.logf("history: %v", err)
		} else {
			debug.Log("tui", "saved %s", info.Filename)
		}
	}
	return startPlayback(m.deps.Ctx, m.deps.Controller, tl, false)
}

func (m Model) handleFile(msg fileMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if !cancelled(msg.err) {
			m.logf("file dialog: %v", msg.err)
		}
		return m, nil
	}

	if msg.save {
		if err := m.timeline.WriteFile(msg.path); err != nil {
			m.logf("save failed: %v", err)
			return m, nil
		}
		m.logf("saved %s", msg.path)
		m.deps.Config.UI.LastFile = msg.path
		m.saveSettings()
		return m, nil
	}

	tl, err := timeline.ReadFile(msg.path)
	if err != nil {
		m.logf("load failed: %v", err)
		return m, nil
	}
	if tl.Empty() {
		m.logf("%s has no notes", msg.path)
		return m, nil
	}
	m.logf("loaded %s: %s", msg.path, tl)
	m.settings.Tempo = int(math.Round(tl.Tempo))
	m.deps.Config.UI.LastFile = msg.path
	m.fillInputs()
	m.saveSettings()
	return m, m.install(tl, "Unknown", library.Meta{Source: "file", Tempo: m.settings.Tempo})
}

func (m *Model) stopSync() {
	if m.deps.Sync != nil {
		m.deps.Sync.Stop()
	}
}

// viewPx is the roll's visible width in canvas pixels
func (m Model) viewPx() int {
	return max(m.rollCols(), 1) * pxPerCol
}

func (m Model) rollCols() int {
	return max(m.width-gutterWidth-1, 10)
}
