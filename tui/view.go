package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"midiroll/pianoroll"
	"midiroll/theme"
	"midiroll/widgets"
)

// pitch label column left of the roll
const gutterWidth = 5

var keySections = []widgets.KeySection{
	{Title: "Generate", Keys: []widgets.KeyBinding{
		{Key: "g", Desc: "melody"},
		{Key: "m", Desc: "model"},
	}},
	{Title: "Playback", Keys: []widgets.KeyBinding{
		{Key: "p", Desc: "play"},
		{Key: "x", Desc: "stop"},
	}},
	{Title: "File", Keys: []widgets.KeyBinding{
		{Key: "o", Desc: "open"},
		{Key: "w", Desc: "save"},
	}},
	{Title: "View", Keys: []widgets.KeyBinding{
		{Key: "e", Desc: "settings"},
		{Key: "h/l", Desc: "scroll"},
		{Key: "?", Desc: "help"},
		{Key: "q", Desc: "quit"},
	}},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.deps.Theme
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())

	state := "STOP"
	if m.deps.Controller != nil && m.deps.Controller.Playing() {
		state = lipgloss.NewStyle().Foreground(th.Active()).Render("PLAY")
	}
	key := m.keyLabel
	if key == "" {
		key = "-"
	}
	header := headerStyle.Render("midiroll") + fmt.Sprintf("  %s  %dbpm  key:%s  loop:%d",
		state, m.settings.Tempo, key, m.loops)

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n\n")
	if m.showHelp {
		out.WriteString(m.viewHelp())
	} else {
		out.WriteString(m.viewRoll())
	}
	out.WriteString("\n")
	if legend := m.viewLegend(); legend != "" {
		out.WriteString(legend)
		out.WriteString("\n")
	}
	out.WriteString("\n")
	out.WriteString(m.viewSettings())
	out.WriteString("\n\n")
	out.WriteString(m.viewConsole())
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keySections)))
	return out.String()
}

// rollRows is how many pitch rows fit once the other panes are drawn
func (m Model) rollRows() int {
	return max(m.height-14, 4)
}

func (m Model) viewRoll() string {
	th := m.deps.Theme
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())

	if m.layout.Placeholder() {
		msg := "no melody yet, press g to generate or o to open a file"
		return dimStyle.Render(strings.Repeat(" ", gutterWidth) + msg)
	}

	cols := m.rollCols()
	rows := min(m.layout.Rows(), m.rollRows())
	grid := m.layout.CellsFrom(float64(m.offset), cols, rows, pxPerCol)

	head := -1
	if m.deps.Sync != nil && m.deps.Sync.Running() {
		head = (int(m.x) - m.offset) / pxPerCol
	}

	blackStyle := lipgloss.NewStyle().Background(th.Surface())
	headStyle := lipgloss.NewStyle().Foreground(th.Cursor())

	lines := make([]string, 0, rows)
	for r, row := range grid {
		pitch := m.layout.PitchAt(r)
		black := pianoroll.IsBlackKey(pitch)

		var b strings.Builder
		b.WriteString(dimStyle.Render(fmt.Sprintf("%-*s", gutterWidth, pianoroll.PitchName(pitch))))
		for c, cell := range row {
			switch {
			case c == head && cell != pianoroll.NoNote:
				b.WriteString(headStyle.Render(string(th.Symbols.OnHead)))
			case c == head:
				b.WriteString(headStyle.Render(string(th.Symbols.Playhead)))
			case cell != pianoroll.NoNote:
				color := pianoroll.TrackColor(th.Palette, int(cell))
				b.WriteString(lipgloss.NewStyle().Foreground(theme.Hex(color)).Render(string(th.Symbols.Note)))
			case black:
				b.WriteString(blackStyle.Render(string(th.Symbols.Black)))
			default:
				b.WriteString(dimStyle.Render(string(th.Symbols.Empty)))
			}
		}
		lines = append(lines, b.String())
	}
	if hidden := m.layout.Rows() - rows; hidden > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%*s(%d lower rows hidden)", gutterWidth, "", hidden)))
	}
	return strings.Join(lines, "\n")
}

// viewHelp takes the roll's place while ? is toggled on
func (m Model) viewHelp() string {
	style := lipgloss.NewStyle().Foreground(m.deps.Theme.FG()).PaddingLeft(gutterWidth)
	return style.Render(widgets.RenderKeyHelp(keySections))
}

func (m Model) viewLegend() string {
	if m.timeline.Empty() || len(m.timeline.Tracks) < 2 {
		return ""
	}
	var items []string
	for _, tr := range m.timeline.Tracks {
		name := tr.Name
		if name == "" {
			name = fmt.Sprintf("track %d", tr.ID)
		}
		items = append(items, widgets.RenderLegendItem(pianoroll.TrackColor(m.deps.Theme.Palette, tr.ID), name))
	}
	return strings.Repeat(" ", gutterWidth) + strings.Join(items, "  ")
}

func (m Model) viewSettings() string {
	th := m.deps.Theme
	labelStyle := lipgloss.NewStyle().Foreground(th.Muted())
	focusStyle := lipgloss.NewStyle().Foreground(th.Accent())

	labels := [numFields]string{"tempo", "key", "bars"}
	var parts []string
	for i, label := range labels {
		style := labelStyle
		if m.editing && i == m.focus {
			style = focusStyle
		}
		var value string
		if m.editing {
			value = m.inputs[i].View()
		} else {
			value = m.inputs[i].Value()
		}
		parts = append(parts, style.Render(label+":")+" "+value)
	}
	line := strings.Join(parts, "   ")
	if m.editing {
		line += labelStyle.Render("   enter:apply esc:cancel tab:next")
	}
	return line
}

func (m Model) viewConsole() string {
	style := lipgloss.NewStyle().Foreground(m.deps.Theme.FG())
	const shown = 4
	start := max(len(m.console)-shown, 0)
	lines := make([]string, 0, shown)
	for _, l := range m.console[start:] {
		lines = append(lines, "> "+l)
	}
	for len(lines) < shown {
		lines = append(lines, "")
	}
	return style.Render(strings.Join(lines, "\n"))
}
