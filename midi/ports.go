// Package midi sends timelines to MIDI output ports.
package midi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"midiroll/debug"
)

// ScanTimeout bounds a port scan; CoreMIDI can hang
const ScanTimeout = 3 * time.Second

var ErrScanTimeout = errors.New("midi port scan timed out")

// Ports lists input and output port names
type Ports struct {
	In  []string
	Out []string
}

// ListPorts scans the driver for ports, giving up after ScanTimeout
func ListPorts() (Ports, error) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		var p Ports
		for _, in := range r.ins {
			p.In = append(p.In, in.String())
		}
		for _, out := range r.outs {
			p.Out = append(p.Out, out.String())
		}
		return p, nil
	case <-time.After(ScanTimeout):
		return Ports{}, ErrScanTimeout
	}
}

// FindOut returns the first output port whose name contains name
// (case-insensitive). An empty name picks the first port.
func FindOut(name string) (drivers.Out, error) {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil, errors.New("no midi output ports")
	}
	if name == "" {
		return outs[0], nil
	}
	if i := matchPort(portNames(outs), name); i >= 0 {
		return outs[i], nil
	}
	return nil, fmt.Errorf("no midi output port matching %q", name)
}

func portNames(outs []drivers.Out) []string {
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names
}

func matchPort(names []string, want string) int {
	want = strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return i
		}
	}
	return -1
}

// CloseDriver releases the MIDI driver
func CloseDriver() {
	gomidi.CloseDriver()
}

// PortEvent is emitted when an output port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

func (t PortEventType) String() string {
	if t == PortConnected {
		return "connected"
	}
	return "disconnected"
}

// PortWatcher polls the output ports and reports hot-plug changes
type PortWatcher struct {
	mu       sync.Mutex
	known    map[string]bool
	events   chan PortEvent
	pollRate time.Duration
	scan     func() (Ports, error)
}

func NewPortWatcher() *PortWatcher {
	return &PortWatcher{
		known:    make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
		scan:     ListPorts,
	}
}

// Events returns a channel of port connect/disconnect events
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *PortWatcher) poll(ctx context.Context) {
	ports, err := w.scan()
	if err != nil {
		debug.Log("midi", "port scan: %v", err)
		return
	}

	w.mu.Lock()
	seen := make(map[string]bool, len(ports.Out))
	var evs []PortEvent
	for _, name := range ports.Out {
		seen[name] = true
		if !w.known[name] {
			evs = append(evs, PortEvent{Type: PortConnected, Name: name})
		}
	}
	for name := range w.known {
		if !seen[name] {
			evs = append(evs, PortEvent{Type: PortDisconnected, Name: name})
		}
	}
	w.known = seen
	w.mu.Unlock()

	for _, ev := range evs {
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
