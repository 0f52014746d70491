package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"midiroll/midi"
	"midiroll/playback"
	"midiroll/timeline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "note":
		err = testNote(arg(2))
	case "play":
		if len(os.Args) < 3 {
			usage()
			return
		}
		err = playFile(os.Args[2], arg(3))
	case "poll":
		pollPorts()
	default:
		usage()
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func arg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI port diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list               - List all MIDI ports")
	fmt.Println("  note [port]        - Play middle C on an output port")
	fmt.Println("  play file [port]   - Loop a .mid file through an output port")
	fmt.Println("  poll               - Report ports as they come and go")
}

func listPorts() error {
	fmt.Println("=== MIDI Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.ScanTimeout)

	ports, err := midi.ListPorts()
	if err != nil {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	fmt.Println("Inputs:")
	for i, p := range ports.In {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\nOutputs:")
	for i, p := range ports.Out {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func testNote(port string) error {
	out, err := midi.FindOut(port)
	if err != nil {
		return err
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return err
	}
	fmt.Printf("Playing C4 on %s\n", out)
	if err := send(gomidi.NoteOn(0, 60, 100)); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	return send(gomidi.NoteOff(0, 60))
}

func playFile(path, port string) error {
	tl, err := timeline.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := midi.FindOut(port)
	if err != nil {
		return err
	}
	engine, err := midi.NewPortEngine(out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := playback.NewController(engine)
	if err := c.Start(ctx, tl); err != nil {
		return err
	}
	fmt.Printf("Looping %s on %s (ctrl+c to stop)\n", tl, out)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.Stop(stopCtx)
}

func pollPorts() {
	fmt.Println("Watching for port changes (ctrl+c to stop)...")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := midi.NewPortWatcher()
	go w.Run(ctx)
	for ev := range w.Events() {
		fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), ev.Type, ev.Name)
	}
}
