// Package audio plays timelines through a SoundFont synthesizer.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Renderer fills one block of stereo samples
type Renderer interface {
	Render(left, right []float32)
}

// stream adapts a Renderer to the interleaved float32 little-endian byte
// stream ebiten's F32 players read. After limit frames (when non-zero) it
// reports io.EOF.
type stream struct {
	mu          sync.Mutex
	src         Renderer
	left, right []float32
	limit       int64
	rendered    int64
}

func newStream(src Renderer, limitFrames int64) *stream {
	return &stream{src: src, limit: limitFrames}
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / 8
	if s.limit > 0 {
		remaining := s.limit - s.rendered
		if remaining <= 0 {
			return 0, io.EOF
		}
		frames = int(min(int64(frames), remaining))
	}
	if frames == 0 {
		return 0, nil
	}
	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	s.left, s.right = s.left[:frames], s.right[:frames]
	s.src.Render(s.left, s.right)

	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(s.left[i]))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(s.right[i]))
	}
	s.rendered += int64(frames)
	return frames * 8, nil
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

// sharedContext returns the process-wide audio context; ebiten allows one
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (want %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}
