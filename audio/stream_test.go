package audio

import (
	"encoding/binary"
	"io"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constRenderer struct {
	l, r  float32
	calls int
}

func (c *constRenderer) Render(left, right []float32) {
	c.calls++
	for i := range left {
		left[i] = c.l
		right[i] = c.r
	}
}

func TestStreamInterleaves(t *testing.T) {
	src := &constRenderer{l: 0.25, r: -0.5}
	s := newStream(src, 0)

	p := make([]byte, 8*4+3) // trailing partial frame is ignored
	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	for i := 0; i < 4; i++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(p[i*8:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(p[i*8+4:]))
		assert.Equal(t, float32(0.25), l)
		assert.Equal(t, float32(-0.5), r)
	}
}

func TestStreamStopsAtLimit(t *testing.T) {
	src := &constRenderer{}
	s := newStream(src, 6)
	p := make([]byte, 8*4)

	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	n, err = s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	n, err = s.Read(p)
	assert.Equal(t, io.EOF, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, src.calls)
}

func TestNewSynthEngineErrors(t *testing.T) {
	_, err := NewSynthEngine("", 0)
	assert.Error(t, err)

	_, err = NewSynthEngine(filepath.Join(t.TempDir(), "missing.sf2"), 0)
	assert.Error(t, err)
}
