package codec

import (
	"fmt"

	"github.com/faiface/beep"
)

// FrameStreamer plays an in-memory slice of stereo samples once.
type FrameStreamer struct {
	data [][2]float64
	pos  int
}

var _ beep.StreamSeeker = (*FrameStreamer)(nil)

func NewFrameStreamer(data [][2]float64) *FrameStreamer {
	return &FrameStreamer{data: data}
}

func (f *FrameStreamer) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= len(f.data) {
		return 0, false
	}
	n := copy(samples, f.data[f.pos:])
	f.pos += n
	return n, true
}

func (f *FrameStreamer) Err() error { return nil }

func (f *FrameStreamer) Len() int { return len(f.data) }

func (f *FrameStreamer) Position() int { return f.pos }

func (f *FrameStreamer) Seek(p int) error {
	if p < 0 || p > len(f.data) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(f.data))
	}
	f.pos = p
	return nil
}
