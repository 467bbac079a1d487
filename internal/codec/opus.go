package codec

import (
	"fmt"

	"musicbox/pkg/spec"

	"github.com/hraban/opus"
)

const maxFrameBytes = 1500

// FrameEncoder cuts interleaved 48kHz stereo PCM into 20ms opus frames.
type FrameEncoder struct {
	enc     *opus.Encoder
	pending []int16
	scratch []byte
}

func NewFrameEncoder() (*FrameEncoder, error) {
	enc, err := opus.NewEncoder(spec.OpusSampleRate, spec.Channels, opus.AppAudio)
	if err != nil {
		return nil, err
	}
	return &FrameEncoder{enc: enc, scratch: make([]byte, maxFrameBytes)}, nil
}

// Write buffers pcm and calls emit for every complete frame.
func (e *FrameEncoder) Write(pcm []int16, emit func(frame []byte) error) error {
	e.pending = append(e.pending, pcm...)
	frameLen := spec.OpusFrameSamples * spec.Channels
	for len(e.pending) >= frameLen {
		if err := e.encode(e.pending[:frameLen], emit); err != nil {
			return err
		}
		e.pending = e.pending[frameLen:]
	}
	return nil
}

// Flush pads the remaining samples with silence and emits the last frame.
func (e *FrameEncoder) Flush(emit func(frame []byte) error) error {
	if len(e.pending) == 0 {
		return nil
	}
	chunk := make([]int16, spec.OpusFrameSamples*spec.Channels)
	copy(chunk, e.pending)
	e.pending = nil
	return e.encode(chunk, emit)
}

func (e *FrameEncoder) encode(chunk []int16, emit func(frame []byte) error) error {
	n, err := e.enc.Encode(chunk, e.scratch)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	frame := make([]byte, n)
	copy(frame, e.scratch[:n])
	return emit(frame)
}

// FrameDecoder turns opus frames back into stereo float samples.
type FrameDecoder struct {
	dec *opus.Decoder
	out []int16
}

func NewFrameDecoder() (*FrameDecoder, error) {
	dec, err := opus.NewDecoder(spec.OpusSampleRate, spec.Channels)
	if err != nil {
		return nil, err
	}
	// 120ms is the longest opus frame
	return &FrameDecoder{dec: dec, out: make([]int16, 5760*spec.Channels)}, nil
}

// Decode appends the decoded frame to dst.
func (d *FrameDecoder) Decode(frame []byte, dst [][2]float64) ([][2]float64, error) {
	n, err := d.dec.Decode(frame, d.out)
	if err != nil {
		return dst, fmt.Errorf("opus decode: %w", err)
	}
	for i := 0; i < n; i++ {
		dst = append(dst, [2]float64{
			float64(d.out[i*2]) / 32768.0,
			float64(d.out[i*2+1]) / 32768.0,
		})
	}
	return dst, nil
}
