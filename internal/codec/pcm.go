package codec

import (
	"errors"

	"github.com/go-audio/audio"
)

// ErrNoChannels is returned for PCM buffers that declare zero channels.
var ErrNoChannels = errors.New("codec: pcm buffer has no channels")

// StereoFrames converts an interleaved integer buffer of any bit depth and
// channel count into stereo float frames. Mono is duplicated to both sides,
// channels past the second are dropped.
func StereoFrames(buf *audio.IntBuffer) ([][2]float64, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrNoChannels
	}
	ch := buf.Format.NumChannels
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << uint(depth-1))

	frames := make([][2]float64, 0, len(buf.Data)/ch)
	for i := 0; i+ch <= len(buf.Data); i += ch {
		l := float64(buf.Data[i]) / scale
		r := l
		if ch > 1 {
			r = float64(buf.Data[i+1]) / scale
		}
		frames = append(frames, [2]float64{l, r})
	}
	return frames, nil
}

// Int16Interleaved converts an integer buffer to 16-bit stereo interleaved
// PCM, the layout the opus encoder expects.
func Int16Interleaved(buf *audio.IntBuffer) ([]int16, error) {
	frames, err := StereoFrames(buf)
	if err != nil {
		return nil, err
	}
	out := make([]int16, 0, len(frames)*2)
	for _, f := range frames {
		out = append(out, toInt16(f[0]), toInt16(f[1]))
	}
	return out, nil
}

// NormalizePCM scales samples so the loudest one sits just under full scale.
func NormalizePCM(samples []int16) []int16 {
	var peak int
	for _, s := range samples {
		a := int(s)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return samples
	}
	ratio := 32760.0 / float64(peak)
	for i := range samples {
		samples[i] = toInt16(float64(samples[i]) * ratio / 32768.0)
	}
	return samples
}

func toInt16(v float64) int16 {
	s := v * 32768.0
	if s > 32767 {
		s = 32767
	} else if s < -32768 {
		s = -32768
	}
	return int16(s)
}
