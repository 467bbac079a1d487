package codec

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"
)

const (
	fftSize        = 1024
	waveformPoints = 64
)

// Analysis summarizes a decoded track for presentation.
type Analysis struct {
	Duration   time.Duration `json:"duration"`
	Peak       float64       `json:"peak"`
	Waveform   []byte        `json:"waveform"`
	DominantHz float64       `json:"dominant_hz"`
}

// Analyze computes duration, peak, a coarse RMS waveform and the dominant
// frequency of the loudest window.
func Analyze(frames [][2]float64, sampleRate int) Analysis {
	a := Analysis{}
	if sampleRate <= 0 || len(frames) == 0 {
		return a
	}
	a.Duration = time.Duration(len(frames)) * time.Second / time.Duration(sampleRate)

	mono := make([]float64, len(frames))
	for i, f := range frames {
		mono[i] = (f[0] + f[1]) / 2
		if p := math.Max(math.Abs(f[0]), math.Abs(f[1])); p > a.Peak {
			a.Peak = p
		}
	}
	a.Waveform = Waveform(mono, waveformPoints)
	a.DominantHz = DominantFrequency(mono, sampleRate)
	return a
}

// Waveform returns up to points RMS levels scaled to 0-255.
func Waveform(mono []float64, points int) []byte {
	if len(mono) == 0 || points <= 0 {
		return nil
	}
	step := len(mono) / points
	if step == 0 {
		step = 1
	}
	out := make([]byte, 0, points)
	for i := 0; i < len(mono) && len(out) < points; i += step {
		var sum float64
		count := 0
		for j := 0; j < step && i+j < len(mono); j++ {
			sum += mono[i+j] * mono[i+j]
			count++
		}
		rms := math.Sqrt(sum / float64(count))
		out = append(out, uint8(math.Min(rms*255.0*5.0, 255.0)))
	}
	return out
}

// DominantFrequency finds the strongest FFT bin of the loudest window.
// Tracks shorter than one window are zero padded.
func DominantFrequency(mono []float64, sampleRate int) float64 {
	if len(mono) == 0 || sampleRate <= 0 {
		return 0
	}

	start, best := 0, -1.0
	for s := 0; s+fftSize <= len(mono); s += fftSize / 2 {
		var e float64
		for _, v := range mono[s : s+fftSize] {
			e += v * v
		}
		if e > best {
			best, start = e, s
		}
	}

	window := make([]float64, fftSize)
	for i := 0; i < fftSize && start+i < len(mono); i++ {
		hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
		window[i] = mono[start+i] * hann
	}
	coeffs := fft.FFTReal(window)

	peakBin, peakMag := 0, 0.0
	for k := 1; k < fftSize/2; k++ {
		if m := cmplx.Abs(coeffs[k]); m > peakMag {
			peakMag, peakBin = m, k
		}
	}
	return float64(peakBin) * float64(sampleRate) / fftSize
}
