package audioctx

import (
	"sync"

	"github.com/faiface/beep"
)

// Recorder is an in-memory Output that mixes connected streamers on demand
// instead of sending them to a device. Tests drive it with Pull.
type Recorder struct {
	sr beep.SampleRate

	mu       sync.Mutex
	mix      beep.Mixer
	played   int
	resumed  int
	disabled bool
}

func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{sr: beep.SampleRate(sampleRate)}
}

// Disable makes the recorder behave like a missing device.
func (r *Recorder) Disable() {
	r.mu.Lock()
	r.disabled = true
	r.mu.Unlock()
}

func (r *Recorder) SampleRate() beep.SampleRate { return r.sr }

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return ErrUnavailable
	}
	r.resumed++
	return nil
}

func (r *Recorder) Play(s beep.Streamer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return ErrUnavailable
	}
	r.played++
	r.mix.Add(s)
	return nil
}

func (r *Recorder) Lock()   { r.mu.Lock() }
func (r *Recorder) Unlock() { r.mu.Unlock() }

// Pull mixes n samples from everything connected, dropping streamers that
// have finished.
func (r *Recorder) Pull(n int) [][2]float64 {
	out := make([][2]float64, n)
	r.mu.Lock()
	r.mix.Stream(out)
	r.mu.Unlock()
	return out
}

// Active pulls one sample and reports how many streamers are still
// connected afterwards.
func (r *Recorder) Active() int {
	r.Pull(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mix.Len()
}

// Played counts successful Play calls.
func (r *Recorder) Played() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.played
}

// Resumed counts successful Resume calls.
func (r *Recorder) Resumed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resumed
}
