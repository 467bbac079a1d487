// Package click synthesizes the mechanical tick heard while winding.
package click

import (
	"errors"
	"math"
	"math/rand"
	"sync"

	"musicbox/internal/audioctx"
	"musicbox/internal/codec"
	"musicbox/internal/log"
	"musicbox/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// Synthesizer fires short decaying noise bursts at an output. Every Fire
// allocates its own burst and gain stage; nothing is retained.
type Synthesizer struct {
	out  audioctx.Output
	gain float64
	log  *log.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(out audioctx.Output, gain float64, logger *log.Logger) *Synthesizer {
	return &Synthesizer{
		out:  out,
		gain: gain,
		log:  logger,
		rnd:  rand.New(rand.NewSource(rand.Int63())),
	}
}

// Seed makes the noise deterministic.
func (s *Synthesizer) Seed(seed int64) {
	s.mu.Lock()
	s.rnd = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}

// Burst renders one click: uniform noise in [-1,1) under an exponential
// envelope with a 10ms time constant, 50ms long.
func Burst(sr beep.SampleRate, rnd func() float64) [][2]float64 {
	n := sr.N(spec.ClickDuration)
	decay := spec.ClickDecay.Seconds() * float64(sr)
	out := make([][2]float64, n)
	for i := range out {
		v := (rnd()*2 - 1) * math.Exp(-float64(i)/decay)
		out[i] = [2]float64{v, v}
	}
	return out
}

// Fire plays one click and forgets it. A missing output is not an error.
func (s *Synthesizer) Fire() {
	s.mu.Lock()
	burst := Burst(s.out.SampleRate(), s.rnd.Float64)
	s.mu.Unlock()

	g := &effects.Gain{Streamer: codec.NewFrameStreamer(burst), Gain: s.gain - 1}
	if err := s.out.Play(g); err != nil {
		if !errors.Is(err, audioctx.ErrUnavailable) {
			s.log.Debugf("click dropped: %v", err)
		}
	}
}
