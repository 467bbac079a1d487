// Package playback owns the single looping session connected to the audio
// output and the periodic glow and spin tasks that live with it.
package playback

import (
	"math"
	"sync"

	"musicbox/internal/audioctx"
	"musicbox/internal/clock"
	"musicbox/internal/log"
	"musicbox/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// Buffers lends decoded tracks to the engine.
type Buffers interface {
	Buffer(id string) (*beep.Buffer, bool)
}

// Spinner receives the passive spin decrement while a session plays.
type Spinner interface {
	Spin(step float64)
}

type Options struct {
	Output  audioctx.Output
	Buffers Buffers
	Clock   clock.Clock
	Spinner Spinner
	Log     *log.Logger
}

// session is one looping source and its gain stage. At most one exists.
type session struct {
	track string
	ctrl  *beep.Ctrl
	gain  *effects.Gain
	tasks []clock.Cancel
}

type Engine struct {
	out     audioctx.Output
	buffers Buffers
	clock   clock.Clock
	spinner Spinner
	log     *log.Logger

	mu    sync.Mutex
	cur   *session
	gen   uint64
	phase float64
	glow  float64
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = log.Discard()
	}
	return &Engine{
		out:     opts.Output,
		buffers: opts.Buffers,
		clock:   opts.Clock,
		spinner: opts.Spinner,
		log:     opts.Log,
	}
}

// SwitchTo stops the current session and starts looping track from its
// beginning. It reports whether a new session is playing; a track with no
// buffer leaves the engine stopped.
func (e *Engine) SwitchTo(track string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	buf, ok := e.buffers.Buffer(track)
	if !ok {
		e.log.Debugf("switch to %s ignored: no buffer", track)
		return false
	}
	if err := e.out.Resume(); err != nil {
		e.log.Warnf("switch to %s: %v", track, err)
		return false
	}

	gain := &effects.Gain{Streamer: beep.Loop(-1, buf.Streamer(0, buf.Len())), Gain: 0}
	ctrl := &beep.Ctrl{Streamer: gain}
	if err := e.out.Play(ctrl); err != nil {
		e.log.Warnf("switch to %s: %v", track, err)
		return false
	}

	s := &session{track: track, ctrl: ctrl, gain: gain}
	gen := e.gen
	e.phase = 0
	e.glow = spec.GlowBase
	s.tasks = append(s.tasks,
		e.clock.Every(spec.GlowInterval, func() { e.pulse(gen) }),
		e.clock.Every(spec.SpinInterval, func() { e.spin(gen) }),
	)
	e.cur = s
	e.log.Infof("playing %s", track)
	return true
}

// Stop tears down the current session. Safe to call when stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur != nil {
		e.log.Infof("stopped %s", e.cur.track)
	}
	e.stopLocked()
}

// stopLocked bumps the generation first so ticks already queued behind the
// lock see a stale session and do nothing.
func (e *Engine) stopLocked() {
	e.gen++
	e.glow = 0
	e.phase = 0
	s := e.cur
	if s == nil {
		return
	}
	e.cur = nil
	for _, cancel := range s.tasks {
		cancel()
	}
	e.out.Lock()
	s.ctrl.Streamer = nil
	e.out.Unlock()
}

func (e *Engine) pulse(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.cur == nil {
		return
	}
	e.phase += spec.GlowPhaseStep
	e.glow = spec.GlowBase + spec.GlowDepth*math.Sin(e.phase)
}

func (e *Engine) spin(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.cur == nil || e.spinner == nil {
		return
	}
	e.spinner.Spin(spec.SpinStep)
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil
}

// Current returns the playing track id, or "" when stopped.
func (e *Engine) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return ""
	}
	return e.cur.track
}

// Glow returns the pulse value in [0,1]; exactly 0 when stopped.
func (e *Engine) Glow() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.glow
}
