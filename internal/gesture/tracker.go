// Package gesture turns pointer motion around the winding key into signed
// rotation, clicks and a release event.
package gesture

import (
	"errors"
	"math"
	"sync"
	"time"

	"musicbox/internal/clock"
	"musicbox/internal/log"
)

var (
	// ErrInvalidGestureTarget is returned by OnPress when the key control is
	// not mounted, so no pivot can be computed. The press is ignored.
	ErrInvalidGestureTarget = errors.New("gesture: key control not mounted")
	// ErrAlreadyDragging is returned for a second press while one contact is
	// already being tracked.
	ErrAlreadyDragging = errors.New("gesture: already dragging")
	// ErrInvalidPoint is returned for a press at a non-finite position.
	ErrInvalidPoint = errors.New("gesture: non-finite point")
)

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "DRAGGING"
	}
	return "IDLE"
}

type Point struct {
	X, Y float64
}

// Target locates the pivot of the winding key in screen coordinates.
type Target interface {
	Pivot() (Point, bool)
}

// Clicker fires one winding click.
type Clicker interface {
	Fire()
}

// Resumer unlocks a suspended audio output.
type Resumer interface {
	Resume() error
}

type Options struct {
	Target  Target
	Clicker Clicker
	Output  Resumer
	Clock   clock.Clock
	// Cadence is the minimum gap between two clicks.
	Cadence time.Duration
	// OnRelease runs after every completed drag, outside the tracker lock.
	OnRelease func()
	Log       *log.Logger
}

// Tracker is the IDLE/DRAGGING state machine behind the winding key.
type Tracker struct {
	opts Options

	mu         sync.Mutex
	state      State
	pivot      Point
	lastAngle  float64 // valid only while dragging
	cumulative float64
	lastClick  time.Time
}

func NewTracker(opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = log.Discard()
	}
	return &Tracker{opts: opts}
}

// AngleDeg is the angle of p around pivot in degrees, in (-180, 180].
func AngleDeg(pivot, p Point) float64 {
	return math.Atan2(p.Y-pivot.Y, p.X-pivot.X) * 180 / math.Pi
}

// ShortestDelta is the signed rotation from one angle to another, taking
// the short way across the -180/180 seam. The result is in (-180, 180]; an
// exact half turn counts as winding.
func ShortestDelta(from, to float64) float64 {
	d := to - from
	if d > 180 {
		d -= 360
	}
	if d <= -180 {
		d += 360
	}
	return d
}

// OnPress starts a drag at p. The pivot is computed once per drag.
func (t *Tracker) OnPress(p Point) error {
	if !finite(p) {
		return ErrInvalidPoint
	}
	t.mu.Lock()
	if t.state == Dragging {
		t.mu.Unlock()
		return ErrAlreadyDragging
	}
	var (
		pivot Point
		ok    bool
	)
	if t.opts.Target != nil {
		pivot, ok = t.opts.Target.Pivot()
	}
	if !ok {
		t.mu.Unlock()
		t.opts.Log.Debugf("press at (%.1f, %.1f) ignored: %v", p.X, p.Y, ErrInvalidGestureTarget)
		return ErrInvalidGestureTarget
	}
	t.pivot = pivot
	t.lastAngle = AngleDeg(pivot, p)
	t.state = Dragging
	t.mu.Unlock()

	if t.opts.Output != nil {
		if err := t.opts.Output.Resume(); err != nil {
			t.opts.Log.Debugf("audio resume on press: %v", err)
		}
	}
	return nil
}

// OnMove feeds a pointer position. Only positive (winding) deltas advance
// the angle and may click. It returns the corrected delta and whether a
// click fired; moves while idle or at a non-finite point return (0, false).
func (t *Tracker) OnMove(p Point) (float64, bool) {
	t.mu.Lock()
	if t.state != Dragging || !finite(p) {
		t.mu.Unlock()
		return 0, false
	}
	angle := AngleDeg(t.pivot, p)
	delta := ShortestDelta(t.lastAngle, angle)
	t.lastAngle = angle

	clicked := false
	if delta > 0 {
		t.cumulative += delta
		now := t.opts.Clock.Now()
		if now.Sub(t.lastClick) > t.opts.Cadence {
			t.lastClick = now
			clicked = true
		}
	}
	t.mu.Unlock()

	if clicked && t.opts.Clicker != nil {
		t.opts.Clicker.Fire()
	}
	return delta, clicked
}

// OnRelease ends the drag and runs the release callback. It reports
// whether a drag was actually in progress.
func (t *Tracker) OnRelease() bool {
	t.mu.Lock()
	if t.state != Dragging {
		t.mu.Unlock()
		return false
	}
	t.state = Idle
	t.lastAngle = 0
	t.mu.Unlock()

	if t.opts.OnRelease != nil {
		t.opts.OnRelease()
	}
	return true
}

// Cancel abandons a drag without running the release callback. It
// reports whether a drag was in progress.
func (t *Tracker) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Dragging {
		return false
	}
	t.state = Idle
	t.lastAngle = 0
	return true
}

// Spin turns the key backwards by step degrees regardless of drag state.
func (t *Tracker) Spin(step float64) {
	t.mu.Lock()
	t.cumulative -= step
	t.mu.Unlock()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) Dragging() bool { return t.State() == Dragging }

// Angle is the cumulative visual angle of the key in degrees.
func (t *Tracker) Angle() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cumulative
}
