// Package controller is the composition root of the music box. It wires
// the winding key to playback and exposes the observable state.
package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"musicbox/internal/audioctx"
	"musicbox/internal/catalog"
	"musicbox/internal/click"
	"musicbox/internal/clock"
	"musicbox/internal/gesture"
	"musicbox/internal/loader"
	"musicbox/internal/log"
	"musicbox/internal/playback"
	"musicbox/pkg/spec"
)

var ErrUnknownTrack = errors.New("unknown track")

// Library is the loader as seen by the controller.
type Library interface {
	playback.Buffers
	Readiness() map[string]loader.Readiness
}

// Event is pushed to the presentation layer on every state change.
type Event struct {
	Kind   string `json:"event"`
	Track  string `json:"track,omitempty"`
	Status string `json:"status,omitempty"`
	Err    string `json:"error,omitempty"`
}

const (
	EventStarted  = "started"
	EventStopped  = "stopped"
	EventSelected = "selected"
	EventLoaded   = "loaded"
	EventPressed  = "pressed"
	EventReleased = "released"
)

type Options struct {
	Catalog   *catalog.Catalog
	Library   Library
	Output    audioctx.Output
	Clock     clock.Clock
	ClickGain float64
	Cadence   time.Duration
	Log       *log.Logger
	// OnEvent is called outside the controller lock.
	OnEvent func(Event)
}

// Controller serializes every input under its own lock. Lock order is
// controller, then engine, then tracker.
type Controller struct {
	cat     *catalog.Catalog
	lib     Library
	log     *log.Logger
	onEvent func(Event)

	key     *gesture.Key
	clicker *click.Synthesizer
	tracker *gesture.Tracker
	engine  *playback.Engine

	mu       sync.Mutex
	selected catalog.Track
	pending  []Event
}

func New(opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = log.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.ClickGain == 0 {
		opts.ClickGain = spec.ClickGain
	}
	if opts.Cadence == 0 {
		opts.Cadence = spec.ClickCadence
	}

	c := &Controller{
		cat:      opts.Catalog,
		lib:      opts.Library,
		log:      opts.Log,
		onEvent:  opts.OnEvent,
		key:      &gesture.Key{},
		selected: opts.Catalog.First(),
	}
	c.clicker = click.New(opts.Output, opts.ClickGain, opts.Log)
	c.tracker = gesture.NewTracker(gesture.Options{
		Target:    c.key,
		Clicker:   c.clicker,
		Output:    opts.Output,
		Clock:     opts.Clock,
		Cadence:   opts.Cadence,
		OnRelease: c.released,
		Log:       opts.Log,
	})
	c.engine = playback.New(playback.Options{
		Output:  opts.Output,
		Buffers: opts.Library,
		Clock:   opts.Clock,
		Spinner: c.tracker,
		Log:     opts.Log,
	})
	return c
}

// Key is the winding key control the presentation layer mounts.
func (c *Controller) Key() *gesture.Key { return c.key }

// Clicker exposes the synthesizer so tests can seed it.
func (c *Controller) Clicker() *click.Synthesizer { return c.clicker }

func (c *Controller) Press(p gesture.Point) error {
	c.mu.Lock()
	err := c.tracker.OnPress(p)
	if err == nil {
		c.queue(Event{Kind: EventPressed})
	}
	c.mu.Unlock()
	c.flush()
	return err
}

// Move reports the corrected delta and whether a click fired.
func (c *Controller) Move(p gesture.Point) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.OnMove(p)
}

// Release ends the drag; the selected track starts from its beginning.
// It reports whether a drag was in progress.
func (c *Controller) Release() bool {
	c.mu.Lock()
	ok := c.tracker.OnRelease()
	c.mu.Unlock()
	c.flush()
	return ok
}

// released runs from the tracker with c.mu held.
func (c *Controller) released() {
	c.queue(Event{Kind: EventReleased, Track: c.selected.ID})
	if c.engine.SwitchTo(c.selected.ID) {
		c.queue(Event{Kind: EventStarted, Track: c.selected.ID})
		return
	}
	c.queue(Event{Kind: EventStopped, Track: c.selected.ID, Status: "not ready"})
}

// Select stops playback and changes the selected track. It never starts
// playback; the key has to be wound again.
func (c *Controller) Select(id string) error {
	t, ok := c.cat.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrack, id)
	}
	c.mu.Lock()
	c.selectLocked(t)
	c.mu.Unlock()
	c.flush()
	return nil
}

// Toggle selects the next catalog track.
func (c *Controller) Toggle() catalog.Track {
	c.mu.Lock()
	t := c.cat.Next(c.selected.ID)
	c.selectLocked(t)
	c.mu.Unlock()
	c.flush()
	return t
}

func (c *Controller) selectLocked(t catalog.Track) {
	c.stopLocked()
	c.selected = t
	c.queue(Event{Kind: EventSelected, Track: t.ID})
}

func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) stopLocked() {
	if cur := c.engine.Current(); cur != "" {
		c.engine.Stop()
		c.queue(Event{Kind: EventStopped, Track: cur})
		return
	}
	c.engine.Stop()
}

// CancelDrag drops a drag in progress without starting playback.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker.Cancel() {
		c.log.Debugf("drag cancelled")
	}
}

func (c *Controller) Dragging() bool { return c.tracker.Dragging() }

// Selected returns the currently selected track.
func (c *Controller) Selected() catalog.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// TrackChanged forwards a loader readiness change to the event stream.
func (c *Controller) TrackChanged(id string, r loader.Readiness) {
	c.emit(Event{Kind: EventLoaded, Track: id, Status: r.Status.String(), Err: r.Err})
}

// Close cancels any drag, stops playback and drops the key mount.
func (c *Controller) Close() {
	c.CancelDrag()
	c.Stop()
	c.key.Unmount()
}

func (c *Controller) queue(ev Event) {
	c.pending = append(c.pending, ev)
}

func (c *Controller) flush() {
	c.mu.Lock()
	evs := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ev := range evs {
		c.emit(ev)
	}
}

func (c *Controller) emit(ev Event) {
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}
