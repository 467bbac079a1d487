package controller

import (
	"fmt"
	"strings"

	"musicbox/internal/loader"
)

// TrackState is one catalog entry with its load state.
type TrackState struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status loader.Status `json:"status"`
	Err    string        `json:"error,omitempty"`
}

// Snapshot is the read-only state the presentation layer renders.
type Snapshot struct {
	Playing      bool            `json:"playing"`
	Dragging     bool            `json:"dragging"`
	Angle        float64         `json:"angle"`
	Glow         float64         `json:"glow"`
	Loaded       map[string]bool `json:"loaded"`
	Selected     string          `json:"selected"`
	SelectedName string          `json:"selected_name"`
	Mounted      bool            `json:"mounted"`
	Tracks       []TrackState    `json:"tracks"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	sel := c.selected
	playing := c.engine.Playing()
	glow := c.engine.Glow()
	c.mu.Unlock()

	ready := c.lib.Readiness()
	s := Snapshot{
		Playing:      playing,
		Dragging:     c.tracker.Dragging(),
		Angle:        c.tracker.Angle(),
		Glow:         glow,
		Loaded:       map[string]bool{},
		Selected:     sel.ID,
		SelectedName: sel.Name,
	}
	_, s.Mounted = c.key.Bounds()
	for _, t := range c.cat.Tracks() {
		r, ok := ready[t.ID]
		if !ok {
			r = loader.Readiness{Status: loader.Pending}
		}
		s.Tracks = append(s.Tracks, TrackState{ID: t.ID, Name: t.Name, Status: r.Status, Err: r.Err})
		s.Loaded[t.ID] = r.Status == loader.Ready
	}
	return s
}

// Tuning reports whether any track is still loading.
func (s Snapshot) Tuning() bool {
	for _, t := range s.Tracks {
		if t.Status == loader.Pending {
			return true
		}
	}
	return false
}

// StatusLine is the one-line caption under the box.
func StatusLine(s Snapshot) string {
	switch {
	case s.Tuning():
		var b strings.Builder
		b.WriteString("♪ Tuning the tines...")
		for _, t := range s.Tracks {
			if t.Status == loader.Ready {
				fmt.Fprintf(&b, " %s ✓", t.Name)
			}
		}
		return b.String()
	case s.Playing:
		return fmt.Sprintf("♪ Playing %s... ♪", s.SelectedName)
	default:
		return "Wind the key clockwise to play"
	}
}
