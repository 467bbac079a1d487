package gesture

import "sync"

type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Key is the mountable winding-key control. Its pivot is the center of its
// bounds; an unmounted key has no pivot.
type Key struct {
	mu     sync.Mutex
	bounds *Rect
}

func (k *Key) Mount(r Rect) {
	k.mu.Lock()
	k.bounds = &r
	k.mu.Unlock()
}

func (k *Key) Unmount() {
	k.mu.Lock()
	k.bounds = nil
	k.mu.Unlock()
}

func (k *Key) Bounds() (Rect, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.bounds == nil {
		return Rect{}, false
	}
	return *k.bounds, true
}

func (k *Key) Pivot() (Point, bool) {
	r, ok := k.Bounds()
	if !ok {
		return Point{}, false
	}
	return r.Center(), true
}
