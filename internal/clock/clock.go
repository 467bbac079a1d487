// Package clock provides the time source and periodic tasks used by the
// gesture tracker and the playback engine.
package clock

import (
	"sync"
	"time"
)

// Cancel stops a periodic task. It is safe to call more than once.
type Cancel func()

type Clock interface {
	Now() time.Time
	// Every runs fn every d until the returned Cancel is called.
	Every(d time.Duration, fn func()) Cancel
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Every(d time.Duration, fn func()) Cancel {
	t := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Manual is a clock that only moves when Advance is called. Tasks fire
// synchronously on the goroutine calling Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*task
}

type task struct {
	next     time.Time
	interval time.Duration
	fn       func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: map[int]*task{}}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.tasks[id] = &task{next: m.now.Add(d), interval: d, fn: fn}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Advance moves the clock forward by d, firing every task that falls due in
// chronological order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		t := m.earliest(target)
		if t == nil {
			break
		}
		m.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// Pending reports how many periodic tasks are still armed.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) earliest(limit time.Time) *task {
	bestID := -1
	var best *task
	for id, t := range m.tasks {
		if t.next.After(limit) {
			continue
		}
		if best == nil || t.next.Before(best.next) || (t.next.Equal(best.next) && id < bestID) {
			bestID, best = id, t
		}
	}
	return best
}
