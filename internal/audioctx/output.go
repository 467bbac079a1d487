// Package audioctx owns the process-wide audio output shared by the click
// synthesizer and the playback engine.
package audioctx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// ErrUnavailable means the platform has no usable audio output. Sounds
// become silent no-ops; everything else keeps working.
var ErrUnavailable = errors.New("audio output unavailable")

// Output is the destination every streamer is connected to.
type Output interface {
	SampleRate() beep.SampleRate
	// Resume unlocks a suspended output. It is cheap once running.
	Resume() error
	// Play connects s to the output. It returns ErrUnavailable unless the
	// output is running.
	Play(s beep.Streamer) error
	// Lock guards streamers that are mutated while connected.
	Lock()
	Unlock()
}

type state int

const (
	suspended state = iota
	running
	failed
	closed
)

// Speaker is the default output. It starts suspended and opens the device
// on the first Resume, the way a browser unlocks audio on a user gesture.
type Speaker struct {
	sr     beep.SampleRate
	buffer time.Duration

	mu    sync.Mutex
	state state
	err   error

	// swapped in tests
	initFn func(sr beep.SampleRate, bufferSize int) error
}

func NewSpeaker(sampleRate int, buffer time.Duration) *Speaker {
	return &Speaker{
		sr:     beep.SampleRate(sampleRate),
		buffer: buffer,
		initFn: speaker.Init,
	}
}

func (s *Speaker) SampleRate() beep.SampleRate { return s.sr }

func (s *Speaker) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case running:
		return nil
	case failed:
		return s.err
	case closed:
		return ErrUnavailable
	}
	if err := s.initFn(s.sr, s.sr.N(s.buffer)); err != nil {
		s.state = failed
		s.err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		return s.err
	}
	s.state = running
	return nil
}

func (s *Speaker) Play(st beep.Streamer) error {
	s.mu.Lock()
	ok := s.state == running
	s.mu.Unlock()
	if !ok {
		return ErrUnavailable
	}
	speaker.Play(st)
	return nil
}

func (s *Speaker) Lock()   { speaker.Lock() }
func (s *Speaker) Unlock() { speaker.Unlock() }

// Running reports whether the device has been opened successfully.
func (s *Speaker) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == running
}

// Close drops everything still connected. The output cannot be resumed
// afterwards.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == running {
		speaker.Clear()
	}
	s.state = closed
}
