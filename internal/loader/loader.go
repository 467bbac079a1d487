// Package loader fetches and decodes catalog tracks into playable buffers
// and keeps the per-track readiness map.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"musicbox/internal/catalog"
	"musicbox/internal/codec"
	"musicbox/internal/log"

	"github.com/faiface/beep"
)

type Status int

const (
	Pending Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Readiness is the load state of one track.
type Readiness struct {
	Status Status `json:"status"`
	Err    string `json:"error,omitempty"`
}

// LoadError reports a fetch or decode failure for one track. A failed
// track stays unloaded for the life of the process.
type LoadError struct {
	TrackID string
	Err     error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.TrackID, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

type Options struct {
	// SampleRate every buffer is resampled to.
	SampleRate beep.SampleRate
	// AssetDir resolves relative locators.
	AssetDir string
	// Passphrase unlocks sealed tracks.
	Passphrase string
	Client     *http.Client
	Log        *log.Logger
	// OnChange runs after a track becomes ready or fails.
	OnChange func(id string, r Readiness)
}

// Loader owns every decoded buffer. Buffers are lent to the playback engine
// and never mutated after they are stored.
type Loader struct {
	opts Options

	mu       sync.RWMutex
	buffers  map[string]*beep.Buffer
	analysis map[string]codec.Analysis
	status   map[string]Readiness
	errs     map[string]*LoadError

	wg sync.WaitGroup
}

func New(opts Options) *Loader {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Log == nil {
		opts.Log = log.Discard()
	}
	if opts.AssetDir == "" {
		opts.AssetDir = "."
	}
	return &Loader{
		opts:     opts,
		buffers:  map[string]*beep.Buffer{},
		analysis: map[string]codec.Analysis{},
		status:   map[string]Readiness{},
		errs:     map[string]*LoadError{},
	}
}

// LoadAll starts loading every catalog track concurrently and returns
// immediately. Cancelling ctx discards loads still in flight.
func (l *Loader) LoadAll(ctx context.Context, cat *catalog.Catalog) {
	for _, t := range cat.Tracks() {
		l.mu.Lock()
		if _, seen := l.status[t.ID]; !seen {
			l.status[t.ID] = Readiness{Status: Pending}
		}
		l.mu.Unlock()

		l.wg.Add(1)
		go func(t catalog.Track) {
			defer l.wg.Done()
			if _, err := l.Load(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
				l.opts.Log.Errorf("%v", err)
			}
		}(t)
	}
}

// Wait blocks until every load started by LoadAll has finished.
func (l *Loader) Wait() { l.wg.Wait() }

// Load fetches, decodes and stores the buffer for t. A track that already
// failed returns its original error without another attempt.
func (l *Loader) Load(ctx context.Context, t catalog.Track) (*beep.Buffer, error) {
	l.mu.RLock()
	buf, ready := l.buffers[t.ID]
	lerr := l.errs[t.ID]
	l.mu.RUnlock()
	if ready {
		return buf, nil
	}
	if lerr != nil {
		return nil, lerr
	}

	start := time.Now()
	frames, err := l.fetchAndDecode(ctx, t)
	if ctx.Err() != nil {
		l.opts.Log.Debugf("load %s discarded: %v", t.ID, ctx.Err())
		return nil, &LoadError{TrackID: t.ID, Err: ctx.Err()}
	}
	if err != nil {
		return nil, l.fail(t.ID, err)
	}

	sr := l.opts.SampleRate
	buf = beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	buf.Append(codec.NewFrameStreamer(frames))
	an := codec.Analyze(frames, int(sr))

	l.mu.Lock()
	l.buffers[t.ID] = buf
	l.analysis[t.ID] = an
	l.status[t.ID] = Readiness{Status: Ready}
	l.mu.Unlock()

	l.opts.Log.Infof("track %s ready: %v of audio decoded in %v", t.ID, an.Duration.Round(time.Millisecond), time.Since(start).Round(time.Millisecond))
	l.notify(t.ID, Readiness{Status: Ready})
	return buf, nil
}

func (l *Loader) fail(id string, err error) error {
	lerr := &LoadError{TrackID: id, Err: err}
	r := Readiness{Status: Failed, Err: err.Error()}
	l.mu.Lock()
	l.errs[id] = lerr
	l.status[id] = r
	l.mu.Unlock()
	l.notify(id, r)
	return lerr
}

func (l *Loader) notify(id string, r Readiness) {
	if l.opts.OnChange != nil {
		l.opts.OnChange(id, r)
	}
}

// Buffer lends the decoded buffer of a ready track.
func (l *Loader) Buffer(id string) (*beep.Buffer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buffers[id]
	return b, ok
}

func (l *Loader) Loaded(id string) bool {
	_, ok := l.Buffer(id)
	return ok
}

func (l *Loader) Analysis(id string) (codec.Analysis, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.analysis[id]
	return a, ok
}

// Readiness returns a copy of the readiness map.
func (l *Loader) Readiness() map[string]Readiness {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]Readiness, len(l.status))
	for k, v := range l.status {
		out[k] = v
	}
	return out
}
