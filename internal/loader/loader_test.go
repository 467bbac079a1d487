package loader

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"musicbox/internal/catalog"
	"musicbox/internal/seal"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, dir, name string, sampleRate, channels, frames int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			data = append(data, v)
		}
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRelativeWAV(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, dir, "tines.wav", 44100, 2, 4410)
	l := New(Options{SampleRate: 44100, AssetDir: dir})

	buf, err := l.Load(context.Background(), catalog.Track{ID: "tines", Source: "./tines.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4410 {
		t.Errorf("buffer len = %d, want 4410", buf.Len())
	}
	if !l.Loaded("tines") {
		t.Error("track not marked loaded")
	}
	if r := l.Readiness()["tines"]; r.Status != Ready {
		t.Errorf("readiness = %v, want ready", r.Status)
	}
	an, ok := l.Analysis("tines")
	if !ok {
		t.Fatal("no analysis stored")
	}
	if math.Abs(an.DominantHz-440) > 50 {
		t.Errorf("dominant = %.1fHz, want about 440", an.DominantHz)
	}
}

func TestLoadResamplesMono(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "mono.wav", 22050, 1, 2205)
	l := New(Options{SampleRate: 44100})

	buf, err := l.Load(context.Background(), catalog.Track{ID: "mono", Source: "file://" + path})
	if err != nil {
		t.Fatal(err)
	}
	if n := buf.Len(); n < 4390 || n > 4430 {
		t.Errorf("resampled len = %d, want about 4410", n)
	}
	if buf.Format().NumChannels != 2 {
		t.Errorf("channels = %d, want 2", buf.Format().NumChannels)
	}
}

func TestLoadOverHTTP(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, "remote.wav", 44100, 2, 441)
	srv := httptest.NewServer(http.FileServer(http.Dir(filepath.Dir(path))))
	defer srv.Close()

	l := New(Options{SampleRate: 44100})
	buf, err := l.Load(context.Background(), catalog.Track{ID: "remote", Source: srv.URL + "/remote.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 441 {
		t.Errorf("buffer len = %d, want 441", buf.Len())
	}
}

func TestFailedLoadIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var changes []Readiness
	l := New(Options{SampleRate: 44100, OnChange: func(id string, r Readiness) { changes = append(changes, r) }})
	track := catalog.Track{ID: "gone", Source: srv.URL + "/gone.mp3"}

	_, err := l.Load(context.Background(), track)
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.TrackID != "gone" {
		t.Fatalf("err = %v, want LoadError for gone", err)
	}
	if _, err := l.Load(context.Background(), track); err == nil {
		t.Fatal("second load succeeded")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	r := l.Readiness()["gone"]
	if r.Status != Failed || r.Err == "" {
		t.Errorf("readiness = %+v, want failed with reason", r)
	}
	if len(changes) != 1 || changes[0].Status != Failed {
		t.Errorf("changes = %+v, want one failure", changes)
	}
	if l.Loaded("gone") {
		t.Error("failed track reported loaded")
	}
}

func TestLoadDecodeFailures(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "song.ogg"), []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := New(Options{SampleRate: 44100, AssetDir: dir})

	if _, err := l.Load(context.Background(), catalog.Track{ID: "bad", Source: "bad.wav"}); err == nil {
		t.Error("garbage wav decoded")
	}
	_, err := l.Load(context.Background(), catalog.Track{ID: "ogg", Source: "song.ogg"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := l.Load(context.Background(), catalog.Track{ID: "missing", Source: "missing.wav"}); err == nil {
		t.Error("missing file loaded")
	}
}

func TestLoadSealedTrack(t *testing.T) {
	dir := t.TempDir()
	in := writeWAV(t, dir, "src.wav", 48000, 2, 4800)
	src, err := os.Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(dir, "box.mbx"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seal.Track(src, dst, seal.Options{Name: "Box", Passphrase: "tines"}); err != nil {
		t.Fatal(err)
	}
	dst.Close()

	l := New(Options{SampleRate: 48000, AssetDir: dir, Passphrase: "tines"})
	buf, err := l.Load(context.Background(), catalog.Track{ID: "box", Source: "box.mbx"})
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4800 {
		t.Errorf("buffer len = %d, want 4800", buf.Len())
	}

	wrong := New(Options{SampleRate: 48000, AssetDir: dir, Passphrase: "nope"})
	if _, err := wrong.Load(context.Background(), catalog.Track{ID: "box", Source: "box.mbx"}); err == nil {
		t.Error("sealed track opened with the wrong passphrase")
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, dir, "a.wav", 44100, 2, 441)
	cat, err := catalog.New([]catalog.Track{
		{ID: "a", Source: "a.wav"},
		{ID: "b", Source: "b.wav"},
	})
	if err != nil {
		t.Fatal(err)
	}
	l := New(Options{SampleRate: 44100, AssetDir: dir})
	l.LoadAll(context.Background(), cat)
	l.Wait()

	ready := l.Readiness()
	if ready["a"].Status != Ready {
		t.Errorf("a = %v, want ready", ready["a"].Status)
	}
	if ready["b"].Status != Failed {
		t.Errorf("b = %v, want failed", ready["b"].Status)
	}
}

func TestLoadCancelledIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, dir, "a.wav", 44100, 2, 441)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(Options{SampleRate: 44100, AssetDir: dir})
	if _, err := l.Load(ctx, catalog.Track{ID: "a", Source: "a.wav"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if l.Loaded("a") {
		t.Error("cancelled load stored a buffer")
	}
	if _, ok := l.Readiness()["a"]; ok {
		t.Error("cancelled load recorded readiness")
	}
}
