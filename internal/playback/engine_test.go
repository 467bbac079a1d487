package playback

import (
	"math"
	"testing"
	"time"

	"musicbox/internal/audioctx"
	"musicbox/internal/clock"
	"musicbox/internal/codec"

	"github.com/faiface/beep"
)

type buffers map[string]*beep.Buffer

func (b buffers) Buffer(id string) (*beep.Buffer, bool) {
	buf, ok := b[id]
	return buf, ok
}

type spinCounter struct {
	n     int
	total float64
}

func (s *spinCounter) Spin(step float64) { s.n++; s.total += step }

func bufferOf(frames [][2]float64) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2})
	buf.Append(codec.NewFrameStreamer(frames))
	return buf
}

func constant(v float64, n int) *beep.Buffer {
	frames := make([][2]float64, n)
	for i := range frames {
		frames[i] = [2]float64{v, v}
	}
	return bufferOf(frames)
}

type fixture struct {
	eng  *Engine
	out  *audioctx.Recorder
	clk  *clock.Manual
	spin *spinCounter
}

func newFixture(b buffers) *fixture {
	f := &fixture{
		out:  audioctx.NewRecorder(44100),
		clk:  clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		spin: &spinCounter{},
	}
	f.eng = New(Options{Output: f.out, Buffers: b, Clock: f.clk, Spinner: f.spin})
	return f
}

// Buffer sample values survive the 16-bit precision of beep.Buffer only
// approximately.
func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestSwitchToPlaysLoop(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 4)})
	if !f.eng.SwitchTo("a") {
		t.Fatal("SwitchTo returned false")
	}
	if !f.eng.Playing() || f.eng.Current() != "a" {
		t.Fatalf("playing=%v current=%q", f.eng.Playing(), f.eng.Current())
	}
	if f.out.Resumed() != 1 {
		t.Errorf("output resumed %d times, want 1", f.out.Resumed())
	}
	// longer than the buffer: the loop keeps going
	for i, s := range f.out.Pull(10) {
		if !near(s[0], 0.5) {
			t.Fatalf("sample %d = %v, want 0.5", i, s[0])
		}
	}
}

func TestSwitchTwiceLeavesOneSource(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 8), "b": constant(0.25, 8)})
	f.eng.SwitchTo("a")
	f.eng.SwitchTo("b")

	if n := f.out.Active(); n != 1 {
		t.Errorf("active sources = %d, want 1", n)
	}
	for i, s := range f.out.Pull(4) {
		if !near(s[0], 0.25) {
			t.Fatalf("sample %d = %v, want only track b", i, s[0])
		}
	}
	if f.clk.Pending() != 2 {
		t.Errorf("pending tasks = %d, want 2", f.clk.Pending())
	}
	if f.eng.Current() != "b" {
		t.Errorf("current = %q, want b", f.eng.Current())
	}
}

func TestSameTrackRestarts(t *testing.T) {
	ramp := make([][2]float64, 10)
	for i := range ramp {
		v := float64(i) / 10
		ramp[i] = [2]float64{v, v}
	}
	f := newFixture(buffers{"a": bufferOf(ramp)})
	f.eng.SwitchTo("a")
	f.out.Pull(5)
	f.eng.SwitchTo("a")

	got := f.out.Pull(1)[0][0]
	if !near(got, 0) {
		t.Errorf("first sample after restart = %v, want 0", got)
	}
	if n := f.out.Active(); n != 1 {
		t.Errorf("active sources = %d, want 1", n)
	}
}

func TestGlowAndSpinTicks(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 4)})
	f.eng.SwitchTo("a")
	if g := f.eng.Glow(); g != 0.6 {
		t.Errorf("glow at start = %v, want 0.6", g)
	}

	f.clk.Advance(30 * time.Millisecond)
	want := 0.6 + 0.4*math.Sin(0.06)
	if g := f.eng.Glow(); math.Abs(g-want) > 1e-12 {
		t.Errorf("glow after one tick = %v, want %v", g, want)
	}
	f.clk.Advance(60 * time.Millisecond)
	if f.spin.n != 3 {
		t.Errorf("spin ticks = %d, want 3", f.spin.n)
	}
	if math.Abs(f.spin.total-2.4) > 1e-9 {
		t.Errorf("spin total = %v, want 2.4", f.spin.total)
	}

	for i := 0; i < 200; i++ {
		f.clk.Advance(30 * time.Millisecond)
		if g := f.eng.Glow(); g < 0 || g > 1 {
			t.Fatalf("glow %v out of [0,1]", g)
		}
	}
}

func TestStopCancelsEverything(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 4)})
	f.eng.SwitchTo("a")
	f.clk.Advance(90 * time.Millisecond)
	f.eng.Stop()

	if f.eng.Playing() {
		t.Error("still playing after Stop")
	}
	if g := f.eng.Glow(); g != 0 {
		t.Errorf("glow after stop = %v, want exactly 0", g)
	}
	if f.clk.Pending() != 0 {
		t.Errorf("pending tasks after stop = %d, want 0", f.clk.Pending())
	}
	spins := f.spin.n
	f.clk.Advance(time.Second)
	if f.spin.n != spins || f.eng.Glow() != 0 {
		t.Error("glow or spin updated after stop")
	}
	if n := f.out.Active(); n != 0 {
		t.Errorf("active sources after stop = %d, want 0", n)
	}

	// double stop is a no-op
	f.eng.Stop()
	if f.eng.Current() != "" {
		t.Errorf("current = %q after stop", f.eng.Current())
	}
}

func TestSwitchWithoutBufferStaysStopped(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 4)})
	f.eng.SwitchTo("a")
	if f.eng.SwitchTo("missing") {
		t.Error("SwitchTo without a buffer reported playing")
	}
	if f.eng.Playing() || f.eng.Glow() != 0 || f.clk.Pending() != 0 {
		t.Error("engine not stopped after switching to a missing track")
	}
	if n := f.out.Active(); n != 0 {
		t.Errorf("active sources = %d, want 0", n)
	}
}

func TestSwitchWithoutOutput(t *testing.T) {
	f := newFixture(buffers{"a": constant(0.5, 4)})
	f.out.Disable()
	if f.eng.SwitchTo("a") {
		t.Error("SwitchTo succeeded without an output")
	}
	if f.eng.Playing() || f.clk.Pending() != 0 {
		t.Error("engine armed a session without an output")
	}
}
