package container

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeSealed(t *testing.T, hdr Header, frames [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mbx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := NewWriter(f, hdr)
	if err != nil {
		t.Fatal(err)
	}
	for _, fr := range frames {
		if err := w.WriteFrame(fr); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriterReaderFrames(t *testing.T) {
	hdr := Header{Name: "Azizam", Salt: []byte("0123456789abcdef"), SampleRate: 48000}
	frames := [][]byte{{1, 2, 3}, {}, bytes.Repeat([]byte{9}, 300)}
	path := writeSealed(t, hdr, frames)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// trailing bytes after the audio block must not be read as frames
	data = append(data, 0xff, 0xff, 0xff)

	r, err := Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if r.Header.Name != "Azizam" || r.Header.SampleRate != 48000 {
		t.Errorf("header = %+v", r.Header)
	}
	if !bytes.Equal(r.Header.Salt, hdr.Salt) {
		t.Errorf("salt = %q, want %q", r.Header.Salt, hdr.Salt)
	}
	for i, want := range frames {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %v, want %v", i, got, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("after last frame err = %v, want io.EOF", err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	if _, err := Open(bytes.NewReader([]byte("RIFF0000WAVE"))); err == nil {
		t.Error("Open accepted a non-sealed stream")
	}
}

func TestOpenRequiresAudioBlock(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("MBOX01")
	buf.WriteString("NAME")
	buf.Write([]byte{0, 0, 0, 1, 'x'})
	if _, err := Open(&buf); err == nil {
		t.Error("Open accepted a track without an audio block")
	}
}

func TestOpenRejectsOversizedTag(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("MBOX01")
	buf.WriteString("NAME")
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := Open(&buf); err == nil {
		t.Error("Open accepted a 4GiB tag")
	}
}

func TestWriterRejectsOversizedTag(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.mbx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	name := string(bytes.Repeat([]byte{'x'}, MaxTagSize+1))
	if _, err := NewWriter(f, Header{Name: name, Salt: []byte("s")}); err == nil {
		t.Error("NewWriter accepted an oversized name")
	}
}

func TestWriteAfterClose(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "x.mbx"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := NewWriter(f, Header{Salt: []byte("s")})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame([]byte{1}); err == nil {
		t.Error("WriteFrame after Close succeeded")
	}
}
