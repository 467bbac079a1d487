package security

import (
	"bytes"
	"testing"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	a := DeriveKey("tines", salt)
	b := DeriveKey("tines", salt)
	if len(a) != 32 {
		t.Fatalf("key length = %d, want 32", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("same passphrase and salt produced different keys")
	}
	if bytes.Equal(a, DeriveKey("other", salt)) {
		t.Error("different passphrases produced the same key")
	}
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(DeriveKey("tines", []byte("salt")))
	if err != nil {
		t.Fatal(err)
	}
	frame := []byte{1, 2, 3, 4, 5}
	sealed, err := s.Seal(frame)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Open(sealed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("Open = %v, want %v", got, frame)
	}
}

func TestOpenWrongKey(t *testing.T) {
	a, _ := NewSealer(DeriveKey("right", []byte("salt")))
	b, _ := NewSealer(DeriveKey("wrong", []byte("salt")))
	sealed, err := a.Seal([]byte("frame"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Error("Open with the wrong key succeeded")
	}
}

func TestOpenShortFrame(t *testing.T) {
	s, _ := NewSealer(DeriveKey("tines", []byte("salt")))
	if _, err := s.Open([]byte{1, 2}); err != ErrShortFrame {
		t.Errorf("Open(short) err = %v, want ErrShortFrame", err)
	}
}
