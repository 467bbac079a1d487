package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.First().ID != "azizam" {
		t.Errorf("First = %q, want azizam", c.First().ID)
	}
	tr, ok := c.Lookup("lovelyday")
	if !ok || tr.Name != "Lovely Day" || tr.Source != "./lovelyday.mp3" {
		t.Errorf("Lookup(lovelyday) = %+v, %v", tr, ok)
	}
	if _, ok := c.Lookup("nope"); ok {
		t.Error("Lookup of an unknown id succeeded")
	}
}

func TestNextWraps(t *testing.T) {
	c := Default()
	if got := c.Next("azizam").ID; got != "lovelyday" {
		t.Errorf("Next(azizam) = %q", got)
	}
	if got := c.Next("lovelyday").ID; got != "azizam" {
		t.Errorf("Next(lovelyday) = %q", got)
	}
	if got := c.Next("unknown").ID; got != "azizam" {
		t.Errorf("Next(unknown) = %q, want first track", got)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		tracks []Track
	}{
		{"empty", nil},
		{"no id", []Track{{Source: "a.mp3"}}},
		{"no src", []Track{{ID: "a"}}},
		{"duplicate", []Track{{ID: "a", Source: "a.mp3"}, {ID: "a", Source: "b.mp3"}}},
	}
	for _, tt := range tests {
		if _, err := New(tt.tracks); err == nil {
			t.Errorf("%s: New accepted invalid catalog", tt.name)
		}
	}
}

func TestNewDefaultsName(t *testing.T) {
	c, err := New([]Track{{ID: "chime", Source: "chime.wav"}})
	if err != nil {
		t.Fatal(err)
	}
	if c.First().Name != "chime" {
		t.Errorf("Name = %q, want id fallback", c.First().Name)
	}
}

func TestTracksIsCopy(t *testing.T) {
	c := Default()
	ts := c.Tracks()
	ts[0].ID = "mutated"
	if c.First().ID != "azizam" {
		t.Error("Tracks exposed internal slice")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `{"tracks":[{"id":"a","name":"A","src":"a.wav"},{"id":"b","src":"http://example.com/b.mp3"},{"id":"c","src":"c.mbx"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if got := c.Next("c").ID; got != "a" {
		t.Errorf("Next(c) = %q, want a", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFile of a missing file succeeded")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("LoadFile of malformed JSON succeeded")
	}
}
