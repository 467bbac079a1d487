package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
)

// Track is an immutable descriptor of one selectable audio source.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"src"`
}

// Catalog is the ordered, fixed set of tracks known at startup.
type Catalog struct {
	tracks []Track
	index  map[string]int
}

var ErrEmpty = errors.New("catalog: no tracks")

// New validates tracks and builds a catalog. IDs must be unique and every
// track needs a source.
func New(tracks []Track) (*Catalog, error) {
	if len(tracks) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{tracks: make([]Track, len(tracks)), index: make(map[string]int, len(tracks))}
	for i, t := range tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("catalog: track %d has no id", i)
		}
		if t.Source == "" {
			return nil, fmt.Errorf("catalog: track %q has no src", t.ID)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate track id %q", t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		c.tracks[i] = t
		c.index[t.ID] = i
	}
	return c, nil
}

// Default is the music box's built-in pair of songs.
func Default() *Catalog {
	c, _ := New([]Track{
		{ID: "azizam", Name: "Azizam", Source: "./azizam.mp3"},
		{ID: "lovelyday", Name: "Lovely Day", Source: "./lovelyday.mp3"},
	})
	return c
}

type catalogFile struct {
	Tracks []Track `json:"tracks"`
}

// LoadFile reads a JSON catalog of the form {"tracks":[{"id","name","src"}]}.
func LoadFile(path string) (*Catalog, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return New(f.Tracks)
}

// Tracks returns a copy of the tracks in catalog order.
func (c *Catalog) Tracks() []Track {
	return append([]Track(nil), c.tracks...)
}

func (c *Catalog) Len() int { return len(c.tracks) }

// First is the track selected at startup.
func (c *Catalog) First() Track { return c.tracks[0] }

func (c *Catalog) Lookup(id string) (Track, bool) {
	i, ok := c.index[id]
	if !ok {
		return Track{}, false
	}
	return c.tracks[i], true
}

// Next returns the track after id, wrapping around. With two tracks this
// flips between them.
func (c *Catalog) Next(id string) Track {
	i, ok := c.index[id]
	if !ok {
		return c.tracks[0]
	}
	return c.tracks[(i+1)%len(c.tracks)]
}
