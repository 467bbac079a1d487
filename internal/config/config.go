package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"musicbox/pkg/spec"
)

// Rect is the on-screen bounds of the winding key control.
type Rect struct {
	X, Y, W, H float64
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Catalog
	CatalogPath string // JSON catalog, empty for the built-in two tracks
	AssetDir    string // base directory for relative locators
	Passphrase  string // unlocks sealed .mbx tracks

	// Audio output
	SampleRate   int
	BufferLength time.Duration

	// Gesture feel
	ClickGain    float64
	ClickCadence time.Duration

	// Control surface
	SocketPath string
	KeyRect    *Rect // nil until the client mounts the key

	LogLevel string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		CatalogPath: envStr("MUSICBOX_CATALOG", ""),
		AssetDir:    envStr("MUSICBOX_ASSET_DIR", "."),
		Passphrase:  envStr("MUSICBOX_PASSPHRASE", ""),

		SampleRate:   envInt("MUSICBOX_SAMPLE_RATE", spec.SampleRate),
		BufferLength: time.Duration(envInt("MUSICBOX_BUFFER_MS", 100)) * time.Millisecond,

		ClickGain:    envFloat("MUSICBOX_CLICK_GAIN", spec.ClickGain),
		ClickCadence: time.Duration(envInt("MUSICBOX_CLICK_CADENCE_MS", int(spec.ClickCadence/time.Millisecond))) * time.Millisecond,

		SocketPath: envStr("MUSICBOX_SOCKET", "/tmp/musicbox.sock"),
		KeyRect:    envRect("MUSICBOX_KEY_RECT"),

		LogLevel: envStr("MUSICBOX_LOG_LEVEL", "INFO"),
	}
}

// ParseRect parses "x,y,w,h". Width and height must be positive.
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Rect{}, fmt.Errorf("rect %q: non-finite value", s)
		}
		v[i] = f
	}
	if v[2] <= 0 || v[3] <= 0 {
		return Rect{}, fmt.Errorf("rect %q: empty bounds", s)
	}
	return Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

func envRect(key string) *Rect {
	if v := os.Getenv(key); v != "" {
		if r, err := ParseRect(v); err == nil {
			return &r
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
