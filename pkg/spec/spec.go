package spec

import "time"

const (
	// === IDENTITY & VERSIONING ===
	Version = "1.0.0"
	AppName = "Musicbox"

	// === MAGIC NUMBERS ===
	SealedMagic = "MBOX01"

	// === AUDIO ENGINE ===
	SampleRate       = 44100
	Channels         = 2
	OpusSampleRate   = 48000 // sealed tracks are always 48kHz stereo
	OpusFrameSamples = 960   // 20ms @ 48kHz per channel
	KeyIterations    = 4096
	KeyLength        = 32

	// === CLICK BURST ===
	ClickDuration = 50 * time.Millisecond
	ClickDecay    = 10 * time.Millisecond
	ClickGain     = 0.07
	ClickCadence  = 80 * time.Millisecond

	// === SESSION TASKS ===
	GlowInterval  = 30 * time.Millisecond
	GlowPhaseStep = 0.06
	GlowBase      = 0.6
	GlowDepth     = 0.4
	SpinInterval  = 30 * time.Millisecond
	SpinStep      = 0.8 // degrees removed per spin tick

	// === TLV TAGS ===
	TagName  = "NAME"
	TagSalt  = "SALT"
	TagRate  = "RATE"
	TagAudio = "AUDI"
)
