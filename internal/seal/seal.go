// Package seal turns a 48kHz WAV file into an encrypted .mbx track.
package seal

import (
	"errors"
	"fmt"
	"io"

	"musicbox/internal/codec"
	"musicbox/internal/container"
	"musicbox/internal/security"
	"musicbox/pkg/spec"

	"github.com/go-audio/wav"
)

const saltSize = 16

var ErrSampleRate = fmt.Errorf("seal: source must be %dHz", spec.OpusSampleRate)

type Options struct {
	Name       string
	Passphrase string
	Normalize  bool
	// Progress is called after every frame with the PCM samples consumed
	// so far and the total.
	Progress func(done, total int)
}

type Stats struct {
	Frames     int
	InputBytes int
	Bytes      int64
}

// Track reads WAV from src and writes a sealed track to dst.
func Track(src io.ReadSeeker, dst io.WriteSeeker, opts Options) (Stats, error) {
	var st Stats
	if opts.Passphrase == "" {
		return st, errors.New("seal: empty passphrase")
	}

	dec := wav.NewDecoder(src)
	if !dec.IsValidFile() {
		return st, errors.New("seal: invalid wav file")
	}
	if int(dec.SampleRate) != spec.OpusSampleRate {
		return st, fmt.Errorf("%w, got %dHz", ErrSampleRate, dec.SampleRate)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return st, fmt.Errorf("seal: decode wav: %w", err)
	}
	pcm, err := codec.Int16Interleaved(buf)
	if err != nil {
		return st, err
	}
	if opts.Normalize {
		pcm = codec.NormalizePCM(pcm)
	}
	st.InputBytes = len(pcm) * 2

	salt, err := security.NewSalt(saltSize)
	if err != nil {
		return st, err
	}
	sealer, err := security.NewSealer(security.DeriveKey(opts.Passphrase, salt))
	if err != nil {
		return st, err
	}
	enc, err := codec.NewFrameEncoder()
	if err != nil {
		return st, err
	}
	start, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return st, err
	}
	w, err := container.NewWriter(dst, container.Header{
		Name:       opts.Name,
		Salt:       salt,
		SampleRate: spec.OpusSampleRate,
	})
	if err != nil {
		return st, err
	}

	emit := func(frame []byte) error {
		sealed, err := sealer.Seal(frame)
		if err != nil {
			return err
		}
		st.Frames++
		return w.WriteFrame(sealed)
	}

	step := spec.OpusFrameSamples * spec.Channels
	for off := 0; off < len(pcm); off += step {
		end := off + step
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := enc.Write(pcm[off:end], emit); err != nil {
			return st, err
		}
		if opts.Progress != nil {
			opts.Progress(end, len(pcm))
		}
	}
	if err := enc.Flush(emit); err != nil {
		return st, err
	}
	if err := w.Close(); err != nil {
		return st, err
	}

	end, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return st, err
	}
	st.Bytes = end - start
	return st, nil
}
