package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"musicbox/internal/catalog"
	"musicbox/internal/codec"
	"musicbox/internal/container"
	"musicbox/internal/security"
	"musicbox/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/go-audio/wav"
	"github.com/mitchellh/go-homedir"
)

const resampleQuality = 4

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoAudio           = errors.New("source contains no audio")
)

func (l *Loader) fetchAndDecode(ctx context.Context, t catalog.Track) ([][2]float64, error) {
	data, ext, err := l.fetch(ctx, t.Source)
	if err != nil {
		return nil, err
	}

	var (
		frames [][2]float64
		sr     int
	)
	switch ext {
	case ".wav":
		frames, sr, err = decodeWAV(data)
	case ".mp3":
		frames, sr, err = decodeMP3(data)
	case ".mbx":
		frames, sr, err = decodeSealed(data, l.opts.Passphrase)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoAudio
	}

	target := l.opts.SampleRate
	if beep.SampleRate(sr) != target {
		l.opts.Log.Debugf("resampling %s from %dHz to %dHz", t.ID, sr, target)
		rs := beep.Resample(resampleQuality, beep.SampleRate(sr), target, codec.NewFrameStreamer(frames))
		if frames, err = drain(rs); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// fetch returns the raw bytes behind a locator and the lowercase extension
// that selects the decoder.
func (l *Loader) fetch(ctx context.Context, locator string) ([]byte, string, error) {
	u, err := url.Parse(locator)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err := l.fetchHTTP(ctx, u.String())
		return data, strings.ToLower(path.Ext(u.Path)), err
	}

	p := locator
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}
	if p, err = homedir.Expand(p); err != nil {
		return nil, "", err
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.opts.AssetDir, p)
	}
	data, err := os.ReadFile(p)
	return data, strings.ToLower(filepath.Ext(p)), err
}

func (l *Loader) fetchHTTP(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func decodeWAV(data []byte) ([][2]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	frames, err := codec.StereoFrames(buf)
	if err != nil {
		return nil, 0, err
	}
	return frames, buf.Format.SampleRate, nil
}

func decodeMP3(data []byte) ([][2]float64, int, error) {
	s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	defer s.Close()
	frames, err := drain(s)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	return frames, int(format.SampleRate), nil
}

func decodeSealed(data []byte, passphrase string) ([][2]float64, int, error) {
	r, err := container.Open(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	sealer, err := security.NewSealer(security.DeriveKey(passphrase, r.Header.Salt))
	if err != nil {
		return nil, 0, err
	}
	dec, err := codec.NewFrameDecoder()
	if err != nil {
		return nil, 0, err
	}

	var frames [][2]float64
	for {
		sealed, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		frame, err := sealer.Open(sealed)
		if err != nil {
			return nil, 0, fmt.Errorf("unseal frame: %w", err)
		}
		if frames, err = dec.Decode(frame, frames); err != nil {
			return nil, 0, err
		}
	}
	sr := r.Header.SampleRate
	if sr == 0 {
		sr = spec.OpusSampleRate
	}
	return frames, sr, nil
}

func drain(s beep.Streamer) ([][2]float64, error) {
	var out [][2]float64
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		out = append(out, chunk[:n]...)
		if !ok {
			break
		}
	}
	return out, s.Err()
}
