package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"musicbox/pkg/spec"
)

// MaxTagSize bounds a single header tag.
const MaxTagSize = 64 << 10

// Header is the metadata stored before the audio block of a sealed track.
type Header struct {
	Name       string
	Salt       []byte
	SampleRate int
}

// Reader walks the frames of a sealed track.
type Reader struct {
	Header Header
	audio  *io.LimitedReader
}

// Open validates the magic, reads the header tags and positions r at the
// first audio frame.
func Open(r io.Reader) (*Reader, error) {
	magic := make([]byte, len(spec.SealedMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != spec.SealedMagic {
		return nil, fmt.Errorf("invalid sealed magic: %q", magic)
	}

	var hdr Header
	for {
		tagBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, tagBuf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no audio block in sealed track")
			}
			return nil, err
		}
		tag := string(tagBuf)

		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, err
		}

		if tag == spec.TagAudio {
			if len(hdr.Salt) == 0 {
				return nil, errors.New("sealed track has no salt")
			}
			return &Reader{Header: hdr, audio: &io.LimitedReader{R: r, N: int64(size)}}, nil
		}

		if size > MaxTagSize {
			return nil, fmt.Errorf("tag %s: size %d exceeds %d", tag, size, MaxTagSize)
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag, err)
		}
		switch tag {
		case spec.TagName:
			hdr.Name = string(buf)
		case spec.TagSalt:
			hdr.Salt = buf
		case spec.TagRate:
			if len(buf) != 4 {
				return nil, fmt.Errorf("tag %s: bad length %d", tag, len(buf))
			}
			hdr.SampleRate = int(binary.BigEndian.Uint32(buf))
		}
	}
}

// Next returns the next sealed frame, or io.EOF after the last one.
func (r *Reader) Next() ([]byte, error) {
	var sz uint16
	if err := binary.Read(r.audio, binary.BigEndian, &sz); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	frame := make([]byte, sz)
	if _, err := io.ReadFull(r.audio, frame); err != nil {
		return nil, fmt.Errorf("truncated frame: %w", err)
	}
	return frame, nil
}

// Writer produces a sealed track. Close must be called to patch the audio
// block size.
type Writer struct {
	w        io.WriteSeeker
	sizePos  int64
	written  int64
	finished bool
}

func NewWriter(w io.WriteSeeker, hdr Header) (*Writer, error) {
	if _, err := w.Write([]byte(spec.SealedMagic)); err != nil {
		return nil, err
	}
	if err := writeTag(w, spec.TagName, []byte(hdr.Name)); err != nil {
		return nil, err
	}
	if err := writeTag(w, spec.TagSalt, hdr.Salt); err != nil {
		return nil, err
	}
	rate := make([]byte, 4)
	binary.BigEndian.PutUint32(rate, uint32(hdr.SampleRate))
	if err := writeTag(w, spec.TagRate, rate); err != nil {
		return nil, err
	}

	if _, err := w.Write([]byte(spec.TagAudio)); err != nil {
		return nil, err
	}
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(0)); err != nil {
		return nil, err
	}
	return &Writer{w: w, sizePos: pos}, nil
}

// WriteFrame appends one length-prefixed frame.
func (w *Writer) WriteFrame(frame []byte) error {
	if w.finished {
		return errors.New("container: write after close")
	}
	if len(frame) > math.MaxUint16 {
		return fmt.Errorf("container: frame of %d bytes too large", len(frame))
	}
	if err := binary.Write(w.w, binary.BigEndian, uint16(len(frame))); err != nil {
		return err
	}
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	w.written += int64(2 + len(frame))
	return nil
}

// Close patches the audio block size. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true
	end, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.w.Seek(w.sizePos, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.BigEndian, uint32(w.written)); err != nil {
		return err
	}
	_, err = w.w.Seek(end, io.SeekStart)
	return err
}

func writeTag(w io.Writer, tag string, data []byte) error {
	if len(data) > MaxTagSize {
		return fmt.Errorf("container: tag %s of %d bytes too large", tag, len(data))
	}
	if _, err := w.Write([]byte(tag)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
