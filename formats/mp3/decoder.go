// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/lossless/audio"
)

const (
	channels      = 2
	bitsPerSample = 16
	frameBytes    = channels * bitsPerSample / 8
	defaultBatch  = 4096
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
	Length() int64
}

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream adapts go-mp3's byte output, which is always 16-bit little-endian
// stereo, to frames.
type Stream struct {
	dec    mp3Reader
	format audio.Format
	buf    []byte

	drained bool
	err     error
}

// Open decodes the first frame header. The total length is only known when
// r is an io.Seeker.
func Open(r io.Reader) (*Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotMP3File, err)
	}
	return newStream(dec), nil
}

func newStream(dec mp3Reader) *Stream {
	total := int64(-1)
	if n := dec.Length(); n >= 0 {
		total = n / frameBytes
	}
	return &Stream{
		dec: dec,
		format: audio.Format{
			SampleRate:    dec.SampleRate(),
			Channels:      channels,
			BitsPerSample: bitsPerSample,
			ChannelMask:   audio.DefaultChannelMask(channels),
			TotalFrames:   total,
		},
	}
}

func (s *Stream) Format() audio.Format { return s.format }
func (s *Stream) Close() error         { return nil }

// Read returns up to maxFrames frames, or 4096 when maxFrames is not
// positive.
func (s *Stream) Read(maxFrames int) (*audio.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if maxFrames <= 0 {
		maxFrames = defaultBatch
	}
	if s.drained {
		return audio.EmptyFrame(channels, bitsPerSample), nil
	}

	size := maxFrames * frameBytes
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	s.buf = s.buf[:size]

	n := 0
	for n < size {
		m, err := s.dec.Read(s.buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			s.drained = true
			break
		}
		if err != nil {
			s.err = classify(err)
			return nil, s.err
		}
	}

	// go-mp3 writes whole frames; a stray tail byte pair is dropped.
	data := make([]int32, n/frameBytes*channels)
	for i := range data {
		data[i] = int32(int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8))
	}
	return audio.FromInterleaved(bitsPerSample, channels, data), nil
}

func classify(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return fmt.Errorf("%w: %w", ErrBadFrame, err)
}
