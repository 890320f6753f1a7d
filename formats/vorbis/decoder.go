// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/lossless/audio"
	"github.com/jfreymuth/oggvorbis"
)

const (
	bitsPerSample = 16
	defaultBatch  = 4096
)

// waveOrder maps WAVE channel positions to Vorbis channel indices for the
// layouts Vorbis I defines.
var waveOrder = map[int][]int{
	3: {0, 2, 1},
	5: {0, 2, 1, 3, 4},
	6: {0, 2, 1, 5, 3, 4},
	7: {0, 2, 1, 6, 5, 3, 4},
	8: {0, 2, 1, 7, 5, 6, 3, 4},
}

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	Read([]float32) (int, error)
}

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream quantizes oggvorbis' float output to 16-bit PCM in WAVE channel
// order.
type Stream struct {
	dec    oggReader
	format audio.Format
	order  []int

	floatBuf []float32
	drained  bool
	err      error
}

func Open(r io.Reader) (*Stream, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotVorbisFile, err)
	}
	return newStream(dec), nil
}

func newStream(dec oggReader) *Stream {
	channels := dec.Channels()
	total := dec.Length()
	if total == 0 {
		total = -1
	}
	return &Stream{
		dec:   dec,
		order: waveOrder[channels],
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
	channels := s.format.Channels
	if s.drained {
		return audio.EmptyFrame(channels, bitsPerSample), nil
	}

	size := maxFrames * channels
	if cap(s.floatBuf) < size {
		s.floatBuf = make([]float32, size)
	}
	s.floatBuf = s.floatBuf[:size]

	// Read returns interleaved values, not frames.
	n := 0
	for n < size {
		m, err := s.dec.Read(s.floatBuf[n:])
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

	frames := n / channels
	out := make([][]int32, channels)
	for c := range out {
		src := c
		if s.order != nil {
			src = s.order[c]
		}
		out[c] = make([]int32, frames)
		for i := range frames {
			out[c][i] = quantize(s.floatBuf[i*channels+src])
		}
	}
	return audio.NewFrame(bitsPerSample, out...), nil
}

// quantize scales a [-1, 1] sample to 16 bits, clipping out-of-range input.
func quantize(v float32) int32 {
	q := math.Round(float64(v) * math.MaxInt16)
	return int32(max(min(q, math.MaxInt16), math.MinInt16))
}

func classify(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return fmt.Errorf("%w: %w", ErrBadPacket, err)
}
