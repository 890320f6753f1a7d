// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/lossless/audio"
)

const defaultBatch = 4096

// aiffReader is an interface for aiff.Decoder to allow testing
type aiffReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream wraps go-audio's aiff.Decoder and returns up to maxFrames frames
// per Read.
type Stream struct {
	dec    aiffReader
	format audio.Format

	intBuf  *goaudio.IntBuffer
	pending []int
	read    int64
	drained bool // the reader reported io.EOF

	exhausted bool
	err       error
}

func Open(r io.Reader) (*Stream, error) {
	// go-audio requires io.ReadSeeker
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("aiff: reading input: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, dec.BitDepth)
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 {
		return nil, ErrNotAiffFile
	}

	return newStream(dec, audio.Format{
		SampleRate:    format.SampleRate,
		Channels:      format.NumChannels,
		BitsPerSample: int(dec.BitDepth),
		ChannelMask:   audio.DefaultChannelMask(format.NumChannels),
		TotalFrames:   int64(dec.NumSampleFrames),
	}), nil
}

func newStream(dec aiffReader, format audio.Format) *Stream {
	return &Stream{
		dec:    dec,
		format: format,
		intBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
			SourceBitDepth: format.BitsPerSample,
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
	maxFrames = int(min(int64(maxFrames), max(s.format.TotalFrames-s.read, 0)))
	if s.exhausted || maxFrames == 0 {
		s.exhausted = true
		return audio.EmptyFrame(s.format.Channels, s.format.BitsPerSample), nil
	}

	samples, err := s.fill(maxFrames * s.format.Channels)
	if err != nil {
		s.err = fmt.Errorf("aiff: reading samples: %w", err)
		return nil, s.err
	}

	channels := s.format.Channels
	whole := len(samples) / channels * channels
	if whole == 0 {
		s.exhausted = true
		s.err = fmt.Errorf("%w: %d of %d frames", ErrShortData, s.read, s.format.TotalFrames)
		return nil, s.err
	}
	s.pending = append(s.pending[:0:0], samples[whole:]...)

	data := make([]int32, whole)
	for i, v := range samples[:whole] {
		if s.format.BitsPerSample == 8 {
			// AIFF 8-bit data is signed whatever the reader's view of it.
			v = int(int8(uint8(v)))
		}
		data[i] = int32(v)
	}
	frame := audio.FromInterleaved(s.format.BitsPerSample, channels, data)
	s.read += int64(frame.Len())
	return frame, nil
}

// fill returns up to n samples, starting with any left over from a partial
// frame.
func (s *Stream) fill(n int) ([]int, error) {
	samples := s.pending
	for len(samples) < n && !s.drained {
		want := n - len(samples)
		if cap(s.intBuf.Data) < want {
			s.intBuf.Data = make([]int, want)
		}
		s.intBuf.Data = s.intBuf.Data[:want]

		got, err := s.dec.PCMBuffer(s.intBuf)
		samples = append(samples, s.intBuf.Data[:got]...)
		if errors.Is(err, io.EOF) || (err == nil && got == 0) {
			s.drained = true
		} else if err != nil {
			return nil, err
		}
	}
	return samples, nil
}
