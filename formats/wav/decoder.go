// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/lossless/audio"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE

	defaultBatch = 4096
)

// pcmReader is the part of wav.Decoder the stream needs. Tests replace it.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream reads interleaved PCM from the data chunk in batches of Read's
// maxFrames.
type Stream struct {
	dec    pcmReader
	format audio.Format

	buf     *goaudio.IntBuffer
	pending []int // samples of a partially read frame
	read    int64

	exhausted bool
	err       error
}

// Open parses the RIFF header up to the data chunk. go-audio needs to seek,
// so a plain io.Reader is read into memory first.
func Open(r io.Reader) (*Stream, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("wav: reading input: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}

	switch dec.WavAudioFormat {
	case formatPCM, formatExtensible:
	default:
		return nil, fmt.Errorf("%w: format tag %#x", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, dec.BitDepth)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingData, err)
	}

	channels := int(dec.NumChans)
	frameBytes := channels * int(dec.BitDepth/8)
	return newStream(dec, audio.Format{
		SampleRate:    int(dec.SampleRate),
		Channels:      channels,
		BitsPerSample: int(dec.BitDepth),
		ChannelMask:   audio.DefaultChannelMask(channels),
		TotalFrames:   int64(dec.PCMSize / frameBytes),
	}), nil
}

func newStream(dec pcmReader, format audio.Format) *Stream {
	return &Stream{
		dec:    dec,
		format: format,
		buf: &goaudio.IntBuffer{
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
	if remaining := s.format.TotalFrames - s.read; remaining < int64(maxFrames) {
		maxFrames = int(max(remaining, 0))
	}
	if s.exhausted || maxFrames == 0 {
		s.exhausted = true
		return s.empty(), nil
	}

	frame, err := s.readFrames(maxFrames)
	if err != nil {
		s.err = err
		return nil, err
	}
	if frame.Len() == 0 {
		s.exhausted = true
		if s.read < s.format.TotalFrames {
			s.err = fmt.Errorf("%w: %d of %d frames", ErrShortData, s.read, s.format.TotalFrames)
			return nil, s.err
		}
	}
	s.read += int64(frame.Len())
	return frame, nil
}

func (s *Stream) readFrames(n int) (*audio.Frame, error) {
	channels := s.format.Channels
	want := n*channels - len(s.pending)
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	samples := s.pending
	for len(samples) < n*channels {
		got, err := s.dec.PCMBuffer(s.buf)
		if err != nil {
			return nil, fmt.Errorf("wav: reading samples: %w", err)
		}
		if got == 0 {
			break
		}
		samples = append(samples, s.buf.Data[:got]...)
		s.buf.Data = s.buf.Data[:n*channels-len(samples)]
	}

	whole := len(samples) / channels * channels
	s.pending = append(s.pending[:0:0], samples[whole:]...)

	data := make([]int32, whole)
	var bias int
	if s.format.BitsPerSample == 8 {
		bias = 128
	}
	for i, v := range samples[:whole] {
		data[i] = int32(v - bias)
	}
	return audio.FromInterleaved(s.format.BitsPerSample, channels, data), nil
}

func (s *Stream) empty() *audio.Frame {
	return audio.EmptyFrame(s.format.Channels, s.format.BitsPerSample)
}
