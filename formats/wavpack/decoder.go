// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/bitstream"
	"github.com/ik5/lossless/internal/checksum"
)

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream decodes one frame, the blocks up to and including a final block,
// per Read.
type Stream struct {
	br     *bitstream.Reader
	first  BlockHeader
	format audio.Format

	position  int64
	md5       *checksum.PCMHash
	storedMD5 []byte

	exhausted bool
	err       error
}

// Open reads the first block to learn the stream layout, then rewinds so
// that Read starts with it.
func Open(r io.Reader) (*Stream, error) {
	br := bitstream.NewReader(r, bitstream.LSBFirst)
	br.Mark()
	defer br.Unmark()

	hdr, payload, err := readBlock(br)
	if err != nil {
		return nil, err
	}
	subs, err := readSubBlocks(payload)
	if err != nil {
		return nil, fmt.Errorf("wavpack: first block: %w", err)
	}
	params, err := parseParams(hdr, subs)
	if err != nil {
		return nil, fmt.Errorf("wavpack: first block: %w", err)
	}

	format := audio.Format{
		Channels:      hdr.outputChannels(),
		BitsPerSample: hdr.BytesStored * 8,
		TotalFrames:   -1,
	}
	switch {
	case params.channels > 0:
		format.Channels = params.channels
		format.ChannelMask = params.channelMask
	case !hdr.FinalBlock:
		return nil, fmt.Errorf("%w: multi-block frames need channel info", ErrInvalidChannels)
	}
	if format.ChannelMask == 0 {
		format.ChannelMask = audio.DefaultChannelMask(format.Channels)
	}

	if hdr.SampleRateIndex < customRate {
		format.SampleRate = sampleRates[hdr.SampleRateIndex]
	} else {
		format.SampleRate = params.sampleRate
	}
	if format.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if hdr.TotalSamples != unknownTotal {
		format.TotalFrames = int64(hdr.TotalSamples)
	}

	br.Rewind()
	return &Stream{
		br:     br,
		first:  hdr,
		format: format,
		md5:    checksum.NewPCMHash(format.BitsPerSample > 8),
	}, nil
}

// FirstBlock returns the header of the first block.
func (s *Stream) FirstBlock() BlockHeader { return s.first }

func (s *Stream) Format() audio.Format { return s.format }

// Read decodes the next frame. maxFrames is ignored. Once every sample has
// been read, trailing metadata blocks are consumed and the MD5, if the
// stream has one, is checked.
func (s *Stream) Read(int) (*audio.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted {
		return s.empty(), nil
	}

	frame, err := s.readFrame()
	if err != nil {
		s.err = err
		return nil, err
	}
	if frame == nil {
		return s.finish()
	}
	s.md5.Write(frame)
	return frame, nil
}

// readFrame returns nil at a clean end of stream.
func (s *Stream) readFrame() (*audio.Frame, error) {
	total := s.format.TotalFrames
	if total >= 0 && s.position >= total {
		return nil, s.drain()
	}

	var channels [][]int32
	for {
		more, err := s.more()
		if err != nil {
			return nil, err
		}
		if !more {
			switch {
			case len(channels) > 0:
				return nil, fmt.Errorf("wavpack: frame without final block: %w", audio.ErrEndOfStream)
			case total >= 0:
				return nil, fmt.Errorf("wavpack: stream ends after %d of %d samples: %w", s.position, total, audio.ErrEndOfStream)
			}
			return nil, nil
		}

		hdr, payload, err := readBlock(s.br)
		if err != nil {
			return nil, err
		}
		if hdr.BytesStored != s.first.BytesStored {
			return nil, fmt.Errorf("%w: sample width changed", ErrBlockMismatch)
		}
		decoded, params, err := decodeBlock(hdr, payload)
		if err != nil {
			return nil, err
		}
		if params.md5 != nil {
			s.storedMD5 = params.md5
		}
		if decoded == nil {
			continue
		}
		if len(channels) > 0 && len(decoded[0]) != len(channels[0]) {
			return nil, fmt.Errorf("%w: block lengths %d and %d", ErrBlockMismatch, len(channels[0]), len(decoded[0]))
		}
		channels = append(channels, decoded...)
		if hdr.FinalBlock {
			break
		}
	}

	if len(channels) != s.format.Channels {
		return nil, fmt.Errorf("%w: %d channels, want %d", ErrBlockMismatch, len(channels), s.format.Channels)
	}
	s.position += int64(len(channels[0]))
	if total >= 0 && s.position > total {
		return nil, ErrTooManySamples
	}
	return audio.NewFrame(s.format.BitsPerSample, channels...), nil
}

// drain consumes the metadata-only blocks that may follow the last sample.
func (s *Stream) drain() error {
	for {
		more, err := s.more()
		if err != nil || !more {
			return err
		}
		hdr, payload, err := readBlock(s.br)
		if err != nil {
			return err
		}
		if hdr.BlockSamples != 0 {
			return ErrTooManySamples
		}
		_, params, err := decodeBlock(hdr, payload)
		if err != nil {
			return err
		}
		if params.md5 != nil {
			s.storedMD5 = params.md5
		}
	}
}

// more reports whether another block follows. End of input and a trailing
// tag both end the stream.
func (s *Stream) more() (bool, error) {
	end, err := s.br.AtEnd()
	if err != nil {
		return false, fmt.Errorf("wavpack: %w", err)
	}
	if end {
		return false, nil
	}

	s.br.Mark()
	defer s.br.Unmark()
	defer s.br.Rewind()
	head, err := s.br.ReadBytes(len(magic))
	if err != nil {
		return true, nil
	}
	// APEv2 and ID3v1 tags
	if bytes.Equal(head, []byte("APET")) || bytes.HasPrefix(head, []byte("TAG")) {
		return false, nil
	}
	return true, nil
}

func (s *Stream) finish() (*audio.Frame, error) {
	s.exhausted = true
	if s.storedMD5 != nil {
		if sum := s.md5.Sum(); !bytes.Equal(sum[:], s.storedMD5) {
			s.err = ErrMD5Mismatch
			return nil, s.err
		}
	}
	return s.empty(), nil
}

func (s *Stream) empty() *audio.Frame {
	return audio.EmptyFrame(s.format.Channels, s.format.BitsPerSample)
}

func (s *Stream) Close() error { return nil }
