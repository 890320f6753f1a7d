// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/bitstream"
	"github.com/ik5/lossless/internal/checksum"
)

const (
	blockStreamInfo = 0
	blockInvalid    = 127

	streamInfoSize = 34
)

// StreamInfo is the mandatory first metadata block of a FLAC stream.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	// TotalSamples per channel, 0 when unknown.
	TotalSamples uint64
	MD5          [16]byte
}

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream decodes one FLAC frame per Read.
type Stream struct {
	br   *bitstream.Reader
	info StreamInfo

	remaining uint64
	md5       *checksum.PCMHash

	exhausted bool
	err       error
}

// Open reads the stream signature and metadata, leaving r positioned on the
// first audio frame. A leading ID3v2 tag is skipped.
func Open(r io.Reader) (*Stream, error) {
	br := bitstream.NewReader(r, bitstream.MSBFirst)

	if err := skipID3(br); err != nil {
		return nil, fmt.Errorf("flac: id3 tag: %w", err)
	}

	magic, err := br.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("flac: signature: %w", err)
	}
	if !bytes.Equal(magic, []byte("fLaC")) {
		return nil, ErrNotFlacFile
	}

	info, err := readMetadata(br)
	if err != nil {
		return nil, err
	}

	return &Stream{
		br:        br,
		info:      info,
		remaining: info.TotalSamples,
		md5:       checksum.NewPCMHash(true),
	}, nil
}

// skipID3 discards an ID3v2 tag if one starts at the current position.
func skipID3(br *bitstream.Reader) error {
	br.Mark()
	defer br.Unmark()

	head, err := br.ReadBytes(3)
	if err != nil || !bytes.Equal(head, []byte("ID3")) {
		br.Rewind()
		return nil
	}

	// version, revision, flags
	hdr, err := br.ReadBytes(3)
	if err != nil {
		return err
	}
	var size int
	for range 4 {
		b, err := br.Read(8)
		if err != nil {
			return err
		}
		size = size<<7 | int(b&0x7F)
	}
	if hdr[2]&0x10 != 0 {
		size += 10
	}
	return br.SkipBytes(size)
}

func readMetadata(br *bitstream.Reader) (StreamInfo, error) {
	var info StreamInfo
	for first := true; ; first = false {
		last, err := br.ReadBit()
		if err != nil {
			return info, fmt.Errorf("flac: metadata header: %w", err)
		}
		typ, err := br.Read(7)
		if err != nil {
			return info, fmt.Errorf("flac: metadata header: %w", err)
		}
		size, err := br.Read(24)
		if err != nil {
			return info, fmt.Errorf("flac: metadata header: %w", err)
		}

		switch {
		case first && typ != blockStreamInfo:
			return info, ErrMissingStreamInfo
		case typ == blockInvalid:
			return info, ErrInvalidMetadata
		case typ == blockStreamInfo:
			if !first || size != streamInfoSize {
				return info, ErrInvalidStreamInfo
			}
			sub, err := br.Substream(streamInfoSize)
			if err != nil {
				return info, fmt.Errorf("flac: STREAMINFO: %w", err)
			}
			if info, err = parseStreamInfo(sub); err != nil {
				return info, err
			}
		default:
			if err := br.SkipBytes(int(size)); err != nil {
				return info, fmt.Errorf("flac: metadata block %d: %w", typ, err)
			}
		}

		if last == 1 {
			return info, nil
		}
	}
}

func parseStreamInfo(br *bitstream.Reader) (StreamInfo, error) {
	var info StreamInfo
	fields := []struct {
		bits uint
		dst  func(uint64)
	}{
		{16, func(v uint64) { info.MinBlockSize = uint16(v) }},
		{16, func(v uint64) { info.MaxBlockSize = uint16(v) }},
		{24, func(v uint64) { info.MinFrameSize = uint32(v) }},
		{24, func(v uint64) { info.MaxFrameSize = uint32(v) }},
		{20, func(v uint64) { info.SampleRate = uint32(v) }},
		{3, func(v uint64) { info.Channels = uint8(v) + 1 }},
		{5, func(v uint64) { info.BitsPerSample = uint8(v) + 1 }},
		{36, func(v uint64) { info.TotalSamples = v }},
	}
	for _, f := range fields {
		v, err := br.Read(f.bits)
		if err != nil {
			return info, fmt.Errorf("flac: STREAMINFO: %w", err)
		}
		f.dst(v)
	}
	sum, err := br.ReadBytes(16)
	if err != nil {
		return info, fmt.Errorf("flac: STREAMINFO: %w", err)
	}
	copy(info.MD5[:], sum)

	if info.SampleRate == 0 || info.BitsPerSample < 4 ||
		info.MaxBlockSize < 16 || info.MinBlockSize > info.MaxBlockSize {
		return info, ErrInvalidStreamInfo
	}
	return info, nil
}

// Info returns the parsed STREAMINFO block.
func (s *Stream) Info() StreamInfo { return s.info }

func (s *Stream) Format() audio.Format {
	total := int64(s.info.TotalSamples)
	if total == 0 {
		total = -1
	}
	return audio.Format{
		SampleRate:    int(s.info.SampleRate),
		Channels:      int(s.info.Channels),
		BitsPerSample: int(s.info.BitsPerSample),
		ChannelMask:   audio.DefaultChannelMask(int(s.info.Channels)),
		TotalFrames:   total,
	}
}

// Read decodes the next frame. maxFrames is ignored; FLAC frames are never
// split. After the last frame the stream MD5 is checked once, then every
// call returns an empty frame.
func (s *Stream) Read(int) (*audio.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted {
		return s.empty(), nil
	}

	done, err := s.atEnd()
	if err != nil {
		s.err = err
		return nil, err
	}
	if done {
		return s.finish()
	}

	frame, err := s.readFrame()
	if err != nil {
		s.err = err
		return nil, err
	}
	if s.info.TotalSamples != 0 {
		n := uint64(frame.Len())
		if n > s.remaining {
			s.err = ErrTooManySamples
			return nil, s.err
		}
		s.remaining -= n
	}
	s.md5.Write(frame)
	return frame, nil
}

func (s *Stream) atEnd() (bool, error) {
	if s.info.TotalSamples != 0 {
		return s.remaining == 0, nil
	}
	end, err := s.br.AtEnd()
	if err != nil {
		return false, fmt.Errorf("flac: %w", err)
	}
	return end, nil
}

func (s *Stream) finish() (*audio.Frame, error) {
	s.exhausted = true
	if !checksum.Zero(s.info.MD5) && s.md5.Sum() != s.info.MD5 {
		s.err = ErrMD5Mismatch
		return nil, s.err
	}
	return s.empty(), nil
}

func (s *Stream) empty() *audio.Frame {
	return audio.EmptyFrame(int(s.info.Channels), int(s.info.BitsPerSample))
}

func (s *Stream) Close() error { return nil }
