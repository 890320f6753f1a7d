// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"fmt"
	"io"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/bitstream"
)

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream decodes one ALAC frameset per Read.
type Stream struct {
	br  *bitstream.Reader
	cfg Config

	total     int64 // -1 when unknown
	remaining int64

	exhausted bool
	err       error
}

// Open parses the M4A atom tree and leaves r positioned on the first
// frameset inside mdat. The moov atom may come before or after mdat.
func Open(r io.Reader) (*Stream, error) {
	br := bitstream.NewReader(r, bitstream.MSBFirst)

	br.Mark()
	defer br.Unmark()

	var trk *track
	for trk == nil {
		end, err := br.AtEnd()
		if err != nil {
			return nil, fmt.Errorf("alac: %w", err)
		}
		if end {
			return nil, ErrNoMovie
		}
		a, err := readAtom(br)
		if err != nil {
			return nil, fmt.Errorf("alac: atom header: %w", err)
		}
		if a.size < 0 {
			return nil, ErrNoMovie
		}
		if a.typ != "moov" {
			if err := br.SkipBytes(int(a.size)); err != nil {
				return nil, fmt.Errorf("alac: atom %q: %w", a.typ, err)
			}
			continue
		}
		moov, err := a.buffer(br)
		if err != nil {
			return nil, fmt.Errorf("alac: moov: %w", err)
		}
		if trk, err = parseMovie(moov); err != nil {
			return nil, fmt.Errorf("alac: moov: %w", err)
		}
		if trk == nil {
			return nil, ErrNoALACTrack
		}
	}

	br.Rewind()
	for {
		end, err := br.AtEnd()
		if err != nil {
			return nil, fmt.Errorf("alac: %w", err)
		}
		if end {
			return nil, ErrNoMediaData
		}
		a, err := readAtom(br)
		if err != nil {
			return nil, fmt.Errorf("alac: atom header: %w", err)
		}
		if a.typ == "mdat" {
			if trk.duration == 0 && a.size >= 0 {
				// Without a duration the payload ends with the atom.
				if br, err = br.Substream(int(a.size)); err != nil {
					return nil, fmt.Errorf("alac: mdat: %w", err)
				}
			}
			break
		}
		if a.size < 0 {
			return nil, ErrNoMediaData
		}
		if err := br.SkipBytes(int(a.size)); err != nil {
			return nil, fmt.Errorf("alac: atom %q: %w", a.typ, err)
		}
	}

	total := int64(trk.duration)
	if trk.duration == 0 {
		total = -1
	}
	return newStream(br, trk.cfg, total), nil
}

// NewStream decodes a raw ALAC payload, such as the contents of an mdat
// atom. totalFrames limits the output and is negative when unknown, in
// which case decoding stops at the end of payload.
func NewStream(cfg Config, totalFrames int64, payload io.Reader) (*Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newStream(bitstream.NewReader(payload, bitstream.MSBFirst), cfg, totalFrames), nil
}

func newStream(br *bitstream.Reader, cfg Config, total int64) *Stream {
	return &Stream{br: br, cfg: cfg, total: total, remaining: total}
}

// Config returns the decoder configuration.
func (s *Stream) Config() Config { return s.cfg }

func (s *Stream) Format() audio.Format {
	return audio.Format{
		SampleRate:    int(s.cfg.SampleRate),
		Channels:      int(s.cfg.Channels),
		BitsPerSample: int(s.cfg.BitDepth),
		ChannelMask:   channelMasks[s.cfg.Channels],
		TotalFrames:   s.total,
	}
}

// Read decodes the next frameset. maxFrames is ignored.
func (s *Stream) Read(int) (*audio.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted || s.remaining == 0 {
		s.exhausted = true
		return s.empty(), nil
	}
	if s.remaining < 0 {
		end, err := s.br.AtEnd()
		if err != nil {
			s.err = fmt.Errorf("alac: %w", err)
			return nil, s.err
		}
		if end {
			s.exhausted = true
			return s.empty(), nil
		}
	}

	frame, err := s.readFrameset()
	if err != nil {
		s.err = err
		return nil, err
	}
	if s.remaining > 0 {
		s.remaining = max(s.remaining-int64(frame.Len()), 0)
	}
	return frame, nil
}

func (s *Stream) empty() *audio.Frame {
	return audio.EmptyFrame(int(s.cfg.Channels), int(s.cfg.BitDepth))
}

func (s *Stream) Close() error { return nil }
