// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"fmt"

	"github.com/ik5/lossless/internal/bitstream"
)

const (
	atomHeaderSize     = 8
	largeHeaderSize    = 16
	sampleEntrySize    = 28 // audio sample entry fields after the format
	mediaHeaderV0Skip  = 8  // creation and modification time
	mediaHeaderV1Skip  = 16 // 64-bit creation and modification time
	fullAtomHeaderSize = 4  // version and flags

	// maxBufferedAtom bounds the atoms read into memory: moov and its
	// children, and sample entries.
	maxBufferedAtom = 64 << 20
)

// atom is a box header. size is the body length, or -1 when the atom
// extends to the end of the file.
type atom struct {
	typ  string
	size int64
}

func readAtom(br *bitstream.Reader) (atom, error) {
	size, err := br.Read(32)
	if err != nil {
		return atom{}, err
	}
	typ, err := br.ReadBytes(4)
	if err != nil {
		return atom{}, err
	}
	a := atom{typ: string(typ)}

	switch {
	case size == 0:
		a.size = -1
	case size == 1:
		large, err := br.Read(64)
		if err != nil {
			return atom{}, err
		}
		if large < largeHeaderSize || large > 1<<62 {
			return atom{}, fmt.Errorf("%w: %q size %d", ErrInvalidAtom, a.typ, large)
		}
		a.size = int64(large) - largeHeaderSize
	case size < atomHeaderSize:
		return atom{}, fmt.Errorf("%w: %q size %d", ErrInvalidAtom, a.typ, size)
	default:
		a.size = int64(size) - atomHeaderSize
	}
	return a, nil
}

// buffer reads the body of a and returns a cursor over it.
func (a atom) buffer(br *bitstream.Reader) (*bitstream.Reader, error) {
	switch {
	case a.size < 0:
		return nil, fmt.Errorf("%w: %q has open-ended size inside a container", ErrInvalidAtom, a.typ)
	case a.size > maxBufferedAtom:
		return nil, fmt.Errorf("%w: %q size %d exceeds %d", ErrInvalidAtom, a.typ, a.size, maxBufferedAtom)
	}
	return br.Substream(int(a.size))
}

// eachAtom walks the child atoms of a buffered container body until fn
// returns true or the body ends.
func eachAtom(br *bitstream.Reader, fn func(typ string, body *bitstream.Reader) (bool, error)) error {
	for {
		end, err := br.AtEnd()
		if err != nil || end {
			return err
		}
		a, err := readAtom(br)
		if err != nil {
			return err
		}
		body, err := a.buffer(br)
		if err != nil {
			return err
		}
		stop, err := fn(a.typ, body)
		if err != nil || stop {
			return err
		}
	}
}

// findAtom descends through the named child atoms and returns the body of
// the last one, or nil when any of them is missing.
func findAtom(br *bitstream.Reader, path ...string) (*bitstream.Reader, error) {
	for _, name := range path {
		var found *bitstream.Reader
		err := eachAtom(br, func(typ string, body *bitstream.Reader) (bool, error) {
			if typ == name {
				found = body
				return true, nil
			}
			return false, nil
		})
		if err != nil || found == nil {
			return nil, err
		}
		br = found
	}
	return br, nil
}

// track is what the decoder needs from a moov atom.
type track struct {
	cfg Config
	// duration in media time units, 0 when unknown. For audio tracks the
	// media timescale is the sample rate, so this counts PCM frames.
	duration uint64
}

// parseMovie returns the first track carrying an alac sample entry, or nil.
func parseMovie(moov *bitstream.Reader) (*track, error) {
	var trk *track
	err := eachAtom(moov, func(typ string, body *bitstream.Reader) (bool, error) {
		if typ != "trak" {
			return false, nil
		}
		mdia, err := findAtom(body, "mdia")
		if err != nil || mdia == nil {
			return false, err
		}
		trk, err = parseMedia(mdia)
		return trk != nil, err
	})
	return trk, err
}

func parseMedia(mdia *bitstream.Reader) (*track, error) {
	var (
		duration uint64
		cfg      *Config
	)
	err := eachAtom(mdia, func(typ string, body *bitstream.Reader) (bool, error) {
		var err error
		switch typ {
		case "mdhd":
			duration, err = parseMediaHeader(body)
		case "minf":
			var stsd *bitstream.Reader
			stsd, err = findAtom(body, "stbl", "stsd")
			if err == nil && stsd != nil {
				cfg, err = parseSampleDescription(stsd)
			}
		}
		return false, err
	})
	if err != nil || cfg == nil {
		return nil, err
	}
	return &track{cfg: *cfg, duration: duration}, nil
}

func parseMediaHeader(br *bitstream.Reader) (uint64, error) {
	version, err := br.Read(8)
	if err != nil {
		return 0, err
	}
	if err := br.SkipBytes(3); err != nil {
		return 0, err
	}

	width, skip := uint(32), mediaHeaderV0Skip
	if version == 1 {
		width, skip = 64, mediaHeaderV1Skip
	}
	if err := br.SkipBytes(skip + 4); err != nil { // times and timescale
		return 0, err
	}
	duration, err := br.Read(width)
	if err != nil {
		return 0, err
	}
	if duration == 1<<width-1 {
		return 0, nil
	}
	return duration, nil
}

// parseSampleDescription returns the config of the first alac entry in an
// stsd atom, or nil.
func parseSampleDescription(br *bitstream.Reader) (*Config, error) {
	if err := br.SkipBytes(fullAtomHeaderSize); err != nil {
		return nil, err
	}
	count, err := br.Read(32)
	if err != nil {
		return nil, err
	}

	for range count {
		entry, err := readAtom(br)
		if err != nil {
			return nil, err
		}
		body, err := entry.buffer(br)
		if err != nil {
			return nil, err
		}
		if entry.typ != "alac" {
			continue
		}
		if err := body.SkipBytes(sampleEntrySize); err != nil {
			return nil, err
		}
		cookie, err := findAtom(body, "alac")
		if err != nil {
			return nil, err
		}
		if cookie == nil {
			return nil, fmt.Errorf("%w: alac sample entry without config", ErrInvalidConfig)
		}
		if err := cookie.SkipBytes(fullAtomHeaderSize); err != nil {
			return nil, err
		}
		raw, err := cookie.ReadBytes(ConfigSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		cfg, err := ParseConfig(raw)
		if err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return nil, nil
}
