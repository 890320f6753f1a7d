// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"encoding/binary"
	"fmt"
)

// ConfigSize is the length of the ALACSpecificConfig record.
const ConfigSize = 24

// MaxFrameLength is the largest samples-per-frame value accepted.
const MaxFrameLength = 4096 * 4096

// Config is the decoder configuration stored in the alac sample entry.
type Config struct {
	FrameLength       uint32
	CompatibleVersion uint8
	BitDepth          uint8
	PB                uint8 // history multiplier
	MB                uint8 // initial history
	KB                uint8 // maximum Rice k
	Channels          uint8
	MaxRun            uint16
	MaxFrameBytes     uint32
	AvgBitRate        uint32
	SampleRate        uint32
}

// ParseConfig decodes a config record. A leading 'frma' atom and an 'alac'
// atom header, as found in older magic cookies, are skipped.
func ParseConfig(b []byte) (Config, error) {
	const wrapper = 12 // size, type, version/format
	if len(b) >= wrapper && string(b[4:8]) == "frma" {
		b = b[wrapper:]
	}
	if len(b) >= wrapper && string(b[4:8]) == "alac" {
		b = b[wrapper:]
	}
	if len(b) < ConfigSize {
		return Config{}, fmt.Errorf("%w: %d bytes", ErrInvalidConfig, len(b))
	}

	cfg := Config{
		FrameLength:       binary.BigEndian.Uint32(b[0:4]),
		CompatibleVersion: b[4],
		BitDepth:          b[5],
		PB:                b[6],
		MB:                b[7],
		KB:                b[8],
		Channels:          b[9],
		MaxRun:            binary.BigEndian.Uint16(b[10:12]),
		MaxFrameBytes:     binary.BigEndian.Uint32(b[12:16]),
		AvgBitRate:        binary.BigEndian.Uint32(b[16:20]),
		SampleRate:        binary.BigEndian.Uint32(b[20:24]),
	}
	return cfg, cfg.validate()
}

// Bytes encodes the config record.
func (c Config) Bytes() []byte {
	b := make([]byte, ConfigSize)
	binary.BigEndian.PutUint32(b[0:4], c.FrameLength)
	b[4] = c.CompatibleVersion
	b[5] = c.BitDepth
	b[6] = c.PB
	b[7] = c.MB
	b[8] = c.KB
	b[9] = c.Channels
	binary.BigEndian.PutUint16(b[10:12], c.MaxRun)
	binary.BigEndian.PutUint32(b[12:16], c.MaxFrameBytes)
	binary.BigEndian.PutUint32(b[16:20], c.AvgBitRate)
	binary.BigEndian.PutUint32(b[20:24], c.SampleRate)
	return b
}

func (c Config) validate() error {
	switch {
	case c.CompatibleVersion != 0:
		return fmt.Errorf("%w: compatible version %d", ErrInvalidConfig, c.CompatibleVersion)
	case c.BitDepth != 16 && c.BitDepth != 20 && c.BitDepth != 24 && c.BitDepth != 32:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidConfig, c.BitDepth)
	case c.Channels < 1 || c.Channels > 8:
		return fmt.Errorf("%w: %d channels", ErrInvalidConfig, c.Channels)
	case c.FrameLength == 0 || c.FrameLength > MaxFrameLength:
		return fmt.Errorf("%w: frame length %d", ErrInvalidConfig, c.FrameLength)
	case c.KB > 31:
		return fmt.Errorf("%w: maximum k %d", ErrInvalidConfig, c.KB)
	}
	return nil
}
