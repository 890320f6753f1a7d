// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"bytes"
	"fmt"

	"github.com/ik5/lossless/internal/bitstream"
)

const (
	magic           = "wvpk"
	blockHeaderSize = 32
	// The size field counts the bytes after itself.
	sizeFieldEnd    = 8
	maxBlockSize    = 1 << 24
	maxBlockSamples = 1 << 20

	minVersion = 0x402
	maxVersion = 0x410

	unknownTotal = 0xFFFFFFFF
	customRate   = 15
)

var sampleRates = [customRate]int{
	6000, 8000, 9600, 11025, 12000, 16000, 22050, 24000,
	32000, 44100, 48000, 64000, 88200, 96000, 192000,
}

// BlockHeader is the fixed header in front of every block.
type BlockHeader struct {
	BlockSize    uint32 // bytes following the size field
	Version      uint16
	Track        uint8
	Index        uint8
	TotalSamples uint32 // unknownTotal when not recorded
	BlockIndex   uint32
	BlockSamples uint32

	BytesStored        int // 1-4 bytes per sample
	Mono               bool
	Hybrid             bool
	JointStereo        bool
	CrossDecorrelation bool
	HybridShaping      bool
	Float              bool
	ExtendedInt        bool
	HybridBitrate      bool
	HybridBalance      bool
	InitialBlock       bool
	FinalBlock         bool
	LeftShift          uint
	MaxMagnitude       uint
	SampleRateIndex    int
	IIR                bool
	FalseStereo        bool

	CRC uint32
}

// storedChannels is the number of channels coded in the block.
func (h BlockHeader) storedChannels() int {
	if h.Mono || h.FalseStereo {
		return 1
	}
	return 2
}

// outputChannels is the number of channels the block contributes.
func (h BlockHeader) outputChannels() int {
	if h.Mono {
		return 1
	}
	return 2
}

func (h BlockHeader) payloadSize() int {
	return int(h.BlockSize) - (blockHeaderSize - sizeFieldEnd)
}

// parseBlockHeader decodes a 32-byte block header.
func parseBlockHeader(raw []byte) (BlockHeader, error) {
	var h BlockHeader
	if !bytes.Equal(raw[:len(magic)], []byte(magic)) {
		return h, ErrNotWavPackFile
	}

	br := bitstream.NewBytesReader(raw[len(magic):], bitstream.LSBFirst)
	flag := func(dst *bool) func(uint64) {
		return func(v uint64) { *dst = v != 0 }
	}
	fields := []struct {
		bits uint
		dst  func(uint64)
	}{
		{32, func(v uint64) { h.BlockSize = uint32(v) }},
		{16, func(v uint64) { h.Version = uint16(v) }},
		{8, func(v uint64) { h.Track = uint8(v) }},
		{8, func(v uint64) { h.Index = uint8(v) }},
		{32, func(v uint64) { h.TotalSamples = uint32(v) }},
		{32, func(v uint64) { h.BlockIndex = uint32(v) }},
		{32, func(v uint64) { h.BlockSamples = uint32(v) }},
		{2, func(v uint64) { h.BytesStored = int(v) + 1 }},
		{1, flag(&h.Mono)},
		{1, flag(&h.Hybrid)},
		{1, flag(&h.JointStereo)},
		{1, flag(&h.CrossDecorrelation)},
		{1, flag(&h.HybridShaping)},
		{1, flag(&h.Float)},
		{1, flag(&h.ExtendedInt)},
		{1, flag(&h.HybridBitrate)},
		{1, flag(&h.HybridBalance)},
		{1, flag(&h.InitialBlock)},
		{1, flag(&h.FinalBlock)},
		{5, func(v uint64) { h.LeftShift = uint(v) }},
		{5, func(v uint64) { h.MaxMagnitude = uint(v) }},
		{4, func(v uint64) { h.SampleRateIndex = int(v) }},
		{2, nil},
		{1, flag(&h.IIR)},
		{1, flag(&h.FalseStereo)},
		{1, nil},
		{32, func(v uint64) { h.CRC = uint32(v) }},
	}
	for _, f := range fields {
		v, err := br.Read(f.bits)
		if err != nil {
			return h, fmt.Errorf("wavpack: block header: %w", err)
		}
		if f.dst != nil {
			f.dst(v)
		}
	}

	switch {
	case h.Version < minVersion || h.Version > maxVersion:
		return h, fmt.Errorf("%w: %#x", ErrUnsupportedVersion, h.Version)
	case h.Hybrid:
		return h, fmt.Errorf("%w: hybrid", ErrUnsupportedMode)
	case h.Float:
		return h, fmt.Errorf("%w: floating point", ErrUnsupportedMode)
	case h.payloadSize() < 0 || h.BlockSize > maxBlockSize || h.BlockSamples > maxBlockSamples:
		return h, fmt.Errorf("%w: %d", ErrInvalidBlockSize, h.BlockSize)
	}
	return h, nil
}
