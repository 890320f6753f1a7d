// SPDX-License-Identifier: EPL-2.0

// Package checksum holds the running checksums the decoders verify: the
// CRC-8 and CRC-16 guarding FLAC frames, the WavPack sample CRC and the MD5
// of decoded PCM.
package checksum

import (
	"crypto/md5"
	"hash"

	"github.com/ik5/lossless/audio"
	"github.com/mewkiz/pkg/hashutil"
	"github.com/mewkiz/pkg/hashutil/crc16"
	"github.com/mewkiz/pkg/hashutil/crc8"
)

// CRC8 accumulates the FLAC frame header CRC (polynomial 0x07, init 0).
type CRC8 struct {
	h       hashutil.Hash8
	scratch [1]byte
}

func NewCRC8() *CRC8 { return &CRC8{h: crc8.NewATM()} }

// Update feeds one byte. It matches bitstream.Callback.
func (c *CRC8) Update(b byte) {
	c.scratch[0] = b
	c.h.Write(c.scratch[:])
}

func (c *CRC8) Sum() uint8 { return c.h.Sum8() }

// CRC16 accumulates the FLAC frame CRC (polynomial 0x8005, init 0).
type CRC16 struct {
	h       hashutil.Hash16
	scratch [1]byte
}

func NewCRC16() *CRC16 { return &CRC16{h: crc16.NewIBM()} }

// Update feeds one byte. It matches bitstream.Callback.
func (c *CRC16) Update(b byte) {
	c.scratch[0] = b
	c.h.Write(c.scratch[:])
}

func (c *CRC16) Sum() uint16 { return c.h.Sum16() }

// WavPackCRC is the per-block sample checksum: seeded with all ones, every
// sample in interleaved order updates crc = 3*crc + sample.
type WavPackCRC uint32

func NewWavPackCRC() WavPackCRC { return 0xFFFFFFFF }

func (c WavPackCRC) Update(sample int32) WavPackCRC {
	return WavPackCRC(uint32(c)*3 + uint32(sample))
}

// WavPackBlock computes the checksum over per-channel sample slices of
// equal length, walking them interleaved.
func WavPackBlock(channels [][]int32) uint32 {
	crc := NewWavPackCRC()
	if len(channels) == 0 {
		return uint32(crc)
	}
	for i := range channels[0] {
		for _, ch := range channels {
			crc = crc.Update(ch[i])
		}
	}
	return uint32(crc)
}

// PCMHash digests decoded frames as packed little-endian PCM, the form both
// FLAC and WavPack store their stream MD5 over.
type PCMHash struct {
	h      hash.Hash
	signed bool
	buf    []byte
}

// NewPCMHash returns an MD5 digest of PCM. When signed is false samples are
// biased into the unsigned range before packing (8-bit WavPack).
func NewPCMHash(signed bool) *PCMHash {
	return &PCMHash{h: md5.New(), signed: signed}
}

func (p *PCMHash) Write(f *audio.Frame) {
	p.buf = f.AppendPCM(p.buf[:0], p.signed)
	p.h.Write(p.buf)
}

// Sum returns the 16-byte digest.
func (p *PCMHash) Sum() [md5.Size]byte {
	var out [md5.Size]byte
	copy(out[:], p.h.Sum(nil))
	return out
}

// Zero reports whether an MD5 field is all zeros, meaning the encoder did
// not record one.
func Zero(sum [md5.Size]byte) bool {
	return sum == [md5.Size]byte{}
}
