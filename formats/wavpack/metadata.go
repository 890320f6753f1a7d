// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"fmt"
	"math"

	"github.com/ik5/lossless/internal/bitstream"
)

// Sub-block function ids. The optional ids are only meaningful with the
// nondecoder bit set.
const (
	idDummy         = 0x0
	idEncoderInfo   = 0x1
	idDecorrTerms   = 0x2
	idDecorrWeights = 0x3
	idDecorrSamples = 0x4
	idEntropyVars   = 0x5
	idInt32Info     = 0x9
	idBitstream     = 0xa
	idChannelInfo   = 0xd

	idOptMD5        = 0x6
	idOptSampleRate = 0x7
)

const (
	maxTerms   = 16
	maxTerm    = 8
	maxHistory = 2 // terms 17 and 18
)

type subBlock struct {
	id         uint8
	nondecoder bool
	data       []byte
}

// readSubBlocks splits a block payload into its sub-blocks.
func readSubBlocks(payload []byte) ([]subBlock, error) {
	br := bitstream.NewBytesReader(payload, bitstream.LSBFirst)
	var out []subBlock
	for {
		end, err := br.AtEnd()
		if err != nil {
			return nil, err
		}
		if end {
			return out, nil
		}

		var id, nondecoder, odd, large uint64
		for _, f := range []struct {
			dst  *uint64
			bits uint
		}{{&id, 5}, {&nondecoder, 1}, {&odd, 1}, {&large, 1}} {
			if *f.dst, err = br.Read(f.bits); err != nil {
				return nil, fmt.Errorf("%w: truncated header", ErrInvalidSubBlock)
			}
		}
		sizeBits := uint(8)
		if large == 1 {
			sizeBits = 24
		}
		words, err := br.Read(sizeBits)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated header", ErrInvalidSubBlock)
		}
		n := int(words) * 2
		if odd == 1 && n == 0 {
			return nil, fmt.Errorf("%w: odd empty sub-block", ErrInvalidSubBlock)
		}
		raw, err := br.ReadBytes(n)
		if err != nil {
			return nil, fmt.Errorf("%w: id %#x overruns block", ErrInvalidSubBlock, id)
		}
		out = append(out, subBlock{
			id:         uint8(id),
			nondecoder: nondecoder == 1,
			data:       raw[:n-int(odd)],
		})
	}
}

var exp2Table = func() (t [256]uint32) {
	for i := range t {
		t[i] = uint32(math.Round(math.Exp2(float64(i)/256)*256)) - 256
	}
	return t
}()

// exp2s expands the 8.8 fixed point base-2 logarithms WavPack stores
// history samples and medians as.
func exp2s(log int32) int32 {
	if log < 0 {
		return -exp2s(-log)
	}
	value := exp2Table[log&0xff] | 0x100
	if log >>= 8; log <= 9 {
		return int32(value >> (9 - log))
	}
	return int32(value << (log - 9))
}

// restoreWeight expands a stored 8-bit decorrelation weight.
func restoreWeight(stored int8) int32 {
	w := int32(stored) << 3
	if w > 0 {
		w += (w + 64) >> 7
	}
	return w
}

// decorrPass is one stage of the decorrelation cascade. History slices hold
// the samples before the block, oldest first.
type decorrPass struct {
	term     int
	delta    int32
	weightA  int32
	weightB  int32
	historyA []int32
	historyB []int32
}

// historyLen is the number of samples per channel a pass looks back.
func (p decorrPass) historyLen() int {
	switch {
	case p.term > maxTerm:
		return maxHistory
	case p.term < 0:
		return 1
	}
	return p.term
}

// int32Info describes how samples wider than 24 bits were reduced.
type int32Info struct {
	sentBits uint8
	zeros    uint8
	ones     uint8
	dups     uint8
}

// blockParams collects what a block's sub-blocks define.
type blockParams struct {
	passes    []decorrPass // in coding order
	medians   [2][3]uint32
	int32     int32Info
	bitstream []byte

	channels    int
	channelMask uint32
	sampleRate  int
	md5         []byte
}

func parseParams(h BlockHeader, subs []subBlock) (*blockParams, error) {
	p := &blockParams{}
	stereo := h.storedChannels() == 2
	for _, sb := range subs {
		var err error
		if sb.nondecoder {
			switch sb.id {
			case idOptMD5:
				if len(sb.data) != 16 {
					return nil, fmt.Errorf("%w: MD5 of %d bytes", ErrInvalidSubBlock, len(sb.data))
				}
				p.md5 = sb.data
			case idOptSampleRate:
				err = p.readSampleRate(sb.data)
			}
		} else {
			switch sb.id {
			case idDummy, idEncoderInfo:
			case idDecorrTerms:
				err = p.readTerms(sb.data, stereo)
			case idDecorrWeights:
				err = p.readWeights(sb.data, stereo)
			case idDecorrSamples:
				err = p.readHistory(sb.data, stereo)
			case idEntropyVars:
				err = p.readMedians(sb.data, stereo)
			case idInt32Info:
				err = p.readInt32Info(sb.data)
			case idBitstream:
				p.bitstream = sb.data
			case idChannelInfo:
				err = p.readChannelInfo(sb.data)
			default:
				err = fmt.Errorf("%w: %#x", ErrUnknownSubBlock, sb.id)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// readTerms starts a new cascade. Each byte holds term+5 in the low five
// bits and the weight delta in the high three.
func (p *blockParams) readTerms(data []byte, stereo bool) error {
	if len(data) > maxTerms {
		return fmt.Errorf("%w: %d passes", ErrInvalidTerm, len(data))
	}
	p.passes = make([]decorrPass, len(data))
	for i, b := range data {
		term := int(b&0x1f) - 5
		valid := (term >= 1 && term <= maxTerm) || term == 17 || term == 18 ||
			(stereo && term >= -3 && term <= -1)
		if !valid {
			return fmt.Errorf("%w: %d", ErrInvalidTerm, term)
		}
		pass := decorrPass{term: term, delta: int32(b>>5) & 7}
		pass.historyA = make([]int32, pass.historyLen())
		pass.historyB = make([]int32, pass.historyLen())
		p.passes[i] = pass
	}
	return nil
}

// readWeights assigns weights to the leading passes; the rest keep zero.
func (p *blockParams) readWeights(data []byte, stereo bool) error {
	per := 1
	if stereo {
		per = 2
	}
	if len(data)%per != 0 || len(data)/per > len(p.passes) {
		return fmt.Errorf("%w: %d bytes for %d passes", ErrInvalidWeights, len(data), len(p.passes))
	}
	for i := range len(data) / per {
		p.passes[i].weightA = restoreWeight(int8(data[i*per]))
		if stereo {
			p.passes[i].weightB = restoreWeight(int8(data[i*per+1]))
		}
	}
	return nil
}

// readHistory fills pass histories in coding order until the data runs
// out. Terms 17 and 18 store the most recent sample first.
func (p *blockParams) readHistory(data []byte, stereo bool) error {
	br := bitstream.NewBytesReader(data, bitstream.LSBFirst)
	next := func() (int32, error) {
		v, err := br.Read(16)
		if err != nil {
			return 0, fmt.Errorf("%w: truncated", ErrInvalidHistory)
		}
		return exp2s(int32(int16(v))), nil
	}

	if len(data)%2 != 0 {
		return fmt.Errorf("%w: odd length", ErrInvalidHistory)
	}
	for i := range p.passes {
		if end, _ := br.AtEnd(); end {
			return nil
		}
		pass := &p.passes[i]
		var err error
		switch {
		case pass.term > maxTerm:
			for _, h := range [][]int32{pass.historyA, pass.historyB}[:channelsOf(stereo)] {
				if h[1], err = next(); err != nil {
					return err
				}
				if h[0], err = next(); err != nil {
					return err
				}
			}
		case pass.term < 0:
			if pass.historyA[0], err = next(); err != nil {
				return err
			}
			if pass.historyB[0], err = next(); err != nil {
				return err
			}
		default:
			for m := range pass.term {
				if pass.historyA[m], err = next(); err != nil {
					return err
				}
				if stereo {
					if pass.historyB[m], err = next(); err != nil {
						return err
					}
				}
			}
		}
	}
	if end, _ := br.AtEnd(); !end {
		return fmt.Errorf("%w: trailing data", ErrInvalidHistory)
	}
	return nil
}

func channelsOf(stereo bool) int {
	if stereo {
		return 2
	}
	return 1
}

// readMedians sets the entropy coder's starting medians.
func (p *blockParams) readMedians(data []byte, stereo bool) error {
	n := channelsOf(stereo)
	if len(data) != 6*n {
		return fmt.Errorf("%w: %d bytes", ErrInvalidEntropy, len(data))
	}
	br := bitstream.NewBytesReader(data, bitstream.LSBFirst)
	for c := range n {
		for m := range p.medians[c] {
			v, err := br.Read(16)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidEntropy, err)
			}
			p.medians[c][m] = uint32(exp2s(int32(v)))
		}
	}
	return nil
}

func (p *blockParams) readInt32Info(data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("%w: int32 info of %d bytes", ErrInvalidSubBlock, len(data))
	}
	p.int32 = int32Info{sentBits: data[0], zeros: data[1], ones: data[2], dups: data[3]}
	if p.int32.sentBits != 0 {
		return fmt.Errorf("%w: int32 data needs an extension stream", ErrUnsupportedMode)
	}
	if p.int32.zeros >= 32 || p.int32.ones >= 32 || p.int32.dups >= 32 {
		return fmt.Errorf("%w: int32 shift out of range", ErrInvalidSubBlock)
	}
	return nil
}

// readChannelInfo reads the channel count and an optional little-endian
// speaker mask.
func (p *blockParams) readChannelInfo(data []byte) error {
	if len(data) == 0 || len(data) > 5 || data[0] == 0 {
		return fmt.Errorf("%w: channel info of %d bytes", ErrInvalidChannels, len(data))
	}
	p.channels = int(data[0])
	p.channelMask = 0
	for i, b := range data[1:] {
		p.channelMask |= uint32(b) << (8 * i)
	}
	return nil
}

func (p *blockParams) readSampleRate(data []byte) error {
	if len(data) < 3 || len(data) > 4 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidSampleRate, len(data))
	}
	rate := 0
	for i, b := range data {
		rate |= int(b) << (8 * i)
	}
	p.sampleRate = rate
	return nil
}
