// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"math/bits"
	"slices"

	"github.com/ik5/lossless/internal/audiotest"
	"github.com/ik5/lossless/internal/checksum"
)

// Test stream builder. It runs the decorrelation passes forward and codes
// the residuals against the median state the decoder tracks.

func term(t, delta int) byte { return byte(t+5)&0x1f | byte(delta)<<5 }

func putElias(w *audiotest.LSBWriter, v uint32) {
	if v < 2 {
		w.Ones(int(v)).Bits(0, 1)
		return
	}
	n := bits.Len32(v)
	w.Ones(n).Bits(0, 1).Bits(uint64(v), uint(n-1))
}

func putCode(w *audiotest.LSBWriter, code, maxCode uint32) {
	n := uint(bits.Len32(maxCode))
	if n == 0 {
		return
	}
	extras := uint32(1)<<n - maxCode - 1
	if code < extras {
		w.Bits(uint64(code), n-1)
		return
	}
	code += extras
	w.Bits(uint64(code>>1), n-1).Bits(uint64(code&1), 1)
}

func putUnary(w *audiotest.LSBWriter, n uint32) {
	if n < limitOnes {
		w.Ones(int(n)).Bits(0, 1)
		return
	}
	w.Ones(limitOnes).Bits(0, 1)
	putElias(w, n-limitOnes)
}

func magnitude(v int32) (uint32, uint64) {
	if v < 0 {
		return uint32(^v), 1
	}
	return uint32(v), 0
}

// onesFor is the unary count the decoder must see to land on mid.
func onesFor(st *words, c int, mid uint32) uint32 {
	m0, m1, m2 := st.med(c, 0), st.med(c, 1), st.med(c, 2)
	switch {
	case mid < m0:
		return 0
	case mid-m0 < m1:
		return 1
	}
	return 2 + (mid-m0-m1)/m2
}

// encodeWords codes interleaved residuals of the stored channels.
func encodeWords(stored [][]int32, medians [2][3]uint32) []byte {
	out := &audiotest.LSBWriter{}
	st := &words{medians: medians}
	k := len(stored)
	vals := make([]int32, 0, k*len(stored[0]))
	for i := range stored[0] {
		for _, ch := range stored {
			vals = append(vals, ch[i])
		}
	}

	for i, v := range vals {
		c := i % k
		if st.medians[0][0] < 2 && st.medians[1][0] < 2 && !st.holdingZero && !st.holdingOne {
			if st.zeros > 0 {
				st.zeros--
				if st.zeros > 0 {
					continue
				}
			} else {
				run := 0
				for i+run < len(vals) && vals[i+run] == 0 {
					run++
				}
				putElias(out, uint32(run))
				if run > 0 {
					st.zeros = uint32(run)
					st.medians = [2][3]uint32{}
					continue
				}
			}
		}

		mid, sign := magnitude(v)
		ones := onesFor(st, c, mid)
		low, high := st.bounds(c, ones)
		if st.holdingZero {
			st.holdingZero = false
		} else {
			hold := false
			if i+1 < len(vals) {
				next, _ := magnitude(vals[i+1])
				hold = onesFor(st, (i+1)%k, next) > 0
			}
			n := 2 * ones
			if st.holdingOne {
				n = 2 * (ones - 1)
			}
			if hold {
				n++
			}
			st.holdingOne, st.holdingZero = hold, !hold
			putUnary(out, n)
		}
		putCode(out, mid-low, high-low)
		out.Bits(sign, 1)
	}
	return out.Bytes()
}

// The decorrelation below runs in the encoder direction with its own
// weight arithmetic: 10-bit fixed point weights, stepped by delta toward
// the sign agreement of source and residual.

func weighted(weight, sample int32) int32 {
	return int32((int64(weight)*int64(sample) + 512) >> 10)
}

func nudge(weight, delta, source, residual int32) int32 {
	switch {
	case source == 0 || residual == 0:
		return weight
	case (source < 0) != (residual < 0):
		return weight - delta
	}
	return weight + delta
}

func nudgeClip(weight, delta, source, residual int32) int32 {
	return min(max(nudge(weight, delta, source, residual), -1024), 1024)
}

// applyChannel runs one positive-term pass over a channel in place. history
// holds the samples before buf, oldest first.
func applyChannel(term int, delta, weight int32, history, buf []int32) {
	if term > 8 {
		prev, last := history[0], history[1]
		for i, x := range buf {
			sam := 2*last - prev
			if term == 18 {
				sam = (3*last - prev) >> 1
			}
			prev, last = last, x
			buf[i] = x - weighted(weight, sam)
			weight = nudge(weight, delta, sam, buf[i])
		}
		return
	}

	ring := slices.Clone(history)
	for i, x := range buf {
		m := i % term
		sam := ring[m]
		ring[m] = x
		buf[i] = x - weighted(weight, sam)
		weight = nudge(weight, delta, sam, buf[i])
	}
}

// applyCross runs one negative-term pass, predicting each channel from the
// other one.
func applyCross(p decorrPass, left, right []int32) {
	wA, wB := p.weightA, p.weightB
	samA, samB := p.historyA[0], p.historyB[0]
	for i := range left {
		l, r := left[i], right[i]
		switch p.term {
		case -1:
			left[i] = l - weighted(wA, samA)
			wA = nudgeClip(wA, p.delta, samA, left[i])
			right[i] = r - weighted(wB, l)
			wB = nudgeClip(wB, p.delta, l, right[i])
			samA = r
		case -2:
			right[i] = r - weighted(wB, samB)
			wB = nudgeClip(wB, p.delta, samB, right[i])
			left[i] = l - weighted(wA, r)
			wA = nudgeClip(wA, p.delta, r, left[i])
			samB = l
		case -3:
			left[i] = l - weighted(wA, samA)
			wA = nudgeClip(wA, p.delta, samA, left[i])
			right[i] = r - weighted(wB, samB)
			wB = nudgeClip(wB, p.delta, samB, right[i])
			samA, samB = r, l
		}
	}
}

func applyPasses(passes []decorrPass, channels [][]int32) {
	for _, p := range passes {
		if p.term < 0 {
			applyCross(p, channels[0], channels[1])
			continue
		}
		applyChannel(p.term, p.delta, p.weightA, p.historyA, channels[0])
		if len(channels) == 2 {
			applyChannel(p.term, p.delta, p.weightB, p.historyB, channels[1])
		}
	}
}

// blockLayout describes one block. samples are the channels the block
// decodes to; the coded form is derived from the header flags.
type blockLayout struct {
	hdr         BlockHeader
	terms       []byte
	weights     []int8
	history     []int16
	medians     []uint16
	int32       *int32Info
	channelInfo []byte
	sampleRate  int
	md5         []byte
	extra       []subBlock
	bitstream   []byte // replaces the coded residuals when set
	samples     [][]int32
}

// defaultHeader is a 16-bit 44.1 kHz single-block frame.
func defaultHeader(channels int, total uint32) BlockHeader {
	return BlockHeader{
		Version:         0x407,
		TotalSamples:    total,
		BytesStored:     2,
		Mono:            channels == 1,
		InitialBlock:    true,
		FinalBlock:      true,
		SampleRateIndex: 9,
	}
}

func subBlockBytes(sb subBlock) []byte {
	data := sb.data
	odd := len(data) % 2
	if odd == 1 {
		data = append(slices.Clone(data), 0)
	}
	id := sb.id & 0x1f
	if sb.nondecoder {
		id |= 0x20
	}
	if odd == 1 {
		id |= 0x40
	}
	n := len(data) / 2
	if n > 0xff {
		id |= 0x80
		return append([]byte{id, byte(n), byte(n >> 8), byte(n >> 16)}, data...)
	}
	return append([]byte{id, byte(n)}, data...)
}

func le16s(v []int16) []byte {
	out := make([]byte, 0, 2*len(v))
	for _, x := range v {
		out = append(out, byte(x), byte(uint16(x)>>8))
	}
	return out
}

func headerBytes(h BlockHeader) []byte {
	w := &audiotest.LSBWriter{}
	for _, b := range []byte(magic) {
		w.Bits(uint64(b), 8)
	}
	flag := func(b bool) uint64 {
		if b {
			return 1
		}
		return 0
	}
	w.Bits(uint64(h.BlockSize), 32).Bits(uint64(h.Version), 16)
	w.Bits(uint64(h.Track), 8).Bits(uint64(h.Index), 8)
	w.Bits(uint64(h.TotalSamples), 32).Bits(uint64(h.BlockIndex), 32).Bits(uint64(h.BlockSamples), 32)
	w.Bits(uint64(h.BytesStored-1), 2)
	for _, f := range []bool{h.Mono, h.Hybrid, h.JointStereo, h.CrossDecorrelation, h.HybridShaping,
		h.Float, h.ExtendedInt, h.HybridBitrate, h.HybridBalance, h.InitialBlock, h.FinalBlock} {
		w.Bits(flag(f), 1)
	}
	w.Bits(uint64(h.LeftShift), 5).Bits(uint64(h.MaxMagnitude), 5).Bits(uint64(h.SampleRateIndex), 4)
	w.Bits(0, 2).Bits(flag(h.IIR), 1).Bits(flag(h.FalseStereo), 1).Bits(0, 1)
	w.Bits(uint64(h.CRC), 32)
	return w.Bytes()
}

// encodeBlock builds a whole block. It panics when the layout cannot be
// represented, which only happens for a broken test table.
func encodeBlock(b blockLayout) []byte {
	hdr := b.hdr
	hdr.BlockSamples = uint32(len(b.samples[0]))

	stored := make([][]int32, 0, 2)
	for _, ch := range b.samples[:min(len(b.samples), hdr.storedChannels())] {
		stored = append(stored, slices.Clone(ch))
	}
	for _, ch := range stored {
		for i, v := range ch {
			v >>= hdr.LeftShift
			if hdr.ExtendedInt && b.int32 != nil {
				switch {
				case b.int32.zeros > 0:
					v >>= b.int32.zeros
				case b.int32.ones > 0:
					v = (v+1)>>b.int32.ones - 1
				}
			}
			ch[i] = v
		}
	}
	hdr.CRC = checksum.WavPackBlock(stored)

	if len(stored) == 2 && hdr.JointStereo {
		for i := range stored[0] {
			side := stored[0][i] - stored[1][i]
			stored[1][i] += side >> 1
			stored[0][i] = side
		}
	}

	stereo := len(stored) == 2
	params := &blockParams{}
	var subs []subBlock
	if b.terms != nil {
		must(params.readTerms(b.terms, stereo))
		subs = append(subs, subBlock{id: idDecorrTerms, data: b.terms})
	}
	if b.weights != nil {
		raw := make([]byte, len(b.weights))
		for i, w := range b.weights {
			raw[i] = byte(w)
		}
		must(params.readWeights(raw, stereo))
		subs = append(subs, subBlock{id: idDecorrWeights, data: raw})
	}
	if b.history != nil {
		raw := le16s(b.history)
		must(params.readHistory(raw, stereo))
		subs = append(subs, subBlock{id: idDecorrSamples, data: raw})
	}
	if b.medians != nil {
		raw := make([]byte, 0, 2*len(b.medians))
		for _, m := range b.medians {
			raw = append(raw, byte(m), byte(m>>8))
		}
		must(params.readMedians(raw, stereo))
		subs = append(subs, subBlock{id: idEntropyVars, data: raw})
	}
	if b.int32 != nil {
		subs = append(subs, subBlock{id: idInt32Info, data: []byte{b.int32.sentBits, b.int32.zeros, b.int32.ones, b.int32.dups}})
	}
	if b.channelInfo != nil {
		subs = append(subs, subBlock{id: idChannelInfo, data: b.channelInfo})
	}
	if b.sampleRate > 0 {
		r := b.sampleRate
		subs = append(subs, subBlock{id: idOptSampleRate, nondecoder: true, data: []byte{byte(r), byte(r >> 8), byte(r >> 16)}})
	}
	subs = append(subs, b.extra...)

	if hdr.BlockSamples > 0 {
		applyPasses(params.passes, stored)
		coded := b.bitstream
		if coded == nil {
			coded = encodeWords(stored, params.medians)
		}
		subs = append(subs, subBlock{id: idBitstream, data: coded})
	}
	if b.md5 != nil {
		subs = append(subs, subBlock{id: idOptMD5, nondecoder: true, data: b.md5})
	}

	var payload []byte
	for _, sb := range subs {
		payload = append(payload, subBlockBytes(sb)...)
	}
	hdr.BlockSize = uint32(len(payload) + blockHeaderSize - sizeFieldEnd)
	return append(headerBytes(hdr), payload...)
}

// metadataBlock is a block without samples, such as a trailing MD5 block.
func metadataBlock(hdr BlockHeader, subs ...subBlock) []byte {
	hdr.BlockSamples = 0
	var payload []byte
	for _, sb := range subs {
		payload = append(payload, subBlockBytes(sb)...)
	}
	hdr.BlockSize = uint32(len(payload) + blockHeaderSize - sizeFieldEnd)
	hdr.CRC = 0xFFFFFFFF
	return append(headerBytes(hdr), payload...)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func joinBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
