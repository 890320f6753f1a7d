// SPDX-License-Identifier: EPL-2.0

package shorten

import (
	"math/bits"

	"github.com/ik5/lossless/internal/audiotest"
)

// Test stream builder. encoder tracks the same per-channel state as the
// decoder so it can compute residuals for any command.

func putUvar(bw *audiotest.BitWriter, v uint32, n uint) {
	bw.Unary(int(v>>n), 1)
	bw.Bits(uint64(v), uint8(n))
}

func putSvar(bw *audiotest.BitWriter, v int32, n uint) {
	u := uint32(v) << 1
	if v < 0 {
		u = uint32(^v)<<1 | 1
	}
	putUvar(bw, u, n+1)
}

func putUlong(bw *audiotest.BitWriter, v uint32) {
	width := uint32(bits.Len32(v))
	putUvar(bw, width, ulongSize)
	putUvar(bw, v, uint(width))
}

type encoder struct {
	bw        *audiotest.BitWriter
	hdr       Header
	blockSize int
	shift     uint
	channels  []*channel
}

func newEncoder(h Header, skip []byte) *encoder {
	e := &encoder{bw: audiotest.NewBitWriter(), hdr: h, blockSize: h.BlockSize}
	e.bw.Raw([]byte(magic)).Bits(version, 8)
	for _, v := range []uint32{h.FileType, uint32(h.Channels), uint32(h.BlockSize),
		uint32(h.MaxLPCOrder), uint32(h.MeanBlocks), uint32(len(skip))} {
		putUlong(e.bw, v)
	}
	e.bw.Raw(skip)
	for range h.Channels {
		e.channels = append(e.channels, newChannel(h))
	}
	return e
}

func (e *encoder) fn(code uint32) *encoder {
	putUvar(e.bw, code, fnSize)
	return e
}

func (e *encoder) verbatim(data []byte) *encoder {
	e.fn(fnVerbatim)
	putUvar(e.bw, uint32(len(data)), verbatimSize)
	for _, b := range data {
		putUvar(e.bw, uint32(b), verbatimByte)
	}
	return e
}

func (e *encoder) setBlockSize(n int) *encoder {
	e.fn(fnBlockSize)
	putUlong(e.bw, uint32(n))
	e.blockSize = n
	return e
}

func (e *encoder) setShift(n uint) *encoder {
	e.fn(fnBitShift)
	putUvar(e.bw, uint32(n), bitShiftSize)
	e.shift = n
	return e
}

func (e *encoder) quit() []byte {
	e.fn(fnQuit)
	return e.bw.Bytes()
}

// block codes one channel's samples, as they will be output, with the
// given command. Samples must be multiples of 1<<shift.
func (e *encoder) block(c int, cmd audioCommand, samples []int32) *encoder {
	ch := e.channels[c]
	var centre int32
	if !e.hdr.Signed {
		centre = 1 << (e.hdr.BitsPerSample - 1)
	}

	nwrap := len(ch.wrap)
	buf := make([]int32, nwrap+len(samples))
	copy(buf, ch.wrap)
	offset := ch.offset(e.hdr.MeanBlocks, e.shift)

	e.fn(cmd.code)
	if cmd.code == fnZero {
		ch.update(buf, e.hdr.MeanBlocks, e.shift)
		return e
	}
	putUvar(e.bw, uint32(cmd.energy), energySize)
	if cmd.code == fnQLPC {
		putUvar(e.bw, uint32(len(cmd.coefs)), lpcOrderSize)
		for _, coef := range cmd.coefs {
			putSvar(e.bw, coef, lpcQuant)
		}
	}

	qlpc := cmd.code == fnQLPC
	if qlpc {
		for i := nwrap - len(cmd.coefs); i < nwrap; i++ {
			buf[i] -= offset
		}
	}
	p := newPredictor(cmd, offset)
	for i, s := range samples {
		raw := (s + centre) >> e.shift
		if qlpc {
			raw -= offset
		}
		j := nwrap + i
		buf[j] = raw
		putSvar(e.bw, raw-p.at(buf, j), cmd.energy)
	}
	if qlpc {
		for i := nwrap; i < len(buf); i++ {
			buf[i] += offset
		}
	}
	ch.update(buf, e.hdr.MeanBlocks, e.shift)
	return e
}

// frames codes each channel of every block with cmd and returns the
// stream bytes including QUIT.
func (e *encoder) frames(cmd audioCommand, ch [][]int32) []byte {
	for start := 0; start < len(ch[0]); start += e.blockSize {
		end := start + e.blockSize
		if end > len(ch[0]) {
			e.setBlockSize(len(ch[0]) - start)
			end = len(ch[0])
		}
		for c := range ch {
			e.block(c, cmd, ch[c][start:end])
		}
	}
	return e.quit()
}
