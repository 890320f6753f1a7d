// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"

	"github.com/icza/bitio"
)

// BitWriter builds MSB-first bitstreams for decoder tests. Write errors
// cannot occur on the in-memory buffer, so the methods do not return them.
type BitWriter struct {
	buf bytes.Buffer
	w   *bitio.Writer
}

func NewBitWriter() *BitWriter {
	bw := &BitWriter{}
	bw.w = bitio.NewWriter(&bw.buf)
	return bw
}

// Bits writes the low n bits of v, high bit first.
func (bw *BitWriter) Bits(v uint64, n uint8) *BitWriter {
	if n == 0 {
		return bw
	}
	if n < 64 {
		v &= 1<<n - 1
	}
	bw.w.TryWriteBits(v, n)
	return bw
}

// Signed writes v as an n-bit two's-complement value.
func (bw *BitWriter) Signed(v int64, n uint8) *BitWriter {
	return bw.Bits(uint64(v), n)
}

func (bw *BitWriter) Bool(b bool) *BitWriter {
	bw.w.TryWriteBool(b)
	return bw
}

// Unary writes count bits of !stop followed by one stop bit.
func (bw *BitWriter) Unary(count int, stop uint) *BitWriter {
	for range count {
		bw.Bits(uint64(stop^1), 1)
	}
	return bw.Bits(uint64(stop), 1)
}

// Raw writes whole bytes.
func (bw *BitWriter) Raw(p []byte) *BitWriter {
	for _, b := range p {
		bw.Bits(uint64(b), 8)
	}
	return bw
}

// Align pads with zero bits up to the next byte boundary.
func (bw *BitWriter) Align() *BitWriter {
	bw.w.TryAlign()
	return bw
}

// Bytes flushes any partial byte and returns everything written so far.
// The writer must not be used afterwards.
func (bw *BitWriter) Bytes() []byte {
	bw.w.TryAlign()
	if err := bw.w.Close(); err != nil {
		panic(err)
	}
	if bw.w.TryError != nil {
		panic(bw.w.TryError)
	}
	return bw.buf.Bytes()
}

// LSBWriter builds LSB-first bitstreams: bits fill each byte from the low
// end and multi-bit values are stored little-endian.
type LSBWriter struct {
	buf   []byte
	acc   uint64
	nbits uint
}

// Bits writes the low n bits (at most 56) of v.
func (w *LSBWriter) Bits(v uint64, n uint) *LSBWriter {
	if n < 64 {
		v &= 1<<n - 1
	}
	w.acc |= v << w.nbits
	w.nbits += n
	for w.nbits >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.nbits -= 8
	}
	return w
}

// Unary writes count bits of !stop followed by one stop bit.
func (w *LSBWriter) Unary(count int, stop uint) *LSBWriter {
	for range count {
		w.Bits(uint64(stop^1), 1)
	}
	return w.Bits(uint64(stop), 1)
}

// Ones writes count one bits with no terminator.
func (w *LSBWriter) Ones(count int) *LSBWriter {
	for range count {
		w.Bits(1, 1)
	}
	return w
}

// Bytes flushes any partial byte, zero padded, and returns the output.
func (w *LSBWriter) Bytes() []byte {
	if w.nbits > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc, w.nbits = 0, 0
	}
	return w.buf
}
