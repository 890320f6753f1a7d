// SPDX-License-Identifier: EPL-2.0

// Package bitstream implements the bit cursor every decoder reads through.
//
// A Reader consumes bits most- or least-significant first from an io.Reader
// or a byte slice. It supports unary codes, bounded substreams, nested
// mark/rewind checkpoints and byte callbacks that observe every byte pulled
// from the source (used for running CRCs).
package bitstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/lossless/audio"
)

// Order selects which end of each byte is consumed first.
type Order int

const (
	// MSBFirst reads the high bit of each byte first (FLAC, ALAC, Shorten).
	MSBFirst Order = iota
	// LSBFirst reads the low bit of each byte first and assembles
	// multi-bit values little-endian (WavPack).
	LSBFirst
)

// Callback observes each byte as the reader pulls it from its source.
type Callback func(b byte)

const fillSize = 4096

type mark struct {
	pos  int
	cur  byte
	bits uint
}

// Reader is a bit-addressable read cursor. It is not safe for concurrent use.
type Reader struct {
	src   io.Reader
	order Order

	buf []byte // buffered source bytes; kept from the oldest mark onward
	pos int    // next unread byte in buf

	cur  byte // byte currently being consumed
	bits uint // bits of cur not yet consumed (0-7)

	marks     []mark
	callbacks []Callback
	srcErr    error
}

// NewReader returns a cursor over r.
func NewReader(r io.Reader, order Order) *Reader {
	return &Reader{src: r, order: order}
}

// NewBytesReader returns a cursor over a fixed byte slice.
func NewBytesReader(b []byte, order Order) *Reader {
	return &Reader{buf: b, order: order, srcErr: io.EOF}
}

// fill pulls more bytes from the source. It returns false once the source
// is exhausted.
func (r *Reader) fill() (bool, error) {
	if r.srcErr != nil || r.src == nil {
		if r.srcErr == nil || errors.Is(r.srcErr, io.EOF) {
			return false, nil
		}
		return false, r.srcErr
	}
	if len(r.marks) == 0 && r.pos > 0 {
		n := copy(r.buf, r.buf[r.pos:])
		r.buf = r.buf[:n]
		r.pos = 0
	}
	start := len(r.buf)
	if cap(r.buf)-start < fillSize {
		grown := make([]byte, start, 2*cap(r.buf)+fillSize)
		copy(grown, r.buf)
		r.buf = grown
	}
	n, err := r.src.Read(r.buf[start:cap(r.buf)])
	r.buf = r.buf[:start+n]
	if err != nil {
		r.srcErr = err
		if !errors.Is(err, io.EOF) {
			return n > 0, fmt.Errorf("bitstream: read source: %w", err)
		}
	}
	return n > 0 || r.srcErr == nil, nil
}

// nextByte loads the next source byte and reports it to the callbacks.
func (r *Reader) nextByte() (byte, error) {
	for r.pos >= len(r.buf) {
		more, err := r.fill()
		if err != nil {
			return 0, err
		}
		if !more {
			return 0, audio.ErrEndOfStream
		}
	}
	b := r.buf[r.pos]
	r.pos++
	for _, cb := range r.callbacks {
		cb(b)
	}
	return b, nil
}

// Read consumes n bits (1-64) and returns them as an unsigned value.
func (r *Reader) Read(n uint) (uint64, error) {
	var v uint64
	var shift uint
	for n > 0 {
		if r.bits == 0 {
			b, err := r.nextByte()
			if err != nil {
				return 0, err
			}
			r.cur, r.bits = b, 8
		}
		take := min(n, r.bits)
		mask := uint64(1)<<take - 1
		if r.order == MSBFirst {
			chunk := uint64(r.cur>>(r.bits-take)) & mask
			v = v<<take | chunk
		} else {
			chunk := uint64(r.cur>>(8-r.bits)) & mask
			v |= chunk << shift
			shift += take
		}
		r.bits -= take
		n -= take
	}
	return v, nil
}

// ReadSigned consumes n bits (1-64) as a two's-complement value.
func (r *Reader) ReadSigned(n uint) (int64, error) {
	v, err := r.Read(n)
	if err != nil {
		return 0, err
	}
	return SignExtend(v, n), nil
}

// SignExtend interprets the low n bits of v as a two's-complement value.
func SignExtend(v uint64, n uint) int64 {
	if n == 0 {
		return 0
	}
	s := 64 - n
	return int64(v<<s) >> s
}

// ReadBit consumes a single bit.
func (r *Reader) ReadBit() (uint, error) {
	v, err := r.Read(1)
	return uint(v), err
}

// Unary counts bits not equal to stop until stop is read. The stop bit is
// consumed.
func (r *Reader) Unary(stop uint) (uint, error) {
	var count uint
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == stop {
			return count, nil
		}
		count++
	}
}

// LimitedUnary is Unary capped at max non-stop bits. When the cap is hit
// ok is false and the max bits are consumed with no stop bit.
func (r *Reader) LimitedUnary(stop, max uint) (count uint, ok bool, err error) {
	for count < max {
		b, err := r.ReadBit()
		if err != nil {
			return 0, false, err
		}
		if b == stop {
			return count, true, nil
		}
		count++
	}
	return count, false, nil
}

// Skip discards n bits.
func (r *Reader) Skip(n uint) error {
	for n >= 64 {
		if _, err := r.Read(64); err != nil {
			return err
		}
		n -= 64
	}
	if n == 0 {
		return nil
	}
	_, err := r.Read(n)
	return err
}

// SkipBytes discards n bytes.
func (r *Reader) SkipBytes(n int) error {
	if r.bits == 0 {
		for range n {
			if _, err := r.nextByte(); err != nil {
				return err
			}
		}
		return nil
	}
	for range n {
		if _, err := r.Read(8); err != nil {
			return err
		}
	}
	return nil
}

// ByteAlign discards the unread bits of the current byte.
func (r *Reader) ByteAlign() { r.bits = 0 }

// Aligned reports whether the cursor sits on a byte boundary.
func (r *Reader) Aligned() bool { return r.bits == 0 }

// ReadBytes consumes n whole bytes. The result grows as bytes arrive, so a
// length larger than the source fails with audio.ErrEndOfStream without
// allocating n bytes up front.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	out := make([]byte, 0, min(max(n, 0), fillSize))
	for len(out) < n {
		if r.bits == 0 {
			b, err := r.nextByte()
			if err != nil {
				return nil, err
			}
			out = append(out, b)
			continue
		}
		v, err := r.Read(8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// Substream consumes n bytes and returns an independent cursor bounded to
// exactly those bytes, with the same bit order and no callbacks.
func (r *Reader) Substream(n int) (*Reader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return NewBytesReader(b, r.order), nil
}

// AtEnd reports whether the cursor is on a byte boundary with nothing left
// to read.
func (r *Reader) AtEnd() (bool, error) {
	if r.bits != 0 {
		return false, nil
	}
	for r.pos >= len(r.buf) {
		more, err := r.fill()
		if err != nil {
			return false, err
		}
		if !more {
			return true, nil
		}
	}
	return false, nil
}

// Mark pushes the current position onto the checkpoint stack.
func (r *Reader) Mark() {
	r.marks = append(r.marks, mark{pos: r.pos, cur: r.cur, bits: r.bits})
}

// Rewind returns the cursor to the most recent mark. The mark stays on the
// stack, so Rewind may be repeated.
func (r *Reader) Rewind() {
	if len(r.marks) == 0 {
		panic("bitstream: Rewind without Mark")
	}
	m := r.marks[len(r.marks)-1]
	r.pos, r.cur, r.bits = m.pos, m.cur, m.bits
}

// Unmark pops the most recent mark.
func (r *Reader) Unmark() {
	if len(r.marks) == 0 {
		panic("bitstream: Unmark without Mark")
	}
	r.marks = r.marks[:len(r.marks)-1]
}

// AddCallback registers cb to observe every byte read from now on.
func (r *Reader) AddCallback(cb Callback) {
	r.callbacks = append(r.callbacks, cb)
}

// PopCallback removes and returns the most recently added callback.
func (r *Reader) PopCallback() Callback {
	if len(r.callbacks) == 0 {
		return nil
	}
	cb := r.callbacks[len(r.callbacks)-1]
	r.callbacks = r.callbacks[:len(r.callbacks)-1]
	return cb
}
