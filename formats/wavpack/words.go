// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"fmt"
	"math/bits"

	"github.com/ik5/lossless/internal/bitstream"
)

const (
	limitOnes   = 16
	maxEliasLen = 33

	div0 = 128
	div1 = 64
	div2 = 32
)

// words decodes residuals coded against three adaptive medians per
// channel. A set "holding" bit carries half of the next word's unary count.
type words struct {
	br          *bitstream.Reader
	medians     [2][3]uint32
	holdingOne  bool
	holdingZero bool
	zeros       uint32 // zeros left in the current run
}

func newWords(br *bitstream.Reader, medians [2][3]uint32) *words {
	return &words{br: br, medians: medians}
}

func (w *words) med(c, i int) uint32 { return w.medians[c][i]>>4 + 1 }

func (w *words) inc(c, i int, div uint32) {
	w.medians[c][i] += (w.medians[c][i] + div) / div * 5
}

func (w *words) dec(c, i int, div uint32) {
	w.medians[c][i] -= (w.medians[c][i] + div - 2) / div * 2
}

// elias reads the Elias gamma style code used for long runs: a unary bit
// count followed by the value's low bits, the top bit implied.
func (w *words) elias() (uint32, error) {
	n, ok, err := w.br.LimitedUnary(0, maxEliasLen)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: run length", ErrInvalidCode)
	}
	if n < 2 {
		return uint32(n), nil
	}
	low, err := w.br.Read(n - 1)
	if err != nil {
		return 0, err
	}
	return uint32(low) | 1<<(n-1), nil
}

// code reads a value in [0, maxCode] with a truncated binary code.
func (w *words) code(maxCode uint32) (uint32, error) {
	n := uint(bits.Len32(maxCode))
	if n == 0 {
		return 0, nil
	}
	extras := uint32(1)<<n - maxCode - 1
	v, err := w.br.Read(n - 1)
	if err != nil {
		return 0, err
	}
	code := uint32(v)
	if code >= extras {
		bit, err := w.br.ReadBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 - extras + uint32(bit)
	}
	return code, nil
}

// word decodes the next residual of channel c.
func (w *words) word(c int) (int32, error) {
	if w.medians[0][0] < 2 && w.medians[1][0] < 2 && !w.holdingZero && !w.holdingOne {
		if w.zeros > 0 {
			w.zeros--
			if w.zeros > 0 {
				return 0, nil
			}
		} else {
			run, err := w.elias()
			if err != nil {
				return 0, err
			}
			if run > 0 {
				w.zeros = run
				w.medians = [2][3]uint32{}
				return 0, nil
			}
		}
	}

	var ones uint32
	if w.holdingZero {
		w.holdingZero = false
	} else {
		n, ok, err := w.br.LimitedUnary(0, limitOnes+1)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: unary prefix", ErrInvalidCode)
		}
		ones = uint32(n)
		if ones == limitOnes {
			extra, err := w.elias()
			if err != nil {
				return 0, err
			}
			ones += extra
		}

		hold := ones&1 == 1
		ones >>= 1
		if w.holdingOne {
			ones++
		}
		w.holdingOne = hold
		w.holdingZero = !hold
	}

	low, high := w.bounds(c, ones)
	offset, err := w.code(high - low)
	if err != nil {
		return 0, err
	}
	mid := low + offset
	sign, err := w.br.ReadBit()
	if err != nil {
		return 0, err
	}
	if sign == 1 {
		return ^int32(mid), nil
	}
	return int32(mid), nil
}

// bounds returns the range of magnitudes a word with the given unary count
// covers and adapts the medians of channel c.
func (w *words) bounds(c int, ones uint32) (low, high uint32) {
	switch {
	case ones == 0:
		high = w.med(c, 0) - 1
		w.dec(c, 0, div0)
	case ones == 1:
		low = w.med(c, 0)
		w.inc(c, 0, div0)
		high = low + w.med(c, 1) - 1
		w.dec(c, 1, div1)
	default:
		low = w.med(c, 0)
		w.inc(c, 0, div0)
		low += w.med(c, 1)
		w.inc(c, 1, div1)
		if ones > 2 {
			low += (ones - 2) * w.med(c, 2)
			high = low + w.med(c, 2) - 1
			w.inc(c, 2, div2)
		} else {
			high = low + w.med(c, 2) - 1
			w.dec(c, 2, div2)
		}
	}
	return low & 0x7fffffff, high & 0x7fffffff
}
