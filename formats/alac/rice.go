// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"math/bits"

	"github.com/ik5/lossless/internal/bitstream"
)

const (
	maxPrefix    = 9
	runEscapeLen = 16

	historyScale = 9 // mb is kept in 1/512 units
	runThreshold = 128
	maxRunLength = 0xFFFF
)

// riceParams are the adaptive Rice settings of one channel.
type riceParams struct {
	mb0 uint32 // initial history
	pb  uint32 // history multiplier, already scaled by the modifier
	kb  uint32 // maximum k
	wb  uint32
}

func newRiceParams(cfg Config, modifier uint32) riceParams {
	return riceParams{
		mb0: uint32(cfg.MB),
		pb:  uint32(cfg.PB) * modifier / 4,
		kb:  uint32(cfg.KB),
		wb:  1<<cfg.KB - 1,
	}
}

// lg3a is floor(log2(x + 3)).
func lg3a(x uint32) uint32 {
	return uint32(31 - bits.LeadingZeros32(x+3))
}

// readRice reads one adaptive Rice value. A prefix of maxPrefix ones is an
// escape to a raw escapeBits wide value.
func readRice(br *bitstream.Reader, k, m uint32, escapeBits uint) (uint32, error) {
	pre, ok, err := br.LimitedUnary(0, maxPrefix)
	if err != nil {
		return 0, err
	}
	if !ok {
		v, err := br.Read(escapeBits)
		return uint32(v), err
	}
	if k <= 1 {
		return uint32(pre) * m, nil
	}

	// The low bit is only present when the upper k-1 bits are non-zero.
	hi, err := br.Read(uint(k - 1))
	if err != nil {
		return 0, err
	}
	if hi == 0 {
		return uint32(pre) * m, nil
	}
	lo, err := br.ReadBit()
	if err != nil {
		return 0, err
	}
	return uint32(pre)*m + uint32(hi<<1|uint64(lo)) - 1, nil
}

// readResiduals fills dst with signed residuals of a sampleBits wide
// channel.
func readResiduals(br *bitstream.Reader, dst []int32, p riceParams, sampleBits uint) error {
	mb := p.mb0
	var zmode uint32

	for i := 0; i < len(dst); {
		k := min(lg3a(mb>>historyScale), p.kb)
		m := uint32(1)<<k - 1

		n, err := readRice(br, k, m, sampleBits)
		if err != nil {
			return err
		}
		v := n + zmode
		dst[i] = int32((v+1)>>1) * (-int32(v&1) | 1)
		i++

		mb = p.pb*v + mb - (p.pb*mb)>>historyScale
		if n > maxRunLength {
			mb = maxRunLength
		}
		zmode = 0

		if mb < runThreshold && i < len(dst) {
			zmode = 1
			k := max(bits.LeadingZeros32(mb)-24+int((mb+16)>>6), 0)
			m := (uint32(1)<<k - 1) & p.wb
			run, err := readRice(br, uint32(k), m, runEscapeLen)
			if err != nil {
				return err
			}
			if int(run) > len(dst)-i {
				return ErrResidualOverrun
			}
			for range run {
				dst[i] = 0
				i++
			}
			if run >= maxRunLength {
				zmode = 0
			}
			mb = 0
		}
	}
	return nil
}
