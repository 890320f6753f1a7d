// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/lossless/internal/bitstream"
)

const (
	subframeConstant = 0
	subframeVerbatim = 1
	subframeFixed    = 8
	subframeLPC      = 32

	maxFixedOrder = 4
)

func (s *Stream) readSubframe(bps, blockSize int) ([]int64, error) {
	br := s.br

	pad, err := br.ReadBit()
	if err != nil {
		return nil, err
	}
	if pad != 0 {
		return nil, ErrInvalidSubframe
	}
	typ, err := br.Read(6)
	if err != nil {
		return nil, err
	}

	wasted := 0
	hasWasted, err := br.ReadBit()
	if err != nil {
		return nil, err
	}
	if hasWasted == 1 {
		k, err := br.Unary(1)
		if err != nil {
			return nil, err
		}
		wasted = int(k) + 1
		bps -= wasted
		if bps <= 0 {
			return nil, ErrInvalidSubframe
		}
	}

	samples := make([]int64, blockSize)
	switch {
	case typ == subframeConstant:
		v, err := br.ReadSigned(uint(bps))
		if err != nil {
			return nil, err
		}
		for i := range samples {
			samples[i] = v
		}
	case typ == subframeVerbatim:
		for i := range samples {
			if samples[i], err = br.ReadSigned(uint(bps)); err != nil {
				return nil, err
			}
		}
	case typ >= subframeFixed && typ <= subframeFixed+maxFixedOrder:
		order := int(typ - subframeFixed)
		if err := s.readWarmup(samples, order, bps); err != nil {
			return nil, err
		}
		if err := s.readResidual(samples, order); err != nil {
			return nil, err
		}
		predictFixed(samples, order)
	case typ >= subframeLPC:
		order := int(typ - subframeLPC + 1)
		if err := s.readWarmup(samples, order, bps); err != nil {
			return nil, err
		}
		coeffs, shift, err := s.readLPCHeader(order)
		if err != nil {
			return nil, err
		}
		if err := s.readResidual(samples, order); err != nil {
			return nil, err
		}
		predictLPC(samples, coeffs, shift)
	default:
		return nil, fmt.Errorf("%w: reserved type %d", ErrInvalidSubframe, typ)
	}

	if wasted > 0 {
		for i := range samples {
			samples[i] <<= wasted
		}
	}
	return samples, nil
}

func (s *Stream) readWarmup(samples []int64, order, bps int) error {
	if order > len(samples) {
		return ErrInvalidSubframe
	}
	for i := range order {
		v, err := s.br.ReadSigned(uint(bps))
		if err != nil {
			return err
		}
		samples[i] = v
	}
	return nil
}

func (s *Stream) readLPCHeader(order int) ([]int64, uint, error) {
	precision, err := s.br.Read(4)
	if err != nil {
		return nil, 0, err
	}
	if precision == 0xF {
		return nil, 0, fmt.Errorf("%w: LPC precision", ErrInvalidSubframe)
	}
	shift, err := s.br.ReadSigned(5)
	if err != nil {
		return nil, 0, err
	}
	if shift < 0 {
		return nil, 0, fmt.Errorf("%w: negative LPC shift", ErrInvalidSubframe)
	}

	coeffs := make([]int64, order)
	for i := range coeffs {
		if coeffs[i], err = s.br.ReadSigned(uint(precision) + 1); err != nil {
			return nil, 0, err
		}
	}
	return coeffs, uint(shift), nil
}

// readResidual fills samples[order:] with the partitioned Rice residual.
func (s *Stream) readResidual(samples []int64, order int) error {
	br := s.br

	method, err := br.Read(2)
	if err != nil {
		return err
	}
	var paramBits uint
	switch method {
	case 0:
		paramBits = 4
	case 1:
		paramBits = 5
	default:
		return fmt.Errorf("%w: coding method %d", ErrInvalidResidual, method)
	}
	escape := uint64(1)<<paramBits - 1

	partitionOrder, err := br.Read(4)
	if err != nil {
		return err
	}
	partitions := 1 << partitionOrder
	blockSize := len(samples)
	if blockSize%partitions != 0 || blockSize/partitions < order {
		return fmt.Errorf("%w: partition order %d", ErrInvalidResidual, partitionOrder)
	}
	perPartition := blockSize / partitions

	pos := order
	for p := range partitions {
		n := perPartition
		if p == 0 {
			n -= order
		}
		param, err := br.Read(paramBits)
		if err != nil {
			return err
		}

		if param == escape {
			width, err := br.Read(5)
			if err != nil {
				return err
			}
			for i := range n {
				if width == 0 {
					samples[pos+i] = 0
					continue
				}
				if samples[pos+i], err = br.ReadSigned(uint(width)); err != nil {
					return err
				}
			}
		} else if err := readRicePartition(br, samples[pos:pos+n], uint(param)); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func readRicePartition(br *bitstream.Reader, dst []int64, k uint) error {
	for i := range dst {
		msb, err := br.Unary(1)
		if err != nil {
			return err
		}
		var lsb uint64
		if k > 0 {
			if lsb, err = br.Read(k); err != nil {
				return err
			}
		}
		v := uint64(msb)<<k | lsb
		dst[i] = int64(v>>1) ^ -int64(v&1)
	}
	return nil
}

// predictFixed turns the residual after the warm-up samples into audio
// using the fixed polynomial predictor of the given order.
func predictFixed(s []int64, order int) {
	switch order {
	case 1:
		for i := 1; i < len(s); i++ {
			s[i] += s[i-1]
		}
	case 2:
		for i := 2; i < len(s); i++ {
			s[i] += 2*s[i-1] - s[i-2]
		}
	case 3:
		for i := 3; i < len(s); i++ {
			s[i] += 3*s[i-1] - 3*s[i-2] + s[i-3]
		}
	case 4:
		for i := 4; i < len(s); i++ {
			s[i] += 4*s[i-1] - 6*s[i-2] + 4*s[i-3] - s[i-4]
		}
	}
}

// predictLPC applies quantized LPC coefficients; coeffs[0] weights the most
// recent sample.
func predictLPC(s []int64, coeffs []int64, shift uint) {
	order := len(coeffs)
	for i := order; i < len(s); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += c * s[i-1-j]
		}
		s[i] += sum >> shift
	}
}
