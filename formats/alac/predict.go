// SPDX-License-Identifier: EPL-2.0

package alac

// MaxCoefs is the largest predictor order an element can carry.
const MaxCoefs = 32

// Coefs is the adaptive predictor state of one channel. It is a value type:
// PredictSample returns the updated set instead of changing its argument.
type Coefs [MaxCoefs]int16

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// wrap truncates v to a signed value of the given width.
func wrap(v int32, bits uint) int32 {
	shift := 32 - bits
	return v << shift >> shift
}

// PredictSample reconstructs one sample from the order+1 previous outputs
// in history (oldest first) and the coded residual, and returns the
// coefficients adapted for the next sample.
func PredictSample(c Coefs, order int, history []int32, residual int32, denShift, sampleBits uint) (Coefs, int32) {
	top := history[0]
	prev := history[1:]

	var sum int32
	for k := range order {
		sum += int32(c[k]) * (prev[order-1-k] - top)
	}
	var half int32
	if denShift > 0 {
		half = 1 << (denShift - 1)
	}
	out := wrap(residual+top+(sum+half)>>denShift, sampleBits)

	del := residual
	switch sign(residual) {
	case 1:
		for k := order - 1; k >= 0; k-- {
			dd := top - prev[order-1-k]
			sg := sign(dd)
			c[k] -= int16(sg)
			del -= int32(order-k) * ((sg * dd) >> denShift)
			if del <= 0 {
				break
			}
		}
	case -1:
		for k := order - 1; k >= 0; k-- {
			dd := top - prev[order-1-k]
			sg := sign(dd)
			c[k] += int16(sg)
			del -= int32(order-k) * ((-sg * dd) >> denShift)
			if del >= 0 {
				break
			}
		}
	}
	return c, out
}

// unpredict rebuilds a channel in place from its residuals. Order 31 is the
// first-difference shortcut used as the first stage of mode 15.
func unpredict(buf []int32, c Coefs, order int, denShift, sampleBits uint) {
	if len(buf) == 0 || order == 0 {
		return
	}
	if order == 31 {
		for j := 1; j < len(buf); j++ {
			buf[j] = wrap(buf[j]+buf[j-1], sampleBits)
		}
		return
	}

	warm := min(order, len(buf)-1)
	for j := 1; j <= warm; j++ {
		buf[j] = wrap(buf[j]+buf[j-1], sampleBits)
	}
	for j := order + 1; j < len(buf); j++ {
		c, buf[j] = PredictSample(c, order, buf[j-order-1:j], buf[j], denShift, sampleBits)
	}
}
