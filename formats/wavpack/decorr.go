// SPDX-License-Identifier: EPL-2.0

package wavpack

const maxWeight = 1024

// applyWeight scales s by a 10-bit fixed point weight, rounding.
func applyWeight(weight, s int32) int32 {
	return int32((int64(weight)*int64(s) + 512) >> 10)
}

// updateWeight moves the weight by delta toward agreement between the
// prediction source and the residual.
func updateWeight(weight, delta, source, residual int32) int32 {
	if source == 0 || residual == 0 {
		return weight
	}
	if source^residual < 0 {
		return weight - delta
	}
	return weight + delta
}

// updateWeightClip is updateWeight bounded to ±1024, used by the
// cross-channel terms.
func updateWeightClip(weight, delta, source, residual int32) int32 {
	if source == 0 || residual == 0 {
		return weight
	}
	if source^residual < 0 {
		return max(weight-delta, -maxWeight)
	}
	return min(weight+delta, maxWeight)
}

// predict returns the value a positive term forecasts for ext[j].
func predict(term int, ext []int32, j int) int32 {
	switch term {
	case 17:
		return 2*ext[j-1] - ext[j-2]
	case 18:
		return (3*ext[j-1] - ext[j-2]) >> 1
	}
	return ext[j-term]
}

// undoChannel reverses a positive-term pass over one channel in place.
func undoChannel(term int, delta, weight int32, history, buf []int32) {
	n := len(history)
	ext := make([]int32, n+len(buf))
	copy(ext, history)
	for i, res := range buf {
		j := n + i
		src := predict(term, ext, j)
		ext[j] = applyWeight(weight, src) + res
		weight = updateWeight(weight, delta, src, res)
		buf[i] = ext[j]
	}
}

// undoCross reverses a negative-term pass, which predicts each channel from
// the other one.
func undoCross(p decorrPass, left, right []int32) {
	wA, wB := p.weightA, p.weightB
	histA, histB := p.historyA[0], p.historyB[0]
	for i := range left {
		switch p.term {
		case -1:
			l := left[i] + applyWeight(wA, histA)
			wA = updateWeightClip(wA, p.delta, histA, left[i])
			left[i] = l
			r := right[i] + applyWeight(wB, l)
			wB = updateWeightClip(wB, p.delta, l, right[i])
			right[i] = r
			histA = r
		case -2:
			r := right[i] + applyWeight(wB, histB)
			wB = updateWeightClip(wB, p.delta, histB, right[i])
			right[i] = r
			l := left[i] + applyWeight(wA, r)
			wA = updateWeightClip(wA, p.delta, r, left[i])
			left[i] = l
			histB = l
		case -3:
			l := left[i] + applyWeight(wA, histA)
			wA = updateWeightClip(wA, p.delta, histA, left[i])
			r := right[i] + applyWeight(wB, histB)
			wB = updateWeightClip(wB, p.delta, histB, right[i])
			left[i], right[i] = l, r
			histA, histB = r, l
		}
	}
}

// undoPasses runs the cascade backwards over the stored channels.
func undoPasses(passes []decorrPass, channels [][]int32) {
	for i := len(passes) - 1; i >= 0; i-- {
		p := passes[i]
		if p.term < 0 {
			undoCross(p, channels[0], channels[1])
			continue
		}
		undoChannel(p.term, p.delta, p.weightA, p.historyA, channels[0])
		if len(channels) == 2 {
			undoChannel(p.term, p.delta, p.weightB, p.historyB, channels[1])
		}
	}
}
