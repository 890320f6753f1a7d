// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fixtures shared by the decoder tests: bit writers
// for hand-built streams, deterministic PCM generators and a mock Stream.
package audiotest

import (
	"math"
	"math/rand/v2"

	"github.com/ik5/lossless/audio"
)

// Sine returns n samples of a sine wave with the given peak amplitude and
// period in samples.
func Sine(n int, amplitude float64, period float64) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(math.Round(amplitude * math.Sin(2*math.Pi*float64(i)/period)))
	}
	return out
}

// Ramp returns start, start+step, ... wrapped into the signed range of bps.
func Ramp(n int, start, step int32, bps int) []int32 {
	out := make([]int32, n)
	lo, hi := int64(-1)<<(bps-1), int64(1)<<(bps-1)
	v := int64(start)
	for i := range out {
		out[i] = int32(v)
		v += int64(step)
		if v >= hi {
			v -= hi - lo
		}
		if v < lo {
			v += hi - lo
		}
	}
	return out
}

// Noise returns n uniformly distributed samples that fit in bps bits. The
// same seed always yields the same samples.
func Noise(n int, bps int, seed uint64) []int32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	span := int64(1) << bps
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(rng.Int64N(span) - span/2)
	}
	return out
}

// Alternating returns n samples of v, -v, v, -v, ...
func Alternating(n int, v int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = v
		} else {
			out[i] = -v
		}
	}
	return out
}

// Silence returns a frame of zeros.
func Silence(channels, n, bps int) *audio.Frame {
	ch := make([][]int32, channels)
	for c := range ch {
		ch[c] = make([]int32, n)
	}
	return audio.NewFrame(bps, ch...)
}
