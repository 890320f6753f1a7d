// SPDX-License-Identifier: EPL-2.0

package audio

// Process wraps src in the post-decode stages that are enabled: a mixdown
// to mono when mono is set, then resampling when rate is positive and
// differs from the source rate. With neither stage enabled src is returned
// unchanged.
func Process(src Stream, rate int, mono bool) Stream {
	out := src
	if mono && out.Format().Channels > 1 {
		out = NewMonoMixer(out)
	}
	if rate > 0 && rate != out.Format().SampleRate {
		out = NewResampler(out, rate)
	}
	return out
}
