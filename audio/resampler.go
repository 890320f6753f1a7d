// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// Resampler converts a Stream to another sample rate using Catmull-Rom
// interpolation. It keeps the source's channel count and bit depth, and
// applies a one-pole low-pass filter to the input when downsampling.
type Resampler struct {
	src     Stream
	format  Format
	srcRate int64
	dstRate int64

	// Four-frame window; win[1] holds source frame idx and output is
	// interpolated between win[1] and win[2].
	win [4][]float64
	has [4]bool
	idx int64
	out int64 // frames produced

	// current source unit and the next frame to take from it
	unit    *Frame
	unitPos int

	filter      []float64 // nil unless downsampling
	filterAlpha float64

	started bool
	done    bool
	err     error
}

func NewResampler(src Stream, dstRate int) *Resampler {
	in := src.Format()
	format := in
	format.SampleRate = dstRate
	if in.TotalFrames > 0 {
		format.TotalFrames = (in.TotalFrames-1)*int64(dstRate)/int64(in.SampleRate) + 1
	}

	r := &Resampler{
		src:     src,
		format:  format,
		srcRate: int64(in.SampleRate),
		dstRate: int64(dstRate),
	}
	for i := range r.win {
		r.win[i] = make([]float64, in.Channels)
	}
	if in.SampleRate > dstRate {
		r.filter = make([]float64, in.Channels)
		r.filterAlpha = 0.5
	}
	return r
}

func (r *Resampler) Format() Format { return r.format }
func (r *Resampler) Close() error   { return r.src.Close() }

// next loads the following source frame into dst. It returns false at the
// end of the source.
func (r *Resampler) next(dst []float64) (bool, error) {
	for r.unit == nil || r.unitPos >= r.unit.Len() {
		f, err := r.src.Read(4096)
		if err != nil {
			return false, err
		}
		if f.Len() == 0 {
			return false, nil
		}
		r.unit, r.unitPos = f, 0
	}

	for c := range dst {
		dst[c] = float64(r.unit.Sample(c, r.unitPos))
	}
	r.unitPos++

	if r.filter != nil {
		if !r.started {
			// Start from the first sample to avoid a warm-up transient.
			copy(r.filter, dst)
		}
		for c, x := range dst {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			r.filter[c] = r.filterAlpha*x + (1-r.filterAlpha)*r.filter[c]
			dst[c] = r.filter[c]
		}
	}
	return true, nil
}

// shift moves the window one source frame forward.
func (r *Resampler) shift() error {
	r.win[0], r.win[1], r.win[2], r.win[3] = r.win[1], r.win[2], r.win[3], r.win[0]
	r.has[0], r.has[1], r.has[2] = r.has[1], r.has[2], r.has[3]
	r.idx++
	return r.load(3)
}

// load fills window slot i from the source, repeating slot i-1 once the
// source is exhausted.
func (r *Resampler) load(i int) error {
	ok, err := false, error(nil)
	if i == 0 || r.has[i-1] {
		ok, err = r.next(r.win[i])
		if err != nil {
			return err
		}
	}
	r.has[i] = ok
	if !ok && i > 0 {
		copy(r.win[i], r.win[i-1])
	}
	return nil
}

func (r *Resampler) start() error {
	if err := r.load(0); err != nil {
		return err
	}
	r.started = true
	if !r.has[0] {
		r.done = true
		return nil
	}
	// The first frame doubles as its own predecessor.
	copy(r.win[1], r.win[0])
	r.has[1] = true
	for i := 2; i < 4; i++ {
		if err := r.load(i); err != nil {
			return err
		}
	}
	return nil
}

// Read returns up to maxFrames resampled frames, or 4096 when maxFrames is
// not positive.
func (r *Resampler) Read(maxFrames int) (*Frame, error) {
	if r.err != nil {
		return nil, r.err
	}
	if maxFrames <= 0 {
		maxFrames = 4096
	}
	if !r.started {
		if r.err = r.start(); r.err != nil {
			return nil, r.err
		}
	}

	channels := make([][]int32, r.format.Channels)
	lo := -int64(1) << (r.format.BitsPerSample - 1)
	hi := -lo - 1

	for n := 0; n < maxFrames && !r.done; n++ {
		// Exact position of output frame r.out in source frames.
		pos := r.out * r.srcRate
		k := pos / r.dstRate
		frac := float64(pos%r.dstRate) / float64(r.dstRate)

		for r.idx < k && r.has[2] {
			if r.err = r.shift(); r.err != nil {
				return nil, r.err
			}
		}
		if r.idx < k || (frac > 0 && !r.has[2]) {
			r.done = true
			break
		}

		for c := range channels {
			v := cubicInterpolate(r.win[0][c], r.win[1][c], r.win[2][c], r.win[3][c], frac)
			s := min(max(int64(math.Round(v)), lo), hi)
			channels[c] = append(channels[c], int32(s))
		}
		r.out++
	}

	if len(channels) == 0 || len(channels[0]) == 0 {
		return EmptyFrame(r.format.Channels, r.format.BitsPerSample), nil
	}
	return NewFrame(r.format.BitsPerSample, channels...), nil
}

// cubicInterpolate performs Catmull-Rom interpolation. x is the fractional
// position between y1 and y2 (0 <= x <= 1).
func cubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
