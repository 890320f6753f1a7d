// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	goaudio "github.com/go-audio/audio"
)

// Frame is a rectangular grid of signed samples, one slice per channel, all
// of equal length. Decoders hand out frames they no longer touch; callers
// must treat the channel slices as read-only.
type Frame struct {
	bitsPerSample int
	samples       [][]int32
}

// NewFrame wraps per-channel sample slices. It panics if the channels differ
// in length.
func NewFrame(bitsPerSample int, channels ...[]int32) *Frame {
	for i := 1; i < len(channels); i++ {
		if len(channels[i]) != len(channels[0]) {
			panic(fmt.Sprintf("audio: channel %d has %d samples, channel 0 has %d",
				i, len(channels[i]), len(channels[0])))
		}
	}
	return &Frame{bitsPerSample: bitsPerSample, samples: channels}
}

// EmptyFrame returns a frame with the given layout and no samples.
func EmptyFrame(channels, bitsPerSample int) *Frame {
	return &Frame{
		bitsPerSample: bitsPerSample,
		samples:       make([][]int32, channels),
	}
}

// FromInterleaved splits interleaved samples into a frame. Trailing samples
// that do not fill a whole frame are dropped.
func FromInterleaved(bitsPerSample, channels int, data []int32) *Frame {
	n := len(data) / channels
	out := make([][]int32, channels)
	for c := range out {
		out[c] = make([]int32, n)
	}
	for i := range n {
		for c := range channels {
			out[c][i] = data[i*channels+c]
		}
	}
	return &Frame{bitsPerSample: bitsPerSample, samples: out}
}

func (f *Frame) Channels() int      { return len(f.samples) }
func (f *Frame) BitsPerSample() int { return f.bitsPerSample }

// Len is the number of samples per channel.
func (f *Frame) Len() int {
	if len(f.samples) == 0 {
		return 0
	}
	return len(f.samples[0])
}

// Channel returns the samples of channel c.
func (f *Frame) Channel(c int) []int32 { return f.samples[c] }

func (f *Frame) Sample(c, i int) int32 { return f.samples[c][i] }

// Interleaved returns the samples in frame order: c0 c1 ... c0 c1 ...
func (f *Frame) Interleaved() []int32 {
	channels := len(f.samples)
	out := make([]int32, f.Len()*channels)
	for c, ch := range f.samples {
		for i, s := range ch {
			out[i*channels+c] = s
		}
	}
	return out
}

// BytesPerSample is the width of one sample in packed PCM.
func (f *Frame) BytesPerSample() int { return (f.bitsPerSample + 7) / 8 }

// AppendPCM appends the frame as interleaved little-endian PCM bytes. When
// signed is false the samples are biased into the unsigned range, which is
// how 8-bit WAVE data is stored.
func (f *Frame) AppendPCM(dst []byte, signed bool) []byte {
	width := f.BytesPerSample()
	var bias int32
	if !signed {
		bias = 1 << (f.bitsPerSample - 1)
	}
	n := f.Len()
	for i := range n {
		for _, ch := range f.samples {
			v := uint32(ch[i] + bias)
			for b := range width {
				dst = append(dst, byte(v>>(8*b)))
			}
		}
	}
	return dst
}

// IntBuffer converts the frame for go-audio consumers such as the WAV
// encoder.
func (f *Frame) IntBuffer(sampleRate int) *goaudio.IntBuffer {
	interleaved := f.Interleaved()
	data := make([]int, len(interleaved))
	for i, s := range interleaved {
		data[i] = int(s)
	}
	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: f.Channels(),
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: f.bitsPerSample,
	}
}

// Concat joins frames with the same channel count and bit depth. Empty
// frames are skipped.
func Concat(frames ...*Frame) *Frame {
	if len(frames) == 0 {
		return EmptyFrame(0, 0)
	}
	out := EmptyFrame(frames[0].Channels(), frames[0].bitsPerSample)
	for _, fr := range frames {
		if fr.Len() == 0 {
			continue
		}
		if fr.Channels() != out.Channels() || fr.bitsPerSample != out.bitsPerSample {
			panic(fmt.Sprintf("audio: cannot join %dch/%dbit frame onto %dch/%dbit",
				fr.Channels(), fr.bitsPerSample, out.Channels(), out.bitsPerSample))
		}
		for c := range out.samples {
			out.samples[c] = append(out.samples[c], fr.samples[c]...)
		}
	}
	return out
}

// Equal reports whether two frames hold the same layout and samples.
func (f *Frame) Equal(o *Frame) bool {
	if f.Channels() != o.Channels() || f.bitsPerSample != o.bitsPerSample || f.Len() != o.Len() {
		return false
	}
	for c := range f.samples {
		for i, s := range f.samples[c] {
			if o.samples[c][i] != s {
				return false
			}
		}
	}
	return true
}
