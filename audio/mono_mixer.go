// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// MonoMixer averages all channels of a Stream into one.
type MonoMixer struct {
	src    Stream
	format Format
}

func NewMonoMixer(src Stream) *MonoMixer {
	format := src.Format()
	format.Channels = 1
	format.ChannelMask = DefaultChannelMask(1)
	return &MonoMixer{src: src, format: format}
}

func (m *MonoMixer) Format() Format { return m.format }
func (m *MonoMixer) Close() error   { return m.src.Close() }

// Read mixes the next unit of the source. Mono sources pass through.
func (m *MonoMixer) Read(maxFrames int) (*Frame, error) {
	f, err := m.src.Read(maxFrames)
	if err != nil {
		return nil, err
	}
	channels := f.Channels()
	if channels <= 1 {
		return f, nil
	}

	out := make([]int32, f.Len())
	switch channels {
	case 2: // Stereo (most common)
		l, r := f.Channel(0), f.Channel(1)
		for i := range out {
			out[i] = int32(math.Round(float64(int64(l[i])+int64(r[i])) / 2))
		}
	default:
		for i := range out {
			var sum int64
			for c := range channels {
				sum += int64(f.Sample(c, i))
			}
			out[i] = int32(math.Round(float64(sum) / float64(channels)))
		}
	}
	return NewFrame(f.BitsPerSample(), out), nil
}
