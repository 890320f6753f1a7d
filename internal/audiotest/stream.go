// SPDX-License-Identifier: EPL-2.0

package audiotest

import "github.com/ik5/lossless/audio"

// MockStream serves a fixed frame in batches of at most maxFrames, or all of
// it when maxFrames is not positive. Set Err to make every Read after the
// data fail with it.
type MockStream struct {
	format audio.Format
	frame  *audio.Frame
	pos    int
	closed bool

	Err error
}

// NewMockStream returns a stream that yields frame at the given rate.
func NewMockStream(sampleRate int, frame *audio.Frame) *MockStream {
	return &MockStream{
		format: audio.Format{
			SampleRate:    sampleRate,
			Channels:      frame.Channels(),
			BitsPerSample: frame.BitsPerSample(),
			ChannelMask:   audio.DefaultChannelMask(frame.Channels()),
			TotalFrames:   int64(frame.Len()),
		},
		frame: frame,
	}
}

func (m *MockStream) Format() audio.Format { return m.format }

func (m *MockStream) Read(maxFrames int) (*audio.Frame, error) {
	n := m.frame.Len() - m.pos
	if maxFrames > 0 {
		n = min(n, maxFrames)
	}
	if n <= 0 {
		if m.Err != nil {
			return nil, m.Err
		}
		return audio.EmptyFrame(m.format.Channels, m.format.BitsPerSample), nil
	}
	ch := make([][]int32, m.frame.Channels())
	for c := range ch {
		ch[c] = m.frame.Channel(c)[m.pos : m.pos+n]
	}
	m.pos += n
	return audio.NewFrame(m.format.BitsPerSample, ch...), nil
}

// Closed reports whether Close was called.
func (m *MockStream) Closed() bool { return m.closed }

func (m *MockStream) Close() error {
	m.closed = true
	return nil
}
