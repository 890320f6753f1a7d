// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sort"
	"sync"
)

// Format describes the PCM layout a Stream produces.
type Format struct {
	// SampleRate of the PCM stream in Hz.
	SampleRate int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels int
	// BitsPerSample of every decoded sample.
	BitsPerSample int
	// ChannelMask is the WAVE speaker mask, 0 when unknown.
	ChannelMask uint32
	// TotalFrames in the stream, -1 when the container does not say.
	TotalFrames int64
}

type Stream interface {
	// Format of the decoded PCM.
	Format() Format
	// Read decodes the next unit of audio. Lossless decoders return exactly
	// one native unit per call and ignore maxFrames. At end of stream an
	// empty frame is returned with a nil error, every time.
	Read(maxFrames int) (*Frame, error)

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Stream from an input reader.
type Decoder interface {
	Open(r io.Reader) (Stream, error)
}

// Registry for decoders by format key (e.g., "flac", "wv", "shn").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Formats returns the registered keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultChannelMask returns the WAVE speaker mask conventionally used for
// n channels, or 0 when there is none. Seven channels are 6.1 with a back
// centre and side pair (FL FR FC LFE BC SL SR), the FLAC and Vorbis layout.
func DefaultChannelMask(n int) uint32 {
	switch n {
	case 1:
		return 0x4
	case 2:
		return 0x3
	case 3:
		return 0x7
	case 4:
		return 0x33
	case 5:
		return 0x37
	case 6:
		return 0x3F
	case 7:
		return 0x70F
	case 8:
		return 0x63F
	default:
		return 0
	}
}

// ReadAll drains s and returns every decoded unit joined into one frame.
func ReadAll(s Stream) (*Frame, error) {
	f := s.Format()
	frames := []*Frame{EmptyFrame(f.Channels, f.BitsPerSample)}
	for {
		frame, err := s.Read(4096)
		if err != nil {
			return nil, err
		}
		if frame.Len() == 0 {
			return Concat(frames...), nil
		}
		frames = append(frames, frame)
	}
}
