// SPDX-License-Identifier: EPL-2.0

// Package audio provides the types shared by every decoder in this module.
//
// This package contains:
//   - Frame, an immutable grid of signed PCM samples (channels x frames)
//   - Format, the layout a stream produces
//   - Stream and Decoder, the pull-based decode API
//   - Registry for decoder registration by format key
//   - the error kinds every decoder reports
//   - MonoMixer and Resampler, Stream wrappers applied after decoding
//
// # Stream Interface
//
// The Stream interface is the foundation of decoding:
//
//	type Stream interface {
//	    Format() Format
//	    Read(maxFrames int) (*Frame, error)
//	    Close() error
//	}
//
// Lossless decoders decode one native unit per Read call (a FLAC frame, an
// ALAC frameset, a Shorten block or a WavPack block group). When the stream
// is exhausted Read returns an empty frame and a nil error, and keeps doing
// so on every later call.
//
// # Errors
//
// Decoders wrap one of ErrEndOfStream, ErrInvalidHeader, ErrInvalidFrame or
// ErrChecksumMismatch:
//
//	frame, err := stream.Read(0)
//	if errors.Is(err, audio.ErrChecksumMismatch) {
//	    // the stream is corrupt; do not call Read again
//	}
//
// A stream that failed keeps returning the same error.
//
// # Registry
//
//	registry := audio.NewRegistry()
//	registry.Register("flac", flac.Decoder{})
//	dec, ok := registry.Get("flac")
//
// # Post-processing
//
// Process chains the optional wrappers. Down-mixing happens before rate
// conversion, and either step is skipped when it would not change the
// stream:
//
//	out := audio.Process(stream, 22050, true)
//
// Resampler uses Catmull-Rom cubic interpolation and a one-pole low-pass
// filter when it lowers the rate. Results are rounded and clipped to the
// source bit depth.
//
// # Frames
//
// Frames convert to interleaved samples, packed little-endian PCM bytes, or
// a go-audio IntBuffer for writers built on github.com/go-audio:
//
//	pcm := frame.AppendPCM(nil, true)
//	buf := frame.IntBuffer(44100)
package audio
