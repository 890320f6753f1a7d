// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes uncompressed PCM WAV files.
//
// Both directions are built on github.com/go-audio/wav. The decoder exposes
// the data chunk as an audio.Stream, so WAV input can be fed through the
// same pipeline as the lossless codecs. The writer is the usual destination
// for decoded audio.
//
// # Supported Formats
//
//   - integer PCM (format tag 1 or WAVE_FORMAT_EXTENSIBLE)
//   - 8-bit unsigned, 16, 24 and 32-bit signed samples
//   - any channel count and sample rate
//
// # Decoding
//
//	stream, err := wav.Open(file)
//	if err != nil {
//	    // Handle error
//	}
//	frame, err := stream.Read(4096)
//
// Read returns at most maxFrames frames. 8-bit samples are returned centred
// on zero. A data chunk shorter than its declared size reports
// audio.ErrEndOfStream once the available frames have been returned.
//
// # Writing
//
//	out, _ := os.Create("output.wav")
//	err := wav.WriteFrames(out, stream.Format(), frames...)
//
// For streaming output use NewWriter, WriteFrame and Close. Depths that are
// not a multiple of 8 are shifted up into the next byte container. Header
// builds the same 44-byte header for callers that write PCM themselves.
package wav
