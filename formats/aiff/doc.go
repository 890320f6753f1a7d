// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files and
// exposes the sound data as an audio.Stream, so uncompressed AIFF input can
// go through the same pipeline as the lossless codecs.
//
// # Supported Formats
//
//   - uncompressed AIFF
//   - 8, 16, 24 and 32-bit signed samples
//   - any channel count and sample rate
//
// # Decoding AIFF Files
//
//	stream, err := aiff.Open(file)
//	if err != nil {
//	    // Handle error
//	}
//	frame, err := stream.Read(4096)
//
// Read returns at most maxFrames frames as signed integers at the file's
// bit depth. Once the frame count declared in the COMM chunk has been
// returned, Read returns empty frames.
//
// # Error Handling
//
//   - ErrNotAiffFile wraps audio.ErrInvalidHeader
//   - ErrUnsupportedDepth wraps audio.ErrUnsupportedFormat
//   - ErrShortData wraps audio.ErrEndOfStream and is returned when the SSND
//     chunk ends before the declared frame count
//
// # AIFF vs. WAV
//
// AIFF is similar to WAV but:
//   - Uses big-endian byte order (WAV uses little-endian)
//   - Stores sample rate as 80-bit float (WAV uses 32-bit int)
//   - Stores 8-bit samples signed (WAV stores them unsigned)
package aiff
