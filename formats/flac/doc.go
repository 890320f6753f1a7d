// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC (Free Lossless Audio Codec) streams.
//
// The decoder reads the fLaC signature and the metadata block chain, then
// decodes one audio frame per Read call. Every frame is verified against its
// header CRC-8 and its CRC-16 footer, and the MD5 of the decoded PCM is
// compared with the STREAMINFO digest once the last frame has been read.
//
// # Supported Features
//
//   - CONSTANT, VERBATIM, FIXED (order 0-4) and LPC (order 1-32) subframes
//   - wasted-bits shifting
//   - independent, left/side, side/right and mid/side channel assignments
//   - 4-bit and 5-bit Rice parameters with escape partitions
//   - bit depths from 4 to 32 bits, 1 to 8 channels
//   - streams with an unknown sample count (decoded to end of input)
//   - a leading ID3v2 tag, which is skipped
//
// # Usage
//
//	stream, err := flac.Open(file)
//	if err != nil {
//	    // Handle error
//	}
//	for {
//	    frame, err := stream.Read(0)
//	    if err != nil {
//	        // corrupt or truncated input
//	    }
//	    if frame.Len() == 0 {
//	        break
//	    }
//	    // use frame
//	}
//
// # Error Handling
//
// Truncated input reports audio.ErrEndOfStream. Header problems report
// audio.ErrInvalidHeader from Open, frame problems audio.ErrInvalidFrame,
// and CRC or MD5 disagreement audio.ErrChecksumMismatch. Once Read fails
// the stream keeps returning that error.
package flac
