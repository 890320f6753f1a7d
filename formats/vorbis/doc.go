// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis audio through
// github.com/jfreymuth/oggvorbis.
//
// Vorbis is lossy and decodes to floating point. The stream quantizes each
// sample to 16-bit PCM (clipping anything outside [-1, 1]) and reorders
// surround layouts from Vorbis channel order to WAVE order, so the output
// matches audio.DefaultChannelMask.
//
// # Usage
//
//	stream, err := vorbis.Open(file)
//	if err != nil {
//	    // Handle error
//	}
//	frame, err := stream.Read(4096)
//
// Format().TotalFrames is -1 when the length cannot be determined, which is
// the case for input that is not seekable.
//
// # Error Handling
//
//   - ErrNotVorbisFile (audio.ErrInvalidHeader) from Open
//   - ErrTruncated (audio.ErrEndOfStream) when input stops inside a packet
//   - ErrBadPacket (audio.ErrInvalidFrame) for any other decode failure
package vorbis
