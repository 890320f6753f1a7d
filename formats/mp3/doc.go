// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III audio through
// github.com/hajimehoshi/go-mp3.
//
// MP3 is lossy, so the package only adapts the library's output to
// audio.Stream. Output is always 16-bit stereo at the stream's sample rate;
// mono files are duplicated to both channels by go-mp3.
//
// # Usage
//
//	stream, err := mp3.Open(file)
//	if err != nil {
//	    // Handle error
//	}
//	frame, err := stream.Read(4096)
//
// Format().TotalFrames is -1 unless the input is seekable.
//
// # Error Handling
//
//   - ErrNotMP3File (audio.ErrInvalidHeader) from Open
//   - ErrTruncated (audio.ErrEndOfStream) when input stops inside a frame
//   - ErrBadFrame (audio.ErrInvalidFrame) for any other decode failure
package mp3
