// SPDX-License-Identifier: EPL-2.0

// Package lossless decodes lossless audio files to PCM.
//
// The codecs live in subpackages and share the audio.Stream interface:
//   - FLAC via formats/flac
//   - Apple Lossless in M4A/MP4 containers via formats/alac
//   - Shorten via formats/shorten
//   - WavPack (lossless integer modes) via formats/wavpack
//
// Uncompressed WAV and AIFF, and the lossy MP3 and Ogg Vorbis formats, are
// decoded through go-audio, go-mp3 and oggvorbis so every common input can
// go through the same pipeline.
//
// This package ties them together: NewRegistry registers all decoders under
// their file extensions, Detect identifies a format from its leading bytes,
// and OpenFile combines the two.
//
// # Quick Start
//
//	reg := lossless.NewRegistry()
//	stream, err := lossless.OpenFile(reg, "album/01.flac")
//	if err != nil {
//	    // Handle error
//	}
//	defer stream.Close()
//
//	pcm, err := lossless.DecodeAll(stream)
//
// # Streaming
//
// Lossless decoders return one native unit per Read (a FLAC frame, an ALAC
// frameset, a Shorten block, a WavPack block group). At the end of the
// stream Read returns an empty frame and a nil error, and keeps doing so:
//
//	for {
//	    frame, err := stream.Read(0)
//	    if err != nil {
//	        return err
//	    }
//	    if frame.Len() == 0 {
//	        break
//	    }
//	    // frame.Channel(c) holds the samples of channel c
//	}
//
// # Converting Files
//
// ConvertFiles decodes many files to WAV concurrently, one decoder per
// goroutine:
//
//	results, err := lossless.ConvertFiles(ctx, reg, "out", 4, paths...)
//
// A Converter also down-mixes or resamples the decoded audio before writing
// it:
//
//	c := lossless.Converter{Registry: reg, OutDir: "out", SampleRate: 22050, Mono: true}
//	results, err := c.Run(ctx, paths...)
//
// # Errors
//
// Every decoder error wraps one of audio.ErrEndOfStream,
// audio.ErrInvalidHeader, audio.ErrInvalidFrame, audio.ErrChecksumMismatch or
// audio.ErrUnsupportedFormat. Use errors.Is to classify them.
package lossless
