// SPDX-License-Identifier: EPL-2.0

// Package wavpack decodes lossless WavPack 4 streams (.wv).
//
// A WavPack file is a sequence of self-contained blocks. Each block holds
// one or two channels; streams with more channels spread one frame over
// several blocks, the last of which carries the final-block flag. Read
// returns one such frame.
//
// Within a block, residuals are read from an adaptive median entropy coder
// and run back through the cascade of decorrelation passes. The result is
// checked against the block CRC before joint stereo, shifted integers and
// false stereo are undone. When the stream carries an MD5 sub-block the
// digest of all decoded PCM is compared once the last frame has been read.
//
// Hybrid (lossy and correction file) streams, floating point data and
// 32-bit integer streams that need a wvx extension are rejected with
// audio.ErrInvalidHeader.
package wavpack
