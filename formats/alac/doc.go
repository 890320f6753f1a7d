// SPDX-License-Identifier: EPL-2.0

// Package alac decodes Apple Lossless audio stored in an MPEG-4 (M4A)
// container.
//
// Open walks the atom tree for the alac sample entry and the media
// duration, then positions the reader at the start of the mdat payload.
// Each Read decodes one frameset: the sequence of channel elements
// terminated by an END tag. NewStream decodes a bare payload when the
// decoder config is already known.
//
// # Supported Features
//
//   - 16, 20, 24 and 32 bit audio, 1 to 8 channels
//   - mono (SCE, LFE) and stereo pair (CPE) elements, with DSE and FIL
//     elements skipped
//   - adaptive Rice residuals with zero runs and escapes
//   - prediction modes 0 and 15 with adaptive coefficients
//   - stereo unmixing and uncompressed low-byte shifting
//   - uncompressed (escape) frames
//
// ALAC carries no checksum, so corruption is only detected when it breaks
// the bitstream structure.
//
// # Channel Order
//
// Channels are returned in WAVE order. For three or more channels the
// element order (center first) is remapped, for example 5.1 is returned as
// L R C LFE Ls Rs.
package alac
