// SPDX-License-Identifier: EPL-2.0

// Package shorten decodes Shorten (.shn) version 2 streams.
//
// A stream is a header followed by a sequence of commands. Audio commands
// decode one block of one channel; Read returns once every channel has
// decoded its block. Control commands change the block size or the sample
// bit shift, and QUIT ends the stream.
//
// Shorten carries no checksum. Files converted from WAVE or AIFF start with
// a VERBATIM command holding the original file header; it is returned by
// WrappedHeader and used to recover the sample rate, which the Shorten
// header does not store.
//
// # Supported File Types
//
//   - 1: signed 8-bit
//   - 2: unsigned 8-bit
//   - 3, 5: signed 16-bit (big and little endian source)
//   - 4, 6: unsigned 16-bit (big and little endian source)
//
// Unsigned types are returned as signed samples centred on zero.
package shorten
