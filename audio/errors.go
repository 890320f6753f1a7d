// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

// Error kinds shared by every decoder. Format packages wrap these so callers
// can classify failures with errors.Is.
var (
	// ErrEndOfStream reports that the source ran out of bits mid-field.
	ErrEndOfStream = errors.New("unexpected end of stream")
	// ErrInvalidHeader reports a bad magic number, unsupported version or
	// reserved field combination found while opening a stream.
	ErrInvalidHeader = errors.New("invalid stream header")
	// ErrInvalidFrame reports a bad sync code or an invalid subframe,
	// command or term code inside a decode unit.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrChecksumMismatch reports a CRC or MD5 disagreement.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsupportedFormat reports a format the registry cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
