// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotFlacFile       = fmt.Errorf("flac: missing fLaC signature: %w", audio.ErrInvalidHeader)
	ErrMissingStreamInfo = fmt.Errorf("flac: first metadata block is not STREAMINFO: %w", audio.ErrInvalidHeader)
	ErrInvalidStreamInfo = fmt.Errorf("flac: invalid STREAMINFO: %w", audio.ErrInvalidHeader)
	ErrInvalidMetadata   = fmt.Errorf("flac: invalid metadata block type: %w", audio.ErrInvalidHeader)

	ErrBadSync           = fmt.Errorf("flac: bad frame sync code: %w", audio.ErrInvalidFrame)
	ErrReservedField     = fmt.Errorf("flac: reserved frame header value: %w", audio.ErrInvalidFrame)
	ErrFrameMismatch     = fmt.Errorf("flac: frame layout differs from STREAMINFO: %w", audio.ErrInvalidFrame)
	ErrInvalidSubframe   = fmt.Errorf("flac: invalid subframe: %w", audio.ErrInvalidFrame)
	ErrInvalidResidual   = fmt.Errorf("flac: invalid residual coding: %w", audio.ErrInvalidFrame)
	ErrTooManySamples    = fmt.Errorf("flac: frame exceeds stream sample count: %w", audio.ErrInvalidFrame)
	ErrInvalidFrameCount = fmt.Errorf("flac: invalid coded frame number: %w", audio.ErrInvalidFrame)

	ErrHeaderCRC   = fmt.Errorf("flac: frame header CRC-8: %w", audio.ErrChecksumMismatch)
	ErrFrameCRC    = fmt.Errorf("flac: frame CRC-16: %w", audio.ErrChecksumMismatch)
	ErrMD5Mismatch = fmt.Errorf("flac: stream MD5: %w", audio.ErrChecksumMismatch)
)
