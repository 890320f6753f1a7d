// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotWavPackFile     = fmt.Errorf("wavpack: missing wvpk block signature: %w", audio.ErrInvalidHeader)
	ErrUnsupportedVersion = fmt.Errorf("wavpack: unsupported stream version: %w", audio.ErrInvalidHeader)
	ErrUnsupportedMode    = fmt.Errorf("wavpack: unsupported encoding mode: %w", audio.ErrInvalidHeader)
	ErrInvalidBlockSize   = fmt.Errorf("wavpack: invalid block size: %w", audio.ErrInvalidHeader)
	ErrInvalidSampleRate  = fmt.Errorf("wavpack: missing or invalid sample rate: %w", audio.ErrInvalidHeader)
	ErrInvalidChannels    = fmt.Errorf("wavpack: invalid channel layout: %w", audio.ErrInvalidHeader)

	ErrInvalidSubBlock  = fmt.Errorf("wavpack: malformed sub-block: %w", audio.ErrInvalidFrame)
	ErrUnknownSubBlock  = fmt.Errorf("wavpack: unknown required sub-block: %w", audio.ErrInvalidFrame)
	ErrInvalidTerm      = fmt.Errorf("wavpack: invalid decorrelation term: %w", audio.ErrInvalidFrame)
	ErrInvalidWeights   = fmt.Errorf("wavpack: invalid decorrelation weights: %w", audio.ErrInvalidFrame)
	ErrInvalidHistory   = fmt.Errorf("wavpack: invalid decorrelation samples: %w", audio.ErrInvalidFrame)
	ErrInvalidEntropy   = fmt.Errorf("wavpack: invalid entropy variables: %w", audio.ErrInvalidFrame)
	ErrMissingBitstream = fmt.Errorf("wavpack: block has samples but no bitstream: %w", audio.ErrInvalidFrame)
	ErrInvalidCode      = fmt.Errorf("wavpack: invalid residual code: %w", audio.ErrInvalidFrame)
	ErrBlockMismatch    = fmt.Errorf("wavpack: blocks of one frame disagree: %w", audio.ErrInvalidFrame)
	ErrTooManySamples   = fmt.Errorf("wavpack: blocks exceed stream sample count: %w", audio.ErrInvalidFrame)

	ErrBlockCRC    = fmt.Errorf("wavpack: block CRC: %w", audio.ErrChecksumMismatch)
	ErrMD5Mismatch = fmt.Errorf("wavpack: stream MD5: %w", audio.ErrChecksumMismatch)
)
