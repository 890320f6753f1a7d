// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotWavFile          = fmt.Errorf("wav: not a WAV file: %w", audio.ErrInvalidHeader)
	ErrMissingData         = fmt.Errorf("wav: no data chunk: %w", audio.ErrInvalidHeader)
	ErrUnsupportedEncoding = fmt.Errorf("wav: only integer PCM is supported: %w", audio.ErrUnsupportedFormat)
	ErrUnsupportedDepth    = fmt.Errorf("wav: unsupported bit depth: %w", audio.ErrUnsupportedFormat)
	ErrShortData           = fmt.Errorf("wav: data chunk ends early: %w", audio.ErrEndOfStream)
	ErrFrameLayout         = fmt.Errorf("wav: frame does not match the stream format: %w", audio.ErrUnsupportedFormat)
)
