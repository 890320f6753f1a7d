// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	// ErrNotAiffFile indicates the input has no valid FORM/COMM header.
	ErrNotAiffFile = fmt.Errorf("aiff: not an AIFF file: %w", audio.ErrInvalidHeader)

	// ErrUnsupportedDepth indicates a sample size other than 8, 16, 24 or 32 bits.
	ErrUnsupportedDepth = fmt.Errorf("aiff: unsupported bit depth: %w", audio.ErrUnsupportedFormat)

	// ErrShortData indicates the SSND chunk holds fewer frames than COMM declares.
	ErrShortData = fmt.Errorf("aiff: sound data ends early: %w", audio.ErrEndOfStream)
)
