// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotMP3File = fmt.Errorf("mp3: no decodable frame header: %w", audio.ErrInvalidHeader)
	ErrTruncated  = fmt.Errorf("mp3: stream ends inside a frame: %w", audio.ErrEndOfStream)
	ErrBadFrame   = fmt.Errorf("mp3: frame decode failed: %w", audio.ErrInvalidFrame)
)
