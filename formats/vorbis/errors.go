// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotVorbisFile = fmt.Errorf("vorbis: not an Ogg Vorbis stream: %w", audio.ErrInvalidHeader)
	ErrTruncated     = fmt.Errorf("vorbis: stream ends inside a packet: %w", audio.ErrEndOfStream)
	ErrBadPacket     = fmt.Errorf("vorbis: packet decode failed: %w", audio.ErrInvalidFrame)
)
