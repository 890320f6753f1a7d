// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrInvalidAtom   = fmt.Errorf("alac: malformed atom: %w", audio.ErrInvalidHeader)
	ErrNoMovie       = fmt.Errorf("alac: no moov atom: %w", audio.ErrInvalidHeader)
	ErrNoMediaData   = fmt.Errorf("alac: no mdat atom: %w", audio.ErrInvalidHeader)
	ErrNoALACTrack   = fmt.Errorf("alac: no track with an alac sample entry: %w", audio.ErrInvalidHeader)
	ErrInvalidConfig = fmt.Errorf("alac: invalid decoder config: %w", audio.ErrInvalidHeader)

	ErrInvalidElement    = fmt.Errorf("alac: invalid element tag: %w", audio.ErrInvalidFrame)
	ErrChannelCount      = fmt.Errorf("alac: frameset channel count differs from config: %w", audio.ErrInvalidFrame)
	ErrReservedBits      = fmt.Errorf("alac: reserved element bits set: %w", audio.ErrInvalidFrame)
	ErrSampleCount       = fmt.Errorf("alac: invalid sample count: %w", audio.ErrInvalidFrame)
	ErrInvalidShift      = fmt.Errorf("alac: invalid byte shift: %w", audio.ErrInvalidFrame)
	ErrInvalidPrediction = fmt.Errorf("alac: unsupported prediction mode: %w", audio.ErrInvalidFrame)
	ErrResidualOverrun   = fmt.Errorf("alac: zero run past end of frame: %w", audio.ErrInvalidFrame)
)
