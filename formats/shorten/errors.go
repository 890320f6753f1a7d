// SPDX-License-Identifier: EPL-2.0

package shorten

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	ErrNotShortenFile     = fmt.Errorf("shorten: missing ajkg signature: %w", audio.ErrInvalidHeader)
	ErrUnsupportedVersion = fmt.Errorf("shorten: unsupported version: %w", audio.ErrInvalidHeader)
	ErrUnsupportedType    = fmt.Errorf("shorten: unsupported file type: %w", audio.ErrInvalidHeader)
	ErrInvalidHeader      = fmt.Errorf("shorten: header field out of range: %w", audio.ErrInvalidHeader)
	ErrHeaderOverflow     = fmt.Errorf("shorten: header value too wide: %w", audio.ErrInvalidHeader)

	ErrInvalidCommand  = fmt.Errorf("shorten: invalid command: %w", audio.ErrInvalidFrame)
	ErrInvalidBlock    = fmt.Errorf("shorten: invalid block size: %w", audio.ErrInvalidFrame)
	ErrInvalidShift    = fmt.Errorf("shorten: invalid bit shift: %w", audio.ErrInvalidFrame)
	ErrInvalidEnergy   = fmt.Errorf("shorten: invalid residual energy: %w", audio.ErrInvalidFrame)
	ErrInvalidLPC      = fmt.Errorf("shorten: invalid LPC order: %w", audio.ErrInvalidFrame)
	ErrIncompleteBlock = fmt.Errorf("shorten: block interrupted before every channel was decoded: %w", audio.ErrInvalidFrame)
	ErrValueOverflow   = fmt.Errorf("shorten: value too wide: %w", audio.ErrInvalidFrame)
)
