// SPDX-License-Identifier: EPL-2.0

package lossless

import (
	"errors"
	"fmt"

	"github.com/ik5/lossless/audio"
)

var (
	// ErrUnknownFormat indicates that neither the file extension nor the
	// leading bytes identify a registered format.
	ErrUnknownFormat = fmt.Errorf("lossless: cannot identify format: %w", audio.ErrUnsupportedFormat)

	// ErrOutputCollision indicates two inputs would be written to the same
	// output file, or an output would overwrite its own input.
	ErrOutputCollision = errors.New("lossless: output paths collide")
)
