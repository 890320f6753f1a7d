// SPDX-License-Identifier: EPL-2.0

package shorten

import (
	"bytes"
	"fmt"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	"github.com/ik5/lossless/internal/bitstream"
)

const (
	magic          = "ajkg"
	version        = 2
	defaultRate    = 44100
	minWrap        = 3
	maxChannels    = 8
	maxBlockSize   = 65535
	maxLPCOrder    = 1024
	maxMeanBlocks  = 32768
	maxVerbatim    = 1 << 20
	lpcQuantOffset = 1 << lpcQuant
)

// fileType describes the sample layout a Shorten file type code stands for.
type fileType struct {
	bits   int
	signed bool
}

var fileTypes = map[uint32]fileType{
	1: {8, true},
	2: {8, false},
	3: {16, true},
	4: {16, false},
	5: {16, true},
	6: {16, false},
}

// Header holds the fixed stream parameters.
type Header struct {
	FileType      uint32
	Channels      int
	BlockSize     int
	MaxLPCOrder   int
	MeanBlocks    int
	BitsPerSample int
	Signed        bool
}

func readHeader(br *bitstream.Reader) (Header, error) {
	var h Header

	sig, err := br.ReadBytes(len(magic))
	if err != nil {
		return h, fmt.Errorf("shorten: signature: %w", err)
	}
	if string(sig) != magic {
		return h, ErrNotShortenFile
	}
	v, err := br.Read(8)
	if err != nil {
		return h, fmt.Errorf("shorten: version: %w", err)
	}
	if v != version {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	r := varReader{br: br, overflow: ErrHeaderOverflow}
	var channels, blockSize, maxLPC, means, skip uint32
	fields := []struct {
		name string
		dst  *uint32
	}{
		{"file type", &h.FileType},
		{"channels", &channels},
		{"block size", &blockSize},
		{"max LPC order", &maxLPC},
		{"mean blocks", &means},
		{"skip bytes", &skip},
	}
	for _, f := range fields {
		if *f.dst, err = r.ulong(); err != nil {
			return h, fmt.Errorf("shorten: %s: %w", f.name, err)
		}
	}

	ft, ok := fileTypes[h.FileType]
	switch {
	case !ok:
		return h, fmt.Errorf("%w: %d", ErrUnsupportedType, h.FileType)
	case channels == 0 || channels > maxChannels:
		return h, fmt.Errorf("%w: %d channels", ErrInvalidHeader, channels)
	case blockSize == 0 || blockSize > maxBlockSize:
		return h, fmt.Errorf("%w: block size %d", ErrInvalidHeader, blockSize)
	case maxLPC > maxLPCOrder:
		return h, fmt.Errorf("%w: LPC order %d", ErrInvalidHeader, maxLPC)
	case means > maxMeanBlocks:
		return h, fmt.Errorf("%w: %d mean blocks", ErrInvalidHeader, means)
	}

	if err := br.SkipBytes(int(skip)); err != nil {
		return h, fmt.Errorf("shorten: header padding: %w", err)
	}

	h.Channels = int(channels)
	h.BlockSize = int(blockSize)
	h.MaxLPCOrder = int(maxLPC)
	h.MeanBlocks = int(means)
	h.BitsPerSample = ft.bits
	h.Signed = ft.signed
	return h, nil
}

// wrappedRate recovers the sample rate from an embedded WAVE or AIFF
// header. It returns 0 when the blob is neither.
func wrappedRate(blob []byte) int {
	switch {
	case bytes.HasPrefix(blob, []byte("RIFF")):
		dec := wav.NewDecoder(bytes.NewReader(blob))
		dec.ReadInfo()
		return int(dec.SampleRate)
	case bytes.HasPrefix(blob, []byte("FORM")):
		dec := aiff.NewDecoder(bytes.NewReader(blob))
		dec.ReadInfo()
		return dec.SampleRate
	}
	return 0
}
