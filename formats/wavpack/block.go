// SPDX-License-Identifier: EPL-2.0

package wavpack

import (
	"fmt"
	"slices"

	"github.com/ik5/lossless/internal/bitstream"
	"github.com/ik5/lossless/internal/checksum"
)

// readBlock reads one block header and its payload.
func readBlock(br *bitstream.Reader) (BlockHeader, []byte, error) {
	raw, err := br.ReadBytes(blockHeaderSize)
	if err != nil {
		return BlockHeader{}, nil, fmt.Errorf("wavpack: block header: %w", err)
	}
	hdr, err := parseBlockHeader(raw)
	if err != nil {
		return hdr, nil, err
	}
	payload, err := br.ReadBytes(hdr.payloadSize())
	if err != nil {
		return hdr, nil, fmt.Errorf("wavpack: block payload: %w", err)
	}
	return hdr, payload, nil
}

// decodeBlock reconstructs the channels one block contributes. Blocks
// without samples only carry metadata and return no channels.
func decodeBlock(hdr BlockHeader, payload []byte) ([][]int32, *blockParams, error) {
	subs, err := readSubBlocks(payload)
	if err != nil {
		return nil, nil, err
	}
	params, err := parseParams(hdr, subs)
	if err != nil {
		return nil, nil, err
	}
	if hdr.BlockSamples == 0 {
		return nil, params, nil
	}
	if params.bitstream == nil {
		return nil, nil, ErrMissingBitstream
	}

	n := int(hdr.BlockSamples)
	stored := make([][]int32, hdr.storedChannels())
	for c := range stored {
		stored[c] = make([]int32, n)
	}
	w := newWords(bitstream.NewBytesReader(params.bitstream, bitstream.LSBFirst), params.medians)
	for i := range n {
		for c, ch := range stored {
			if ch[i], err = w.word(c); err != nil {
				return nil, nil, fmt.Errorf("wavpack: residual %d: %w", i, err)
			}
		}
	}

	undoPasses(params.passes, stored)
	if len(stored) == 2 && hdr.JointStereo {
		for i, side := range stored[0] {
			right := stored[1][i] - side>>1
			stored[0][i] = side + right
			stored[1][i] = right
		}
	}

	if crc := checksum.WavPackBlock(stored); crc != hdr.CRC {
		return nil, nil, fmt.Errorf("%w: block %d: got %#08x, want %#08x", ErrBlockCRC, hdr.BlockIndex, crc, hdr.CRC)
	}

	fixup(hdr, params.int32, stored)
	if hdr.FalseStereo && !hdr.Mono {
		stored = append(stored, slices.Clone(stored[0]))
	}
	return stored, params, nil
}

// fixup restores the low bits an encoder removed before coding.
func fixup(hdr BlockHeader, info int32Info, channels [][]int32) {
	if !hdr.ExtendedInt && hdr.LeftShift == 0 {
		return
	}
	for _, ch := range channels {
		for i, v := range ch {
			if hdr.ExtendedInt {
				switch {
				case info.zeros > 0:
					v <<= info.zeros
				case info.ones > 0:
					v = (v+1)<<info.ones - 1
				case info.dups > 0:
					v = (v+v&1)<<info.dups - v&1
				}
			}
			ch[i] = v << hdr.LeftShift
		}
	}
}
