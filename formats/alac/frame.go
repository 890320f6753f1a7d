// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"fmt"

	"github.com/ik5/lossless/audio"
)

// Element tags.
const (
	tagSCE = 0 // single channel
	tagCPE = 1 // channel pair
	tagCCE = 2
	tagLFE = 3
	tagDSE = 4 // data stream
	tagPCE = 5
	tagFIL = 6 // fill
	tagEND = 7
)

const (
	modeNormal   = 0
	modeTwoStage = 15
)

// reorder maps WAVE channel positions to element order.
var reorder = [9][]int{
	3: {1, 2, 0},
	4: {1, 2, 0, 3},
	5: {1, 2, 0, 3, 4},
	6: {1, 2, 0, 5, 3, 4},
	7: {1, 2, 0, 6, 3, 4, 5},
	8: {3, 4, 0, 7, 5, 6, 1, 2},
}

var channelMasks = [9]uint32{
	1: 0x4,
	2: 0x3,
	3: 0x7,
	4: 0x107,
	5: 0x37,
	6: 0x3F,
	7: 0x13F,
	8: 0xFF,
}

func (s *Stream) readFrameset() (*audio.Frame, error) {
	want := int(s.cfg.Channels)
	channels := make([][]int32, 0, want)

	for {
		tag, err := s.br.Read(3)
		if err != nil {
			return nil, fmt.Errorf("alac: element tag: %w", err)
		}

		var n int
		switch tag {
		case tagSCE, tagLFE:
			n = 1
		case tagCPE:
			n = 2
		case tagDSE:
			if err := s.skipData(); err != nil {
				return nil, err
			}
			continue
		case tagFIL:
			if err := s.skipFill(); err != nil {
				return nil, err
			}
			continue
		case tagEND:
			s.br.ByteAlign()
			if len(channels) != want {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrChannelCount, len(channels), want)
			}
			return s.assemble(channels), nil
		default:
			return nil, fmt.Errorf("%w: %d", ErrInvalidElement, tag)
		}

		if len(channels)+n > want {
			return nil, fmt.Errorf("%w: more than %d", ErrChannelCount, want)
		}
		out, err := s.readElement(n)
		if err != nil {
			return nil, err
		}
		if len(channels) > 0 && len(out[0]) != len(channels[0]) {
			return nil, fmt.Errorf("%w: elements disagree on frame length", ErrSampleCount)
		}
		channels = append(channels, out...)
	}
}

func (s *Stream) assemble(channels [][]int32) *audio.Frame {
	if order := reorder[len(channels)]; order != nil {
		mapped := make([][]int32, len(channels))
		for i, src := range order {
			mapped[i] = channels[src]
		}
		channels = mapped
	}
	return audio.NewFrame(int(s.cfg.BitDepth), channels...)
}

func (s *Stream) skipData() error {
	if _, err := s.br.Read(4); err != nil { // instance tag
		return fmt.Errorf("alac: DSE: %w", err)
	}
	align, err := s.br.ReadBit()
	if err != nil {
		return fmt.Errorf("alac: DSE: %w", err)
	}
	count, err := s.br.Read(8)
	if err != nil {
		return fmt.Errorf("alac: DSE: %w", err)
	}
	if count == 255 {
		more, err := s.br.Read(8)
		if err != nil {
			return fmt.Errorf("alac: DSE: %w", err)
		}
		count += more
	}
	if align == 1 {
		s.br.ByteAlign()
	}
	if err := s.br.Skip(uint(count) * 8); err != nil {
		return fmt.Errorf("alac: DSE: %w", err)
	}
	return nil
}

func (s *Stream) skipFill() error {
	count, err := s.br.Read(4)
	if err != nil {
		return fmt.Errorf("alac: FIL: %w", err)
	}
	if count == 15 {
		more, err := s.br.Read(8)
		if err != nil {
			return fmt.Errorf("alac: FIL: %w", err)
		}
		count += more - 1
	}
	if err := s.br.Skip(uint(count) * 8); err != nil {
		return fmt.Errorf("alac: FIL: %w", err)
	}
	return nil
}

type channelHeader struct {
	mode     uint64
	denShift uint
	modifier uint32
	order    int
	coefs    Coefs
}

// readElement decodes an SCE, LFE (n = 1) or CPE (n = 2) element body.
func (s *Stream) readElement(n int) ([][]int32, error) {
	br := s.br
	fail := func(what string, err error) ([][]int32, error) {
		return nil, fmt.Errorf("alac: %s: %w", what, err)
	}

	if _, err := br.Read(4); err != nil { // instance tag
		return fail("element header", err)
	}
	unused, err := br.Read(12)
	if err != nil {
		return fail("element header", err)
	}
	if unused != 0 {
		return nil, ErrReservedBits
	}
	partial, err := br.ReadBit()
	if err != nil {
		return fail("element header", err)
	}
	shiftBytes, err := br.Read(2)
	if err != nil {
		return fail("element header", err)
	}
	escape, err := br.ReadBit()
	if err != nil {
		return fail("element header", err)
	}
	if shiftBytes == 3 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidShift, shiftBytes)
	}

	count := uint64(s.cfg.FrameLength)
	if partial == 1 {
		if count, err = br.Read(32); err != nil {
			return fail("sample count", err)
		}
		if count == 0 || count > uint64(s.cfg.FrameLength) {
			return nil, fmt.Errorf("%w: %d", ErrSampleCount, count)
		}
	}

	out := make([][]int32, n)
	for c := range out {
		out[c] = make([]int32, count)
	}

	if escape == 1 {
		bits := uint(s.cfg.BitDepth)
		for i := range int(count) {
			for c := range out {
				v, err := br.ReadSigned(bits)
				if err != nil {
					return fail("uncompressed samples", err)
				}
				out[c][i] = int32(v)
			}
		}
		return out, nil
	}

	mixBits, err := br.Read(8)
	if err != nil {
		return fail("mix header", err)
	}
	mixRes, err := br.ReadSigned(8)
	if err != nil {
		return fail("mix header", err)
	}

	headers := make([]channelHeader, n)
	for c := range headers {
		if headers[c], err = s.readChannelHeader(); err != nil {
			return nil, err
		}
	}

	shift := uint(shiftBytes) * 8
	var low []int32
	if shift > 0 {
		low = make([]int32, int(count)*n)
		for i := range low {
			v, err := br.Read(shift)
			if err != nil {
				return fail("shift buffer", err)
			}
			low[i] = int32(v)
		}
	}

	sampleBits := uint(s.cfg.BitDepth) - shift + uint(n-1)
	if sampleBits > 32 {
		return nil, fmt.Errorf("%w: %d bit channel", ErrInvalidShift, sampleBits)
	}

	for c, h := range headers {
		if err := readResiduals(br, out[c], newRiceParams(s.cfg, h.modifier), sampleBits); err != nil {
			return fail("residuals", err)
		}
		if h.mode == modeTwoStage {
			unpredict(out[c], Coefs{}, 31, 0, sampleBits)
		}
		unpredict(out[c], h.coefs, h.order, h.denShift, sampleBits)
	}

	if n == 2 && mixRes != 0 {
		unmix(out[0], out[1], int32(mixRes), uint(mixBits))
	}
	if shift > 0 {
		for c := range out {
			for i := range out[c] {
				out[c][i] = out[c][i]<<shift | low[i*n+c]
			}
		}
	}
	return out, nil
}

func (s *Stream) readChannelHeader() (channelHeader, error) {
	var h channelHeader
	fields := []struct {
		bits uint
		dst  func(uint64)
	}{
		{4, func(v uint64) { h.mode = v }},
		{4, func(v uint64) { h.denShift = uint(v) }},
		{3, func(v uint64) { h.modifier = uint32(v) }},
		{5, func(v uint64) { h.order = int(v) }},
	}
	for _, f := range fields {
		v, err := s.br.Read(f.bits)
		if err != nil {
			return h, fmt.Errorf("alac: subframe header: %w", err)
		}
		f.dst(v)
	}
	if h.mode != modeNormal && h.mode != modeTwoStage {
		return h, fmt.Errorf("%w: %d", ErrInvalidPrediction, h.mode)
	}
	for k := range h.order {
		v, err := s.br.ReadSigned(16)
		if err != nil {
			return h, fmt.Errorf("alac: coefficients: %w", err)
		}
		h.coefs[k] = int16(v)
	}
	return h, nil
}

// unmix restores left and right from the mid and difference channels.
func unmix(u, v []int32, mixRes int32, mixBits uint) {
	for i := range u {
		l := u[i] + v[i] - (mixRes*v[i])>>mixBits
		u[i], v[i] = l, l-v[i]
	}
}
