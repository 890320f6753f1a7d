// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/bitstream"
	"github.com/ik5/lossless/internal/checksum"
)

const syncCode = 0x3FFE

// Channel assignments above independent channels.
const (
	leftSide  = 8
	sideRight = 9
	midSide   = 10
)

var sampleRates = [...]uint32{
	1: 88200, 2: 176400, 3: 192000, 4: 8000, 5: 16000, 6: 22050,
	7: 24000, 8: 32000, 9: 44100, 10: 48000, 11: 96000,
}

var sampleSizes = [...]int{1: 8, 2: 12, 4: 16, 5: 20, 6: 24, 7: 32}

type frameHeader struct {
	variableBlocks bool
	blockSize      int
	sampleRate     uint32
	assignment     int
	channels       int
	bitsPerSample  int
	number         uint64
}

func (s *Stream) readFrame() (*audio.Frame, error) {
	crc16 := checksum.NewCRC16()
	s.br.AddCallback(crc16.Update)

	h, err := s.readFrameHeader()
	if err != nil {
		return nil, err
	}

	channels := make([][]int64, h.channels)
	for c := range channels {
		bps := h.bitsPerSample
		if isSideChannel(h.assignment, c) {
			bps++
		}
		if channels[c], err = s.readSubframe(bps, h.blockSize); err != nil {
			return nil, fmt.Errorf("flac: frame %d channel %d: %w", h.number, c, err)
		}
	}

	s.br.ByteAlign()
	s.br.PopCallback()
	want, err := s.br.Read(16)
	if err != nil {
		return nil, fmt.Errorf("flac: frame footer: %w", err)
	}
	if uint16(want) != crc16.Sum() {
		return nil, ErrFrameCRC
	}

	return audio.NewFrame(h.bitsPerSample, decorrelate(h.assignment, channels)...), nil
}

func isSideChannel(assignment, c int) bool {
	switch assignment {
	case leftSide, midSide:
		return c == 1
	case sideRight:
		return c == 0
	}
	return false
}

func (s *Stream) readFrameHeader() (frameHeader, error) {
	var h frameHeader
	br := s.br

	crc8 := checksum.NewCRC8()
	br.AddCallback(crc8.Update)

	sync, err := br.Read(14)
	if err != nil {
		return h, fmt.Errorf("flac: frame header: %w", err)
	}
	if sync != syncCode {
		return h, ErrBadSync
	}

	fields := make([]uint64, 0, 7)
	for _, n := range []uint{1, 1, 4, 4, 4, 3, 1} {
		v, err := br.Read(n)
		if err != nil {
			return h, fmt.Errorf("flac: frame header: %w", err)
		}
		fields = append(fields, v)
	}
	reserved1, blocking, bsCode, srCode, chCode, bpsCode, reserved2 :=
		fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]
	if reserved1 != 0 || reserved2 != 0 {
		return h, ErrReservedField
	}
	h.variableBlocks = blocking == 1

	if h.number, err = readUTF8(br); err != nil {
		return h, err
	}

	if h.blockSize, err = s.blockSize(bsCode); err != nil {
		return h, err
	}
	if h.sampleRate, err = s.sampleRate(srCode); err != nil {
		return h, err
	}

	h.assignment = int(chCode)
	switch {
	case chCode < leftSide:
		h.channels = int(chCode) + 1
	case chCode <= midSide:
		h.channels = 2
	default:
		return h, ErrReservedField
	}
	if h.channels != int(s.info.Channels) {
		return h, ErrFrameMismatch
	}

	switch {
	case bpsCode == 0:
		h.bitsPerSample = int(s.info.BitsPerSample)
	case sampleSizes[bpsCode] == 0:
		return h, ErrReservedField
	default:
		h.bitsPerSample = sampleSizes[bpsCode]
	}
	if h.bitsPerSample != int(s.info.BitsPerSample) {
		return h, ErrFrameMismatch
	}

	br.PopCallback()
	want, err := br.Read(8)
	if err != nil {
		return h, fmt.Errorf("flac: frame header: %w", err)
	}
	if uint8(want) != crc8.Sum() {
		return h, ErrHeaderCRC
	}
	return h, nil
}

func (s *Stream) blockSize(code uint64) (int, error) {
	switch {
	case code == 0:
		return int(s.info.MaxBlockSize), nil
	case code == 1:
		return 192, nil
	case code <= 5:
		return 576 << (code - 2), nil
	case code == 6:
		v, err := s.br.Read(8)
		if err != nil {
			return 0, fmt.Errorf("flac: block size: %w", err)
		}
		return int(v) + 1, nil
	case code == 7:
		v, err := s.br.Read(16)
		if err != nil {
			return 0, fmt.Errorf("flac: block size: %w", err)
		}
		return int(v) + 1, nil
	default:
		return 256 << (code - 8), nil
	}
}

func (s *Stream) sampleRate(code uint64) (uint32, error) {
	var (
		v   uint64
		err error
	)
	switch code {
	case 0:
		return s.info.SampleRate, nil
	case 12:
		v, err = s.br.Read(8)
		v *= 1000
	case 13:
		v, err = s.br.Read(16)
	case 14:
		v, err = s.br.Read(16)
		v *= 10
	case 15:
		return 0, ErrReservedField
	default:
		return sampleRates[code], nil
	}
	if err != nil {
		return 0, fmt.Errorf("flac: sample rate: %w", err)
	}
	return uint32(v), nil
}

// readUTF8 decodes the frame or sample number, coded like an extended
// UTF-8 character of up to seven bytes.
func readUTF8(br *bitstream.Reader) (uint64, error) {
	b0, err := br.Read(8)
	if err != nil {
		return 0, fmt.Errorf("flac: frame number: %w", err)
	}
	if b0&0x80 == 0 {
		return b0, nil
	}

	n := 0
	for mask := uint64(0x80); b0&mask != 0; mask >>= 1 {
		n++
	}
	if n < 2 || n > 7 {
		return 0, ErrInvalidFrameCount
	}

	v := b0 & (0x7F >> n)
	for i := 1; i < n; i++ {
		b, err := br.Read(8)
		if err != nil {
			return 0, fmt.Errorf("flac: frame number: %w", err)
		}
		if b&0xC0 != 0x80 {
			return 0, ErrInvalidFrameCount
		}
		v = v<<6 | b&0x3F
	}
	return v, nil
}

// decorrelate restores left/right from the coded channel pair and narrows
// every channel to 32 bits.
func decorrelate(assignment int, ch [][]int64) [][]int32 {
	switch assignment {
	case leftSide:
		for i, side := range ch[1] {
			ch[1][i] = ch[0][i] - side
		}
	case sideRight:
		for i, side := range ch[0] {
			ch[0][i] = side + ch[1][i]
		}
	case midSide:
		for i, side := range ch[1] {
			mid := ch[0][i]<<1 | side&1
			ch[0][i] = (mid + side) >> 1
			ch[1][i] = (mid - side) >> 1
		}
	}

	out := make([][]int32, len(ch))
	for c, samples := range ch {
		out[c] = make([]int32, len(samples))
		for i, v := range samples {
			out[c][i] = int32(v)
		}
	}
	return out
}
