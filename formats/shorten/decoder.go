// SPDX-License-Identifier: EPL-2.0

package shorten

import (
	"fmt"
	"io"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/bitstream"
)

type Decoder struct{}

func (Decoder) Open(r io.Reader) (audio.Stream, error) {
	return Open(r)
}

// Stream decodes one block of every channel per Read.
type Stream struct {
	r   varReader
	hdr Header

	sampleRate int
	header     []byte
	footer     []byte

	blockSize int
	bitShift  uint
	channels  []*channel
	block     [][]int32 // channels decoded so far in the current block

	exhausted bool
	err       error
}

// Open reads the stream header. A VERBATIM command directly after it is
// taken as the wrapped WAVE or AIFF header.
func Open(r io.Reader) (*Stream, error) {
	br := bitstream.NewReader(r, bitstream.MSBFirst)
	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		r:          varReader{br: br, overflow: ErrValueOverflow},
		hdr:        hdr,
		sampleRate: defaultRate,
		blockSize:  hdr.BlockSize,
		channels:   make([]*channel, hdr.Channels),
	}
	for c := range s.channels {
		s.channels[c] = newChannel(hdr)
	}

	br.Mark()
	defer br.Unmark()
	cmd, err := readCommand(s.r)
	if err != nil {
		return nil, err
	}
	if v, ok := cmd.(verbatimCommand); ok {
		s.header = v.data
		if rate := wrappedRate(v.data); rate > 0 {
			s.sampleRate = rate
		}
	} else {
		br.Rewind()
	}
	return s, nil
}

// Header returns the fixed stream parameters.
func (s *Stream) Header() Header { return s.hdr }

// WrappedHeader returns the original file header stored ahead of the audio,
// or nil.
func (s *Stream) WrappedHeader() []byte { return s.header }

// WrappedFooter returns the VERBATIM data seen after the audio started. It
// is complete once Read has reported the end of stream.
func (s *Stream) WrappedFooter() []byte { return s.footer }

func (s *Stream) Format() audio.Format {
	return audio.Format{
		SampleRate:    s.sampleRate,
		Channels:      s.hdr.Channels,
		BitsPerSample: s.hdr.BitsPerSample,
		ChannelMask:   audio.DefaultChannelMask(s.hdr.Channels),
		TotalFrames:   -1,
	}
}

// Read runs commands until every channel has decoded a block or QUIT is
// reached. maxFrames is ignored.
func (s *Stream) Read(int) (*audio.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted {
		return s.empty(), nil
	}

	frame, err := s.readBlock()
	if err != nil {
		s.err = err
		return nil, err
	}
	return frame, nil
}

func (s *Stream) readBlock() (*audio.Frame, error) {
	for {
		cmd, err := readCommand(s.r)
		if err != nil {
			return nil, err
		}

		switch c := cmd.(type) {
		case audioCommand:
			samples, err := s.decode(c, s.channels[len(s.block)])
			if err != nil {
				return nil, err
			}
			s.block = append(s.block, samples)
			if len(s.block) == s.hdr.Channels {
				frame := audio.NewFrame(s.hdr.BitsPerSample, s.block...)
				s.block = nil
				return frame, nil
			}

		case blockSizeCommand:
			if len(s.block) != 0 {
				return nil, ErrIncompleteBlock
			}
			if c.size == 0 || c.size > maxBlockSize {
				return nil, fmt.Errorf("%w: %d", ErrInvalidBlock, c.size)
			}
			s.blockSize = int(c.size)

		case bitShiftCommand:
			if c.shift >= 32 {
				return nil, fmt.Errorf("%w: %d", ErrInvalidShift, c.shift)
			}
			s.bitShift = uint(c.shift)

		case verbatimCommand:
			s.footer = append(s.footer, c.data...)

		case quitCommand:
			if len(s.block) != 0 {
				return nil, ErrIncompleteBlock
			}
			s.exhausted = true
			return s.empty(), nil
		}
	}
}

func (s *Stream) empty() *audio.Frame {
	return audio.EmptyFrame(s.hdr.Channels, s.hdr.BitsPerSample)
}

func (s *Stream) Close() error { return nil }

// channel is the decoder state one channel carries from block to block.
type channel struct {
	means []int32 // means of the last blocks, oldest first
	wrap  []int32 // trailing samples of the previous blocks
}

func newChannel(h Header) *channel {
	var mean int32
	if !h.Signed {
		mean = 1 << (h.BitsPerSample - 1)
	}
	c := &channel{
		means: make([]int32, max(1, h.MeanBlocks)),
		wrap:  make([]int32, max(minWrap, h.MaxLPCOrder)),
	}
	for i := range c.means {
		c.means[i] = mean
	}
	return c
}

// offset is the running mean added back to DIFF0 and QLPC blocks.
func (c *channel) offset(meanBlocks int, shift uint) int32 {
	if meanBlocks == 0 {
		return c.means[0]
	}
	sum := int64(meanBlocks / 2)
	for _, m := range c.means {
		sum += int64(m)
	}
	return int32(sum/int64(meanBlocks)) >> shift
}

// update folds a decoded block, held after the wrap samples in buf, into
// the running mean and the wrap window.
func (c *channel) update(buf []int32, meanBlocks int, shift uint) {
	block := buf[len(c.wrap):]
	if meanBlocks > 0 {
		sum := int64(len(block) / 2)
		for _, v := range block {
			sum += int64(v)
		}
		copy(c.means, c.means[1:])
		c.means[len(c.means)-1] = int32(sum/int64(len(block))) << shift
	}
	copy(c.wrap, buf[len(buf)-len(c.wrap):])
}

// predictor is the linear predictor of one audio command.
type predictor struct {
	coefs []int32
	shift uint
	base  int32
}

var fixedCoefs = [4][]int32{
	fnDiff0: nil,
	fnDiff1: {1},
	fnDiff2: {2, -1},
	fnDiff3: {3, -3, 1},
}

func newPredictor(cmd audioCommand, offset int32) predictor {
	switch cmd.code {
	case fnQLPC:
		return predictor{coefs: cmd.coefs, shift: lpcQuant, base: lpcQuantOffset}
	case fnDiff0:
		return predictor{base: offset}
	}
	return predictor{coefs: fixedCoefs[cmd.code]}
}

// at predicts buf[i] from the samples before it.
func (p predictor) at(buf []int32, i int) int32 {
	sum := p.base
	for j, c := range p.coefs {
		sum += c * buf[i-j-1]
	}
	return sum >> p.shift
}

// decode reconstructs one block of ch and returns it shifted and centred
// for output.
func (s *Stream) decode(cmd audioCommand, ch *channel) ([]int32, error) {
	nwrap := len(ch.wrap)
	if len(cmd.coefs) > nwrap {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidLPC, len(cmd.coefs), nwrap)
	}

	buf := make([]int32, nwrap+s.blockSize)
	copy(buf, ch.wrap)
	offset := ch.offset(s.hdr.MeanBlocks, s.bitShift)

	if cmd.code != fnZero {
		qlpc := cmd.code == fnQLPC
		if qlpc {
			for i := nwrap - len(cmd.coefs); i < nwrap; i++ {
				buf[i] -= offset
			}
		}
		p := newPredictor(cmd, offset)
		for i := nwrap; i < len(buf); i++ {
			res, err := s.r.svar(cmd.energy)
			if err != nil {
				return nil, fmt.Errorf("shorten: residual: %w", err)
			}
			buf[i] = res + p.at(buf, i)
		}
		if qlpc {
			for i := nwrap; i < len(buf); i++ {
				buf[i] += offset
			}
		}
	}
	ch.update(buf, s.hdr.MeanBlocks, s.bitShift)

	out := make([]int32, s.blockSize)
	var centre int32
	if !s.hdr.Signed {
		centre = 1 << (s.hdr.BitsPerSample - 1)
	}
	for i, v := range buf[nwrap:] {
		out[i] = v<<s.bitShift - centre
	}
	return out, nil
}
