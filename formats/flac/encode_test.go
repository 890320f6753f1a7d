// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"crypto/md5"
	"math/bits"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/internal/audiotest"
	"github.com/ik5/lossless/internal/checksum"
)

// Test stream builder. It only emits what the decoder tests need: explicit
// 16-bit block sizes, the STREAMINFO sample rate and one residual partition
// per subframe.

type subframe func(bw *audiotest.BitWriter, bps int)

func constantSubframe(v int64) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		bw.Bits(0, 1).Bits(subframeConstant, 6).Bits(0, 1)
		bw.Signed(v, uint8(bps))
	}
}

func verbatimSubframe(samples []int64) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		bw.Bits(0, 1).Bits(subframeVerbatim, 6).Bits(0, 1)
		for _, s := range samples {
			bw.Signed(s, uint8(bps))
		}
	}
}

// wastedSubframe writes samples that all share `wasted` low zero bits.
func wastedSubframe(samples []int64, wasted int) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		bw.Bits(0, 1).Bits(subframeVerbatim, 6).Bits(1, 1)
		bw.Unary(wasted-1, 1)
		for _, s := range samples {
			bw.Signed(s>>wasted, uint8(bps-wasted))
		}
	}
}

func fixedSubframe(samples []int64, order int) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		bw.Bits(0, 1).Bits(uint64(subframeFixed+order), 6).Bits(0, 1)
		for _, s := range samples[:order] {
			bw.Signed(s, uint8(bps))
		}
		res := make([]int64, len(samples))
		copy(res, samples)
		for i := len(res) - 1; i >= order; i-- {
			res[i] = samples[i] - fixedPrediction(samples, i, order)
		}
		writeResidual(bw, res[order:], false)
	}
}

func fixedPrediction(s []int64, i, order int) int64 {
	switch order {
	case 1:
		return s[i-1]
	case 2:
		return 2*s[i-1] - s[i-2]
	case 3:
		return 3*s[i-1] - 3*s[i-2] + s[i-3]
	case 4:
		return 4*s[i-1] - 6*s[i-2] + 4*s[i-3] - s[i-4]
	}
	return 0
}

func lpcSubframe(samples []int64, coeffs []int64, precision int, shift int) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		order := len(coeffs)
		bw.Bits(0, 1).Bits(uint64(subframeLPC+order-1), 6).Bits(0, 1)
		for _, s := range samples[:order] {
			bw.Signed(s, uint8(bps))
		}
		bw.Bits(uint64(precision-1), 4).Signed(int64(shift), 5)
		for _, c := range coeffs {
			bw.Signed(c, uint8(precision))
		}
		res := make([]int64, 0, len(samples)-order)
		for i := order; i < len(samples); i++ {
			var sum int64
			for j, c := range coeffs {
				sum += c * samples[i-1-j]
			}
			res = append(res, samples[i]-sum>>shift)
		}
		writeResidual(bw, res, false)
	}
}

// escapedSubframe is a FIXED order 0 subframe whose single partition is
// stored as raw signed values.
func escapedSubframe(samples []int64, width int) subframe {
	return func(bw *audiotest.BitWriter, bps int) {
		bw.Bits(0, 1).Bits(subframeFixed, 6).Bits(0, 1)
		writeResidual(bw, samples, true, width)
	}
}

func writeResidual(bw *audiotest.BitWriter, res []int64, escape bool, width ...int) {
	bw.Bits(1, 2) // 5-bit parameters
	bw.Bits(0, 4) // one partition
	if escape {
		bw.Bits(31, 5).Bits(uint64(width[0]), 5)
		for _, r := range res {
			bw.Signed(r, uint8(width[0]))
		}
		return
	}

	var maxZ uint64
	for _, r := range res {
		maxZ = max(maxZ, zigzag(r))
	}
	k := uint8(max(bits.Len64(maxZ)-2, 0))
	bw.Bits(uint64(k), 5)
	for _, r := range res {
		z := zigzag(r)
		bw.Unary(int(z>>k), 1)
		bw.Bits(z, k)
	}
}

func zigzag(v int64) uint64 { return uint64(v<<1) ^ uint64(v>>63) }

// frameHeaderBytes encodes a frame header followed by its CRC-8.
func frameHeaderBytes(number uint64, assignment, blockSize, bps int) []byte {
	bpsCode := 0
	for code, size := range sampleSizes {
		if size == bps {
			bpsCode = code
		}
	}

	bw := audiotest.NewBitWriter()
	bw.Bits(syncCode, 14).Bits(0, 1).Bits(0, 1)
	bw.Bits(7, 4) // 16-bit block size follows
	bw.Bits(0, 4) // sample rate from STREAMINFO
	bw.Bits(uint64(assignment), 4)
	bw.Bits(uint64(bpsCode), 3)
	bw.Bits(0, 1)
	writeUTF8(bw, number)
	bw.Bits(uint64(blockSize-1), 16)
	header := bw.Bytes()
	crc8 := checksum.NewCRC8()
	for _, b := range header {
		crc8.Update(b)
	}
	return append(header, crc8.Sum())
}

func writeUTF8(bw *audiotest.BitWriter, v uint64) {
	if v < 0x80 {
		bw.Bits(v, 8)
		return
	}
	n := 2
	for v >= 1<<(5*n+1) {
		n++
	}
	bw.Bits(uint64(0xFF00>>n)&0xFF|v>>(6*(n-1)), 8)
	for i := n - 2; i >= 0; i-- {
		bw.Bits(0x80|(v>>(6*i))&0x3F, 8)
	}
}

type frameLayout struct {
	assignment int
	bps        int
	subs       []subframe
	blockSize  int
}

// encodeFrame encodes a whole frame: header, subframes and CRC-16 footer.
func encodeFrame(number uint64, f frameLayout) []byte {
	header := frameHeaderBytes(number, f.assignment, f.blockSize, f.bps)
	bw := audiotest.NewBitWriter()
	bw.Raw(header)
	for c, sub := range f.subs {
		bps := f.bps
		if isSideChannel(f.assignment, c) {
			bps++
		}
		sub(bw, bps)
	}
	body := bw.Bytes()
	crc16 := checksum.NewCRC16()
	for _, b := range body {
		crc16.Update(b)
	}
	sum := crc16.Sum()
	return append(body, byte(sum>>8), byte(sum))
}

// streamBytes assembles a stream: signature, STREAMINFO, an optional
// PADDING block and the given frames.
func streamBytes(info StreamInfo, padding int, frames ...[]byte) []byte {
	bw := audiotest.NewBitWriter()
	bw.Raw([]byte("fLaC"))
	bw.Bool(padding == 0).Bits(blockStreamInfo, 7).Bits(streamInfoSize, 24)
	bw.Bits(uint64(info.MinBlockSize), 16).Bits(uint64(info.MaxBlockSize), 16)
	bw.Bits(uint64(info.MinFrameSize), 24).Bits(uint64(info.MaxFrameSize), 24)
	bw.Bits(uint64(info.SampleRate), 20)
	bw.Bits(uint64(info.Channels-1), 3).Bits(uint64(info.BitsPerSample-1), 5)
	bw.Bits(info.TotalSamples, 36)
	bw.Raw(info.MD5[:])
	if padding > 0 {
		bw.Bool(true).Bits(1, 7).Bits(uint64(padding), 24)
		bw.Raw(make([]byte, padding))
	}
	out := bw.Bytes()
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// pcmMD5 is the digest FLAC stores for the given decoded audio.
func pcmMD5(frame *audio.Frame) [16]byte {
	return md5.Sum(frame.AppendPCM(nil, true))
}

func int64s(v []int32) []int64 {
	out := make([]int64, len(v))
	for i, s := range v {
		out[i] = int64(s)
	}
	return out
}
