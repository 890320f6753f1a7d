// SPDX-License-Identifier: EPL-2.0

package alac

import (
	"encoding/binary"
	"math/bits"

	"github.com/ik5/lossless/internal/audiotest"
)

// Test payload builder. Each helper produces the bits the matching decode
// step consumes; the predictor runs in the encoder direction.

var testConfig = Config{
	FrameLength: 64,
	BitDepth:    16,
	PB:          40,
	MB:          10,
	KB:          14,
	Channels:    2,
	MaxRun:      255,
	SampleRate:  44100,
}

func writeRice(bw *audiotest.BitWriter, n, k, m uint32, escapeBits uint) {
	if k <= 1 {
		if n >= maxPrefix || (k == 0 && n != 0) {
			bw.Bits(1<<maxPrefix-1, maxPrefix).Bits(uint64(n), uint8(escapeBits))
			return
		}
		bw.Unary(int(n), 0)
		return
	}
	q, r := n/m, n%m
	if q >= maxPrefix {
		bw.Bits(1<<maxPrefix-1, maxPrefix).Bits(uint64(n), uint8(escapeBits))
		return
	}
	bw.Unary(int(q), 0)
	if r == 0 {
		bw.Bits(0, uint8(k-1))
		return
	}
	bw.Bits(uint64(r+1), uint8(k))
}

func foldResidual(x int32) uint32 {
	if x >= 0 {
		return uint32(x) << 1
	}
	return uint32(-x)<<1 - 1
}

func writeResiduals(bw *audiotest.BitWriter, res []int32, p riceParams, sampleBits uint) {
	mb := p.mb0
	var zmode uint32
	for i := 0; i < len(res); {
		k := min(uint32(bits.Len32(mb>>historyScale+3)-1), p.kb)
		m := uint32(1)<<k - 1

		v := foldResidual(res[i])
		n := v - zmode
		writeRice(bw, n, k, m, sampleBits)
		i++

		mb = p.pb*v + mb - (p.pb*mb)>>historyScale
		if n > maxRunLength {
			mb = maxRunLength
		}
		zmode = 0

		if mb < runThreshold && i < len(res) {
			run := 0
			for i+run < len(res) && res[i+run] == 0 && run < maxRunLength {
				run++
			}
			k := max(bits.LeadingZeros32(mb)-24+int((mb+16)>>6), 0)
			m := (uint32(1)<<k - 1) & p.wb
			writeRice(bw, uint32(run), uint32(k), m, runEscapeLen)
			i += run
			zmode = 1
			if run >= maxRunLength {
				zmode = 0
			}
			mb = 0
		}
	}
}

// predictResiduals runs the adaptive LPC filter forward over y, the way an
// encoder does, and returns the residuals. It adapts its own copy of the
// coefficients and shares no code with the decoder. Order 31 is a plain
// first difference.
func predictResiduals(y []int32, c Coefs, order int, denShift, sampleBits uint) []int32 {
	shift := 32 - sampleBits
	trunc := func(v int32) int32 { return v << shift >> shift }
	signOf := func(v int32) int32 {
		if v > 0 {
			return 1
		}
		if v < 0 {
			return -1
		}
		return 0
	}

	res := make([]int32, len(y))
	if len(y) == 0 {
		return res
	}
	if order == 0 {
		copy(res, y)
		return res
	}
	res[0] = y[0]
	warm := len(y)
	if order != 31 {
		warm = min(order+1, len(y))
	}
	for j := 1; j < warm; j++ {
		res[j] = trunc(y[j] - y[j-1])
	}
	if order == 31 {
		return res
	}

	var half int32
	if denShift > 0 {
		half = 1 << (denShift - 1)
	}
	coefs := c
	for j := order + 1; j < len(y); j++ {
		top := y[j-order-1]
		var sum int32
		for k := range order {
			sum -= int32(coefs[k]) * (top - y[j-1-k])
		}
		del := trunc(y[j] - top - (sum+half)>>denShift)
		res[j] = del

		left := del
		switch {
		case del > 0:
			for k := order - 1; k >= 0; k-- {
				dd := top - y[j-1-k]
				sg := signOf(dd)
				coefs[k] -= int16(sg)
				left -= int32(order-k) * ((sg * dd) >> denShift)
				if left <= 0 {
					break
				}
			}
		case del < 0:
			for k := order - 1; k >= 0; k-- {
				dd := top - y[j-1-k]
				sg := signOf(dd)
				coefs[k] += int16(sg)
				left -= int32(order-k) * ((-sg * dd) >> denShift)
				if left >= 0 {
					break
				}
			}
		}
	}
	return res
}

type channelLayout struct {
	mode     int
	order    int
	denShift uint
	coefs    Coefs
	modifier uint32
}

type elementLayout struct {
	tag        int
	samples    [][]int32 // decoded output per channel
	partial    bool
	escape     bool
	shiftBytes int
	mixBits    uint
	mixRes     int8
	channels   []channelLayout // defaults to mode 0, order 0
}

func writeElement(bw *audiotest.BitWriter, cfg Config, e elementLayout) {
	n := len(e.samples)
	count := len(e.samples[0])

	bw.Bits(uint64(e.tag), 3).Bits(0, 4).Bits(0, 12)
	bw.Bool(e.partial).Bits(uint64(e.shiftBytes), 2).Bool(e.escape)
	if e.partial {
		bw.Bits(uint64(count), 32)
	}

	if e.escape {
		for i := range count {
			for c := range n {
				bw.Signed(int64(e.samples[c][i]), cfg.BitDepth)
			}
		}
		return
	}

	shift := uint(e.shiftBytes) * 8
	high := make([][]int32, n)
	for c := range high {
		high[c] = make([]int32, count)
		for i, s := range e.samples[c] {
			high[c][i] = s >> shift
		}
	}
	if n == 2 && e.mixRes != 0 {
		l, r := high[0], high[1]
		u, v := make([]int32, count), make([]int32, count)
		for i := range count {
			v[i] = l[i] - r[i]
			u[i] = r[i] + (int32(e.mixRes)*v[i])>>e.mixBits
		}
		high = [][]int32{u, v}
	}

	bw.Bits(uint64(e.mixBits), 8).Signed(int64(e.mixRes), 8)
	layouts := e.channels
	if layouts == nil {
		layouts = make([]channelLayout, n)
	}
	for _, h := range layouts {
		modifier := h.modifier
		if modifier == 0 {
			modifier = 4
		}
		bw.Bits(uint64(h.mode), 4).Bits(uint64(h.denShift), 4)
		bw.Bits(uint64(modifier), 3).Bits(uint64(h.order), 5)
		for k := range h.order {
			bw.Signed(int64(h.coefs[k]), 16)
		}
	}

	if shift > 0 {
		for i := range count {
			for c := range n {
				bw.Bits(uint64(e.samples[c][i]), uint8(shift))
			}
		}
	}

	sampleBits := uint(cfg.BitDepth) - shift + uint(n-1)
	for c, h := range layouts {
		res := predictResiduals(high[c], h.coefs, h.order, h.denShift, sampleBits)
		if h.mode == modeTwoStage {
			res = predictResiduals(res, Coefs{}, 31, 0, sampleBits)
		}
		modifier := h.modifier
		if modifier == 0 {
			modifier = 4
		}
		writeResiduals(bw, res, newRiceParams(cfg, modifier), sampleBits)
	}
}

// frameset encodes elements followed by the END tag.
func frameset(cfg Config, elements ...elementLayout) []byte {
	bw := audiotest.NewBitWriter()
	for _, e := range elements {
		writeElement(bw, cfg, e)
	}
	bw.Bits(tagEND, 3)
	return bw.Bytes()
}

func joinBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func atomBytes(typ string, body ...[]byte) []byte {
	payload := joinBytes(body...)
	out := binary.BigEndian.AppendUint32(nil, uint32(atomHeaderSize+len(payload)))
	out = append(out, typ...)
	return append(out, payload...)
}

func largeAtomBytes(typ string, payload []byte) []byte {
	out := binary.BigEndian.AppendUint32(nil, 1)
	out = append(out, typ...)
	out = binary.BigEndian.AppendUint64(out, uint64(largeHeaderSize+len(payload)))
	return append(out, payload...)
}

type m4aLayout struct {
	cfg        Config
	duration   uint64
	payload    []byte
	mdatFirst  bool
	mdhdV1     bool
	largeMdat  bool
	trailing   []byte // atoms after mdat
	extraTrack bool   // a non-ALAC track ahead of the audio one
}

func mediaHeader(version int, timescale uint32, duration uint64) []byte {
	b := []byte{byte(version), 0, 0, 0}
	if version == 1 {
		b = append(b, make([]byte, 16)...)
		b = binary.BigEndian.AppendUint32(b, timescale)
		b = binary.BigEndian.AppendUint64(b, duration)
	} else {
		b = append(b, make([]byte, 8)...)
		b = binary.BigEndian.AppendUint32(b, timescale)
		b = binary.BigEndian.AppendUint32(b, uint32(duration))
	}
	return atomBytes("mdhd", b, []byte{0x55, 0xC4, 0, 0})
}

func audioTrack(format string, cfg Config, mdhd []byte) []byte {
	entry := make([]byte, sampleEntrySize)
	binary.BigEndian.PutUint16(entry[6:8], 1) // data reference index
	binary.BigEndian.PutUint16(entry[16:18], uint16(cfg.Channels))
	binary.BigEndian.PutUint16(entry[18:20], uint16(cfg.BitDepth))
	binary.BigEndian.PutUint32(entry[24:28], cfg.SampleRate<<16)

	var cookie []byte
	if format == "alac" {
		cookie = atomBytes("alac", make([]byte, fullAtomHeaderSize), cfg.Bytes())
	}
	stsd := atomBytes("stsd",
		make([]byte, fullAtomHeaderSize), binary.BigEndian.AppendUint32(nil, 1),
		atomBytes(format, entry, cookie))

	return atomBytes("trak",
		atomBytes("tkhd", make([]byte, 84)),
		atomBytes("mdia",
			mdhd,
			atomBytes("hdlr", make([]byte, 4), []byte("mhlrsoun"), make([]byte, 13)),
			atomBytes("minf",
				atomBytes("smhd", make([]byte, 8)),
				atomBytes("stbl", stsd, atomBytes("stts", make([]byte, 8))))))
}

func m4aFile(s m4aLayout) []byte {
	version := 0
	if s.mdhdV1 {
		version = 1
	}
	mdhd := mediaHeader(version, s.cfg.SampleRate, s.duration)

	var tracks []byte
	if s.extraTrack {
		tracks = audioTrack("mp4a", s.cfg, mdhd)
	}
	moov := atomBytes("moov",
		atomBytes("mvhd", make([]byte, 100)),
		tracks,
		audioTrack("alac", s.cfg, mdhd))

	mdat := atomBytes("mdat", s.payload)
	if s.largeMdat {
		mdat = largeAtomBytes("mdat", s.payload)
	}

	ftyp := atomBytes("ftyp", []byte("M4A "), make([]byte, 4), []byte("M4A mp42isom"))
	if s.mdatFirst {
		return joinBytes(ftyp, mdat, s.trailing, moov)
	}
	return joinBytes(ftyp, moov, mdat, s.trailing)
}
