// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/ik5/lossless/audio"
)

// HeaderSize is the length of the canonical header Header produces.
const HeaderSize = 44

// Header returns the canonical 44-byte RIFF/WAVE header for frames frames of
// PCM in the given format.
func Header(f audio.Format, frames int64) []byte {
	width := (f.BitsPerSample + 7) / 8
	blockAlign := f.Channels * width
	dataSize := uint32(frames) * uint32(blockAlign)

	header := make([]byte, HeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(f.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(width*8))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)
	return header
}

// Writer encodes frames into a WAV file. The RIFF and data sizes are
// patched in by Close, which is why the target must be seekable.
type Writer struct {
	enc    *wav.Encoder
	format audio.Format
	frames int64
}

// NewWriter writes the header for format to w. Depths that are not a whole
// number of bytes are stored in the next larger container.
func NewWriter(w io.WriteSeeker, format audio.Format) (*Writer, error) {
	if format.Channels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrFrameLayout, format.Channels, format.SampleRate)
	}
	if format.BitsPerSample < 1 || format.BitsPerSample > 32 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, format.BitsPerSample)
	}

	container := (format.BitsPerSample + 7) / 8 * 8
	wr := &Writer{
		enc:    wav.NewEncoder(w, format.SampleRate, container, format.Channels, formatPCM),
		format: format,
	}
	// An empty write emits the header so a stream with no audio still
	// yields a valid file.
	if err := wr.write(audio.EmptyFrame(format.Channels, format.BitsPerSample)); err != nil {
		return nil, err
	}
	return wr, nil
}

// WriteFrame appends one decoded unit.
func (w *Writer) WriteFrame(f *audio.Frame) error {
	if f.Channels() != w.format.Channels || f.BitsPerSample() != w.format.BitsPerSample {
		return fmt.Errorf("%w: got %d channels of %d bits", ErrFrameLayout, f.Channels(), f.BitsPerSample())
	}
	if f.Len() == 0 {
		return nil
	}
	if err := w.write(f); err != nil {
		return err
	}
	w.frames += int64(f.Len())
	return nil
}

func (w *Writer) write(f *audio.Frame) error {
	buf := f.IntBuffer(w.format.SampleRate)
	shift := (f.BitsPerSample()+7)/8*8 - f.BitsPerSample()
	for i, v := range buf.Data {
		v <<= shift
		if w.enc.BitDepth == 8 {
			v += 128
		}
		buf.Data[i] = v
	}
	buf.SourceBitDepth = int(w.enc.BitDepth)
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("wav: writing samples: %w", err)
	}
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 { return w.frames }

// Close finalizes the header sizes. It does not close the underlying file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: finalizing header: %w", err)
	}
	return nil
}

// WriteFrames writes a complete WAV file holding frames.
func WriteFrames(w io.WriteSeeker, format audio.Format, frames ...*audio.Frame) error {
	wr, err := NewWriter(w, format)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := wr.WriteFrame(f); err != nil {
			return err
		}
	}
	return wr.Close()
}
