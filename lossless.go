// SPDX-License-Identifier: EPL-2.0

package lossless

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/formats/aiff"
	"github.com/ik5/lossless/formats/alac"
	"github.com/ik5/lossless/formats/flac"
	"github.com/ik5/lossless/formats/mp3"
	"github.com/ik5/lossless/formats/shorten"
	"github.com/ik5/lossless/formats/vorbis"
	"github.com/ik5/lossless/formats/wav"
	"github.com/ik5/lossless/formats/wavpack"
)

// Format keys used by NewRegistry and returned by Detect.
const (
	FormatFLAC    = "flac"
	FormatALAC    = "m4a"
	FormatShorten = "shn"
	FormatWavPack = "wv"
	FormatWAV     = "wav"
	FormatAIFF    = "aiff"
	FormatMP3     = "mp3"
	FormatVorbis  = "ogg"
)

// SniffLen is the number of leading bytes Detect needs once any ID3v2 tag
// has been skipped.
const SniffLen = 12

const id3HeaderLen = 10

// NewRegistry returns a registry holding every decoder in this module under
// its usual file extensions.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(FormatFLAC, flac.Decoder{})
	reg.Register(FormatALAC, alac.Decoder{})
	reg.Register("alac", alac.Decoder{})
	reg.Register(FormatShorten, shorten.Decoder{})
	reg.Register(FormatWavPack, wavpack.Decoder{})
	reg.Register(FormatWAV, wav.Decoder{})
	reg.Register(FormatAIFF, aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register(FormatMP3, mp3.Decoder{})
	reg.Register(FormatVorbis, vorbis.Decoder{})
	return reg
}

// Detect identifies a format from the first bytes of a file. An ID3v2 tag
// is skipped when header holds all of it; a tag that runs past the end of
// header is reported as MP3.
func Detect(header []byte) (string, bool) {
	if bytes.HasPrefix(header, []byte("ID3")) {
		size, ok := id3Size(header)
		if !ok {
			return "", false
		}
		if len(header) < size+4 {
			return FormatMP3, true
		}
		return Detect(header[size:])
	}

	switch {
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC, true
	case bytes.HasPrefix(header, []byte("ajkg")):
		return FormatShorten, true
	case bytes.HasPrefix(header, []byte("wvpk")):
		return FormatWavPack, true
	case bytes.HasPrefix(header, []byte("OggS")):
		return FormatVorbis, true
	}
	if len(header) >= 12 {
		switch {
		case string(header[0:4]) == "RIFF" && string(header[8:12]) == "WAVE":
			return FormatWAV, true
		case string(header[0:4]) == "FORM" && (string(header[8:12]) == "AIFF" || string(header[8:12]) == "AIFC"):
			return FormatAIFF, true
		}
	}
	if len(header) >= 8 && string(header[4:8]) == "ftyp" {
		return FormatALAC, true
	}
	// MPEG audio frame sync with layer III.
	if len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 && header[1]&0x06 == 0x02 {
		return FormatMP3, true
	}
	return "", false
}

// id3Size returns the total length of the ID3v2 tag at the start of b,
// including its header and optional footer.
func id3Size(b []byte) (int, bool) {
	if len(b) < id3HeaderLen {
		return 0, false
	}
	var size int
	for _, c := range b[6:10] {
		if c&0x80 != 0 {
			return 0, false
		}
		size = size<<7 | int(c)
	}
	size += id3HeaderLen
	if b[5]&0x10 != 0 {
		size += id3HeaderLen
	}
	return size, true
}

// fileStream closes the file along with the stream.
type fileStream struct {
	audio.Stream
	f *os.File
}

func (s *fileStream) Close() error {
	return errors.Join(s.Stream.Close(), s.f.Close())
}

// OpenFile opens path with the decoder registered for its extension, or,
// failing that, for the format Detect finds in its leading bytes. Closing
// the returned stream closes the file.
func OpenFile(reg *audio.Registry, path string) (audio.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, ok := reg.Get(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
	if !ok {
		key, err := sniff(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if dec, ok = reg.Get(key); !ok {
			f.Close()
			return nil, fmt.Errorf("%w: %s (%s is not registered)", ErrUnknownFormat, path, key)
		}
	}

	s, err := dec.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileStream{Stream: s, f: f}, nil
}

// sniff detects the format of f, looking past an ID3v2 tag, without moving
// its read offset.
func sniff(f *os.File) (string, error) {
	head, err := readAt(f, 0, id3HeaderLen+SniffLen)
	if err != nil {
		return "", err
	}
	if size, ok := id3Size(head); ok && bytes.HasPrefix(head, []byte("ID3")) {
		if head, err = readAt(f, int64(size), SniffLen); err != nil {
			return "", err
		}
	}

	key, ok := Detect(head)
	if !ok {
		return "", ErrUnknownFormat
	}
	return key, nil
}

func readAt(f *os.File, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	n, err := f.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// DecodeAll drains s and returns every decoded unit joined into one frame.
// It does not close s.
func DecodeAll(s audio.Stream) (*audio.Frame, error) {
	return audio.ReadAll(s)
}
