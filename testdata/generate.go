// SPDX-License-Identifier: EPL-2.0

//go:build ignore

// This script generates reference fixtures for the ALAC, Shorten and
// WavPack decoders. Run from the module root with:
//
//	go run testdata/generate.go
//
// Requirements: ffmpeg, shorten and wavpack must be installed and available
// in PATH. Each fixture is written next to the WAV it was encoded from:
//
//	formats/alac/testdata/<name>.m4a     ffmpeg -c:a alac
//	formats/shorten/testdata/<name>.shn  shorten
//	formats/wavpack/testdata/<name>.wv   wavpack
//
// The decoder tests compare every fixture sample by sample with its WAV and
// skip when no fixtures are present.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/formats/wav"
	"github.com/ik5/lossless/internal/audiotest"
)

const frames = 20000

type source struct {
	name  string
	rate  int
	frame *audio.Frame
}

type fixture struct {
	dir  string
	ext  string
	src  string
	args func(in, out string) []string
	tool string
}

func sources() []source {
	return []source{
		{"mono_16", 44100, audio.NewFrame(16, audiotest.Sine(frames, 12000, 97))},
		{"stereo_16", 44100, audio.NewFrame(16,
			audiotest.Sine(frames, 9000, 101),
			audiotest.Sine(frames, 7000, 67))},
		{"stereo_16_noise", 48000, audio.NewFrame(16,
			audiotest.Noise(frames, 16, 1),
			audiotest.Noise(frames, 16, 2))},
		{"stereo_24", 96000, audio.NewFrame(24,
			audiotest.Sine(frames, 3000000, 113),
			audiotest.Noise(frames, 24, 3))},
		{"mono_8", 22050, audio.NewFrame(8, audiotest.Sine(frames, 100, 31))},
	}
}

func fixtures() []fixture {
	return []fixture{
		// ALAC: the ffmpeg encoder uses adaptive prediction and stereo
		// mixing on every frame.
		{"formats/alac/testdata", "m4a", "mono_16", ffmpegALAC, "ffmpeg"},
		{"formats/alac/testdata", "m4a", "stereo_16", ffmpegALAC, "ffmpeg"},
		{"formats/alac/testdata", "m4a", "stereo_16_noise", ffmpegALAC, "ffmpeg"},
		{"formats/alac/testdata", "m4a", "stereo_24", ffmpegALAC, "ffmpeg"},

		// Shorten: default DIFF commands and QLPC with order up to 16.
		{"formats/shorten/testdata", "shn", "mono_16", shortenArgs(), "shorten"},
		{"formats/shorten/testdata", "shn", "stereo_16", shortenArgs("-p", "16"), "shorten"},
		{"formats/shorten/testdata", "shn", "mono_8", shortenArgs(), "shorten"},

		// WavPack: fast, normal, high and very high modes cover terms
		// 17 and 18, the positive terms and cross terms -1 to -3. -m
		// stores the MD5 the decoder verifies.
		{"formats/wavpack/testdata", "wv", "mono_16", wavpackArgs(), "wavpack"},
		{"formats/wavpack/testdata", "wv", "stereo_16", wavpackArgs("-f"), "wavpack"},
		{"formats/wavpack/testdata", "wv", "stereo_16_noise", wavpackArgs("-h"), "wavpack"},
		{"formats/wavpack/testdata", "wv", "stereo_24", wavpackArgs("-hh"), "wavpack"},
		{"formats/wavpack/testdata", "wv", "mono_8", wavpackArgs("-x"), "wavpack"},
	}
}

func ffmpegALAC(in, out string) []string {
	return []string{"-y", "-loglevel", "error", "-i", in, "-c:a", "alac", out}
}

func shortenArgs(opts ...string) func(in, out string) []string {
	return func(in, out string) []string {
		return append(append([]string{}, opts...), in, out)
	}
}

func wavpackArgs(opts ...string) func(in, out string) []string {
	return func(in, out string) []string {
		return append(append([]string{"-q", "-y", "-m"}, opts...), in, "-o", out)
	}
}

func writeSource(path string, s source) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	format := audio.Format{SampleRate: s.rate, Channels: s.frame.Channels(), BitsPerSample: s.frame.BitsPerSample()}
	if err := wav.WriteFrames(f, format, s.frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	byName := make(map[string]source)
	for _, s := range sources() {
		byName[s.name] = s
	}

	failed := 0
	for _, fx := range fixtures() {
		if _, err := exec.LookPath(fx.tool); err != nil {
			slog.Warn("Skipping fixture, encoder not found", "tool", fx.tool, "fixture", fx.src)
			continue
		}
		if err := os.MkdirAll(fx.dir, 0o755); err != nil {
			slog.Error("Failed to create directory", "dir", fx.dir, "error", err)
			os.Exit(1)
		}

		in := filepath.Join(fx.dir, fx.src+".wav")
		out := filepath.Join(fx.dir, fmt.Sprintf("%s.%s", fx.src, fx.ext))
		if err := writeSource(in, byName[fx.src]); err != nil {
			slog.Error("Failed to write source", "path", in, "error", err)
			os.Exit(1)
		}

		cmd := exec.Command(fx.tool, fx.args(in, out)...)
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			slog.Error("Encoder failed", "tool", fx.tool, "output", out, "error", err)
			os.Remove(in)
			failed++
			continue
		}
		slog.Info("Generated", "fixture", out)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
