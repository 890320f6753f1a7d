// SPDX-License-Identifier: EPL-2.0

package lossless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ik5/lossless/audio"
	"github.com/ik5/lossless/formats/wav"
	"golang.org/x/sync/errgroup"
)

// Result describes one converted file.
type Result struct {
	Input  string
	Output string
	// Format of the written WAV data.
	Format audio.Format
	// Frames is the number of PCM frames written.
	Frames int64
}

// OutputPath returns the WAV file ConvertFiles writes for input: its base
// name with a .wav extension, inside outDir.
func OutputPath(outDir, input string) string {
	base := filepath.Base(input)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".wav")
}

// Converter writes decoded files as WAV, optionally down-mixed to mono or
// resampled on the way.
type Converter struct {
	Registry *audio.Registry
	// OutDir receives the WAV files, named by OutputPath.
	OutDir string
	// Workers bounds the parallel conversions, one per CPU when not positive.
	Workers int
	// SampleRate of the output, 0 keeps the source rate.
	SampleRate int
	// Mono averages all channels into one.
	Mono bool
}

// Convert decodes input and writes it to output as WAV. A partial output is
// removed when decoding fails or ctx is cancelled.
func Convert(ctx context.Context, reg *audio.Registry, input, output string) (Result, error) {
	c := Converter{Registry: reg}
	return c.convert(ctx, input, output)
}

func (c *Converter) convert(ctx context.Context, input, output string) (res Result, err error) {
	res = Result{Input: input, Output: output}

	f, err := OpenFile(c.Registry, input)
	if err != nil {
		return res, err
	}
	s := audio.Process(f, c.SampleRate, c.Mono)
	defer s.Close()
	res.Format = s.Format()

	out, err := os.Create(output)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(output)
		}
	}()

	w, err := wav.NewWriter(out, res.Format)
	if err != nil {
		return res, fmt.Errorf("%s: %w", output, err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		frame, err := s.Read(0)
		if err != nil {
			return res, fmt.Errorf("%s: %w", input, err)
		}
		if frame.Len() == 0 {
			break
		}
		if err := w.WriteFrame(frame); err != nil {
			return res, fmt.Errorf("%s: %w", output, err)
		}
	}
	res.Frames = w.Frames()
	return res, w.Close()
}

// ConvertFiles converts every input to WAV in outDir using at most workers
// goroutines, or one per CPU when workers is not positive. Each file gets
// its own decoder. The first failure cancels the remaining conversions and
// is returned. Results are in input order.
func ConvertFiles(ctx context.Context, reg *audio.Registry, outDir string, workers int, inputs ...string) ([]Result, error) {
	c := Converter{Registry: reg, OutDir: outDir, Workers: workers}
	return c.Run(ctx, inputs...)
}

// Run converts every input the way ConvertFiles does, applying the
// post-processing c asks for.
func (c *Converter) Run(ctx context.Context, inputs ...string) ([]Result, error) {
	if c.SampleRate < 0 {
		return nil, fmt.Errorf("lossless: invalid sample rate %d", c.SampleRate)
	}
	if err := checkOutputs(c.OutDir, inputs); err != nil {
		return nil, err
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			res, err := c.convert(ctx, input, OutputPath(c.OutDir, input))
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func checkOutputs(outDir string, inputs []string) error {
	seen := make(map[string]string, len(inputs))
	var errs []error
	for _, input := range inputs {
		out, err := filepath.Abs(OutputPath(outDir, input))
		if err != nil {
			return err
		}
		in, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		if out == in {
			errs = append(errs, fmt.Errorf("%w: %s would overwrite itself", ErrOutputCollision, input))
		}
		if prev, ok := seen[out]; ok {
			errs = append(errs, fmt.Errorf("%w: %s and %s both map to %s", ErrOutputCollision, prev, input, out))
		}
		seen[out] = input
	}
	return errors.Join(errs...)
}
