// SPDX-License-Identifier: EPL-2.0

package shorten

import (
	"fmt"

	"github.com/ik5/lossless/internal/bitstream"
)

// Field widths of the variable-length codes.
const (
	ulongSize     = 2
	fnSize        = 2
	energySize    = 3
	lpcOrderSize  = 2
	lpcQuant      = 5
	bitShiftSize  = 2
	verbatimSize  = 5
	verbatimByte  = 8
	maxValueWidth = 32
)

// Command codes.
const (
	fnDiff0 = iota
	fnDiff1
	fnDiff2
	fnDiff3
	fnQuit
	fnBlockSize
	fnBitShift
	fnQLPC
	fnZero
	fnVerbatim
)

// varReader decodes Shorten's variable-length integers. overflow is the
// error reported for values wider than 32 bits.
type varReader struct {
	br       *bitstream.Reader
	overflow error
}

// uvar reads a unary high part terminated by a one bit, then n low bits.
func (r varReader) uvar(n uint) (uint32, error) {
	high, err := r.br.Unary(1)
	if err != nil {
		return 0, err
	}
	if n > maxValueWidth || uint64(high) >= 1<<(maxValueWidth-n) {
		return 0, r.overflow
	}
	low, err := r.br.Read(n)
	if err != nil {
		return 0, err
	}
	return uint32(uint64(high)<<n | low), nil
}

// svar reads a signed value folded into an uvar of n+1 low bits.
func (r varReader) svar(n uint) (int32, error) {
	u, err := r.uvar(n + 1)
	if err != nil {
		return 0, err
	}
	if u&1 != 0 {
		return ^int32(u >> 1), nil
	}
	return int32(u >> 1), nil
}

// ulong reads a value whose low-part width is itself coded first.
func (r varReader) ulong() (uint32, error) {
	width, err := r.uvar(ulongSize)
	if err != nil {
		return 0, err
	}
	if width > maxValueWidth {
		return 0, r.overflow
	}
	return r.uvar(uint(width))
}

type command interface {
	fn() uint32
}

// audioCommand decodes one block of one channel. Its residuals follow in the
// bitstream and are read while the block is reconstructed.
type audioCommand struct {
	code   uint32
	energy uint
	coefs  []int32 // QLPC only
}

type blockSizeCommand struct{ size uint32 }

type bitShiftCommand struct{ shift uint32 }

type verbatimCommand struct{ data []byte }

type quitCommand struct{}

func (c audioCommand) fn() uint32   { return c.code }
func (blockSizeCommand) fn() uint32 { return fnBlockSize }
func (bitShiftCommand) fn() uint32  { return fnBitShift }
func (verbatimCommand) fn() uint32  { return fnVerbatim }
func (quitCommand) fn() uint32      { return fnQuit }

// readCommand reads a command code and its parameters.
func readCommand(r varReader) (command, error) {
	code, err := r.uvar(fnSize)
	if err != nil {
		return nil, fmt.Errorf("shorten: command: %w", err)
	}

	switch code {
	case fnDiff0, fnDiff1, fnDiff2, fnDiff3, fnQLPC:
		energy, err := r.uvar(energySize)
		if err != nil {
			return nil, fmt.Errorf("shorten: residual energy: %w", err)
		}
		if energy >= maxValueWidth {
			return nil, fmt.Errorf("%w: %d", ErrInvalidEnergy, energy)
		}
		cmd := audioCommand{code: code, energy: uint(energy)}
		if code != fnQLPC {
			return cmd, nil
		}

		order, err := r.uvar(lpcOrderSize)
		if err != nil {
			return nil, fmt.Errorf("shorten: LPC order: %w", err)
		}
		if order > maxLPCOrder {
			return nil, fmt.Errorf("%w: %d", ErrInvalidLPC, order)
		}
		cmd.coefs = make([]int32, order)
		for i := range cmd.coefs {
			if cmd.coefs[i], err = r.svar(lpcQuant); err != nil {
				return nil, fmt.Errorf("shorten: LPC coefficients: %w", err)
			}
		}
		return cmd, nil

	case fnZero:
		return audioCommand{code: code}, nil

	case fnBlockSize:
		size, err := r.ulong()
		if err != nil {
			return nil, fmt.Errorf("shorten: block size: %w", err)
		}
		return blockSizeCommand{size: size}, nil

	case fnBitShift:
		shift, err := r.uvar(bitShiftSize)
		if err != nil {
			return nil, fmt.Errorf("shorten: bit shift: %w", err)
		}
		return bitShiftCommand{shift: shift}, nil

	case fnVerbatim:
		n, err := r.uvar(verbatimSize)
		if err != nil {
			return nil, fmt.Errorf("shorten: verbatim length: %w", err)
		}
		if n > maxVerbatim {
			return nil, fmt.Errorf("%w: verbatim block of %d bytes", ErrInvalidCommand, n)
		}
		data := make([]byte, n)
		for i := range data {
			b, err := r.uvar(verbatimByte)
			if err != nil {
				return nil, fmt.Errorf("shorten: verbatim data: %w", err)
			}
			data[i] = byte(b)
		}
		return verbatimCommand{data: data}, nil

	case fnQuit:
		return quitCommand{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidCommand, code)
}
