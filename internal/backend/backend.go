// Package backend renders LIR into one of three final forms: portable C
// source, symbolic x86_64 assembly, or LLVM IR text.
package backend

import (
	"io"

	"bfoptc/internal/compileopts"
	"bfoptc/internal/lir"
)

// Backend takes a finished LIR program plus the options that shaped it
// (cell width, tape size) and writes the corresponding target text to w.
type Backend interface {
	Emit(w io.Writer, prog *lir.Program, opts compileopts.Options) error
}

func cellBytes(w compileopts.CellWidth) int {
	switch w {
	case compileopts.Cell8:
		return 1
	case compileopts.Cell16:
		return 2
	case compileopts.Cell32:
		return 4
	case compileopts.Cell64:
		return 8
	}
	return 1
}
