// Package lirinterp is a reference interpreter for LIR, used only from
// _test.go files to check that every optimizer's lowering of a given AST
// produces observably identical behavior (the same bytes read from stdin,
// in the same order, and the same bytes written to stdout), regardless of
// which of the four lowering strategies produced the LIR.
package lirinterp

import (
	"fmt"

	"bfoptc/internal/lir"
)

// Result is the observable outcome of running a Program to completion.
type Result struct {
	Output []byte
	// ReadCount is how many Input bytes the program consumed, for tests
	// that feed a shorter input than the program could ask for.
	ReadCount int
}

// Run executes prog against a tape of tapeSize cells (cursor starting at
// the middle, matching every backend's convention), modulo cellMod for
// every arithmetic op, consuming stdin from input and collecting stdout
// into Result.Output. It has no notion of optimization: it is a literal,
// unoptimized execution of whatever instruction list it is given, which is
// exactly what makes it suitable as an independent check on every
// optimizer's output.
func Run(prog *lir.Program, tapeSize int, cellMod int64, input []byte) (Result, error) {
	tape := make([]int64, tapeSize)
	cursor := tapeSize / 2
	regs := make(map[uint32]int64)
	bufs := make(map[string][]byte)
	for _, instr := range prog.Instrs {
		if db, ok := instr.(lir.DeclareBssBuf); ok {
			bufs[db.Name] = make([]byte, db.Size)
		}
	}
	labels := make(map[string]int)
	for i, instr := range prog.Instrs {
		if l, ok := instr.(lir.Label); ok {
			labels[l.Name] = i
		}
	}

	mod := func(v int64) int64 {
		v %= cellMod
		if v < 0 {
			v += cellMod
		}
		return v
	}

	read := func(rv lir.RVal) int64 {
		switch v := rv.(type) {
		case lir.Imm:
			return int64(v)
		case lir.Reg:
			return regs[uint32(v)]
		case lir.Tape:
			idx := cursor + int(v)
			if idx < 0 || idx >= len(tape) {
				return 0
			}
			return tape[idx]
		case lir.Buf:
			b := bufs[v.Name]
			if int(v.Index) >= len(b) {
				return 0
			}
			return int64(b[v.Index])
		}
		return 0
	}

	write := func(lv lir.LVal, val int64) {
		switch v := lv.(type) {
		case lir.Reg:
			regs[uint32(v)] = val
		case lir.Tape:
			idx := cursor + int(v)
			if idx >= 0 && idx < len(tape) {
				tape[idx] = mod(val)
			}
		case lir.Buf:
			b := bufs[v.Name]
			if int(v.Index) < len(b) {
				b[v.Index] = byte(mod(val))
			}
		}
	}

	var res Result
	ip := 0
	for ip < len(prog.Instrs) {
		switch v := prog.Instrs[ip].(type) {
		case lir.Shift:
			cursor += int(v.Delta)
		case lir.Mov:
			write(v.Dst, read(v.Src))
		case lir.Add:
			write(v.Dst, mod(read(v.A)+read(v.B)))
		case lir.Sub:
			write(v.Dst, mod(read(v.A)-read(v.B)))
		case lir.Mul:
			write(v.Dst, mod(read(v.A)*read(v.B)))
		case lir.Label:
		case lir.Jp:
			target, ok := labels[v.Target]
			if !ok {
				return res, fmt.Errorf("lirinterp: undefined label %q", v.Target)
			}
			ip = target
			continue
		case lir.Jz:
			if read(v.Cond) == 0 {
				target, ok := labels[v.Target]
				if !ok {
					return res, fmt.Errorf("lirinterp: undefined label %q", v.Target)
				}
				ip = target
				continue
			}
		case lir.Jnz:
			if read(v.Cond) != 0 {
				target, ok := labels[v.Target]
				if !ok {
					return res, fmt.Errorf("lirinterp: undefined label %q", v.Target)
				}
				ip = target
				continue
			}
		case lir.DeclareBssBuf:
		case lir.Input:
			b := bufs[v.Buf]
			for i := int32(0); i < v.Len; i++ {
				var c byte
				if res.ReadCount < len(input) {
					c = input[res.ReadCount]
					res.ReadCount++
				}
				if int(v.Offset+i) < len(b) {
					b[v.Offset+i] = c
				}
			}
		case lir.Output:
			b := bufs[v.Buf]
			for i := int32(0); i < v.Len; i++ {
				if int(v.Offset+i) < len(b) {
					res.Output = append(res.Output, b[v.Offset+i])
				}
			}
		}
		ip++
	}
	return res, nil
}
