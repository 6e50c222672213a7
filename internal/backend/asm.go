package backend

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/sys/unix"

	"bfoptc/internal/compileopts"
	"bfoptc/internal/lir"
)

// syscallConv isolates the three syscall numbers and the argument-register
// convention the assembly backend needs, so adding a target whose
// convention differs (Redox uses different numbers on the same x86_64
// registers) only means providing a new syscallConv, never touching the
// optimizer or the instruction-emission logic below.
type syscallConv interface {
	ReadNum() int64
	WriteNum() int64
	ExitNum() int64
	ArgRegs() []string
}

// linuxConv is the x86_64 Linux syscall convention: syscall numbers from
// golang.org/x/sys/unix rather than hand-copied magic numbers, with
// arguments passed in rdi/rsi/rdx/r10/r8/r9 in that order.
type linuxConv struct{}

func (linuxConv) ReadNum() int64  { return unix.SYS_READ }
func (linuxConv) WriteNum() int64 { return unix.SYS_WRITE }
func (linuxConv) ExitNum() int64  { return unix.SYS_EXIT }
func (linuxConv) ArgRegs() []string {
	return []string{"%rdi", "%rsi", "%rdx", "%r10", "%r8", "%r9"}
}

// Asm emits symbolic GAS (AT&T syntax) assembly for x86_64 Linux. %r13 holds
// the tape base, %r12 the cursor (a cell index, not a byte offset), and
// %r14 the base of a register-spill area sized to the LIR program's
// highest-numbered Reg, since the LIR's SSA discipline means each Reg is
// written exactly once and can live in a fixed slot rather than need real
// liveness analysis.
type Asm struct {
	Conv syscallConv
}

// NewAsm returns an Asm configured for the standard Linux convention.
func NewAsm() *Asm { return &Asm{Conv: linuxConv{}} }

func (a *Asm) Emit(w io.Writer, prog *lir.Program, opts compileopts.Options) error {
	conv := a.Conv
	if conv == nil {
		conv = linuxConv{}
	}
	g := &asmGen{conv: conv, scale: cellBytes(opts.CellWidth)}
	g.generate(prog, opts)
	_, err := io.WriteString(w, g.out.String())
	return err
}

type asmGen struct {
	out   strings.Builder
	conv  syscallConv
	scale int
}

func sizeSuffix(scale int) string {
	switch scale {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	default:
		return "q"
	}
}

func accReg(scale int) string {
	switch scale {
	case 1:
		return "%al"
	case 2:
		return "%ax"
	case 4:
		return "%eax"
	default:
		return "%rax"
	}
}

func (g *asmGen) operand(v interface{}) string {
	switch t := v.(type) {
	case lir.Imm:
		return fmt.Sprintf("$%d", int32(t))
	case lir.Reg:
		return fmt.Sprintf("%d(%%r14)", int(t)*g.scale)
	case lir.Tape:
		return fmt.Sprintf("%d(%%r13,%%r12,%d)", int32(t)*int32(g.scale), g.scale)
	case lir.Buf:
		return fmt.Sprintf("%s+%d", t.Name, t.Index)
	}
	return ""
}

func scanMaxReg(prog *lir.Program) int {
	max := -1
	note := func(v interface{}) {
		if r, ok := v.(lir.Reg); ok && int(r) > max {
			max = int(r)
		}
	}
	for _, instr := range prog.Instrs {
		switch v := instr.(type) {
		case lir.Mov:
			note(v.Dst)
			note(v.Src)
		case lir.Add:
			note(v.Dst)
			note(v.A)
			note(v.B)
		case lir.Sub:
			note(v.Dst)
			note(v.A)
			note(v.B)
		case lir.Mul:
			note(v.Dst)
			note(v.A)
			note(v.B)
		case lir.Jz:
			note(v.Cond)
		case lir.Jnz:
			note(v.Cond)
		}
	}
	return max + 1
}

func (g *asmGen) generate(prog *lir.Program, opts compileopts.Options) {
	regCount := scanMaxReg(prog)
	g.header(prog, opts, regCount)
	for _, instr := range prog.Instrs {
		g.emit(instr)
	}
	g.epilogue()
}

func (g *asmGen) header(prog *lir.Program, opts compileopts.Options, regCount int) {
	fmt.Fprintf(&g.out, ".section .bss\n")
	fmt.Fprintf(&g.out, "    .lcomm tape, %d\n", opts.TapeSize*g.scale)
	if regCount > 0 {
		fmt.Fprintf(&g.out, "    .lcomm regfile, %d\n", regCount*g.scale)
	}
	for _, instr := range prog.Instrs {
		if db, ok := instr.(lir.DeclareBssBuf); ok {
			fmt.Fprintf(&g.out, "    .lcomm %s, %d\n", db.Name, db.Size)
		}
	}
	fmt.Fprintf(&g.out, "\n.section .text\n.globl _start\n_start:\n")
	fmt.Fprintf(&g.out, "    movq $tape, %%r13\n")
	if regCount > 0 {
		fmt.Fprintf(&g.out, "    movq $regfile, %%r14\n")
	}
	fmt.Fprintf(&g.out, "    movq $%d, %%r12\n", opts.TapeSize/2)
}

func (g *asmGen) epilogue() {
	args := g.conv.ArgRegs()
	fmt.Fprintf(&g.out, "    movq $%d, %%rax\n", g.conv.ExitNum())
	fmt.Fprintf(&g.out, "    xorq %s, %s\n", args[0], args[0])
	fmt.Fprintf(&g.out, "    syscall\n")
}

func (g *asmGen) emit(instr lir.Instr) {
	sfx := sizeSuffix(g.scale)
	switch v := instr.(type) {
	case lir.Shift:
		if v.Delta >= 0 {
			fmt.Fprintf(&g.out, "    addq $%d, %%r12\n", v.Delta)
		} else {
			fmt.Fprintf(&g.out, "    subq $%d, %%r12\n", -v.Delta)
		}
	case lir.Mov:
		fmt.Fprintf(&g.out, "    mov%s %s, %s\n", sfx, g.operand(v.Src), g.operand(v.Dst))
	case lir.Add:
		g.emitArith("add", v.Dst, v.A, v.B)
	case lir.Sub:
		g.emitArith("sub", v.Dst, v.A, v.B)
	case lir.Mul:
		g.emitMul(v.Dst, v.A, v.B)
	case lir.Label:
		fmt.Fprintf(&g.out, "%s:\n", v.Name)
	case lir.Jp:
		fmt.Fprintf(&g.out, "    jmp %s\n", v.Target)
	case lir.Jz:
		fmt.Fprintf(&g.out, "    cmp%s $0, %s\n", sfx, g.operand(v.Cond))
		fmt.Fprintf(&g.out, "    je %s\n", v.Target)
	case lir.Jnz:
		fmt.Fprintf(&g.out, "    cmp%s $0, %s\n", sfx, g.operand(v.Cond))
		fmt.Fprintf(&g.out, "    jne %s\n", v.Target)
	case lir.DeclareBssBuf:
		// declared in the .bss header.
	case lir.Input:
		g.emitIO(g.conv.ReadNum(), 0, v.Buf, v.Offset, v.Len)
	case lir.Output:
		g.emitIO(g.conv.WriteNum(), 1, v.Buf, v.Offset, v.Len)
	}
}

func (g *asmGen) emitArith(mnemonic string, dst lir.LVal, a, b lir.RVal) {
	sfx := sizeSuffix(g.scale)
	acc := accReg(g.scale)
	fmt.Fprintf(&g.out, "    mov%s %s, %s\n", sfx, g.operand(a), acc)
	fmt.Fprintf(&g.out, "    %s%s %s, %s\n", mnemonic, sfx, g.operand(b), acc)
	fmt.Fprintf(&g.out, "    mov%s %s, %s\n", sfx, acc, g.operand(dst))
}

func (g *asmGen) emitMul(dst lir.LVal, a, b lir.RVal) {
	sfx := sizeSuffix(g.scale)
	acc := accReg(g.scale)
	fmt.Fprintf(&g.out, "    mov%s %s, %s\n", sfx, g.operand(a), acc)
	if g.scale == 1 {
		fmt.Fprintf(&g.out, "    mulb %s\n", g.operand(b))
	} else {
		fmt.Fprintf(&g.out, "    imul%s %s, %s\n", sfx, g.operand(b), acc)
	}
	fmt.Fprintf(&g.out, "    mov%s %s, %s\n", sfx, acc, g.operand(dst))
}

func (g *asmGen) emitIO(num int64, fd int, buf string, offset, length int32) {
	args := g.conv.ArgRegs()
	fmt.Fprintf(&g.out, "    leaq %s+%d(%%rip), %s\n", buf, offset, args[1])
	fmt.Fprintf(&g.out, "    movq $%d, %%rax\n", num)
	fmt.Fprintf(&g.out, "    movq $%d, %s\n", fd, args[0])
	fmt.Fprintf(&g.out, "    movq $%d, %s\n", length, args[2])
	fmt.Fprintf(&g.out, "    syscall\n")
}
