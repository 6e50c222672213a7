// Package dump pretty-prints every intermediate form this codebase produces
// (AST, Token IR, DAG IR, LIR) to an io.Writer, following the same
// indent-tracking accumulator style as the teacher's statement formatter.
// Section headers are colored when w is a terminal.
package dump

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"bfoptc/internal/ast"
	"bfoptc/internal/dag"
	"bfoptc/internal/lir"
	"bfoptc/internal/token"
)

const indentStr = "  "

type printer struct {
	w      io.Writer
	indent int
	color  bool
}

func newPrinter(w io.Writer) *printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{w: w, color: color}
}

func (p *printer) line(format string, args ...interface{}) {
	fmt.Fprint(p.w, strings.Repeat(indentStr, p.indent))
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *printer) header(name string) {
	if p.color {
		fmt.Fprintf(p.w, "\x1b[1m%s\x1b[0m\n", name)
		return
	}
	fmt.Fprintln(p.w, name)
}

// AST writes a bracket-indented rendering of prog.
func AST(w io.Writer, prog ast.Program) error {
	p := newPrinter(w)
	p.header("ast")
	p.dumpAST(prog)
	return nil
}

func (p *printer) dumpAST(prog ast.Program) {
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			p.line("add %d", v.Delta)
		case ast.Shift:
			p.line("shift %d", v.Delta)
		case ast.Input:
			p.line("input")
		case ast.Output:
			p.line("output")
		case ast.Loop:
			p.line("loop {")
			p.indent++
			p.dumpAST(v.Body)
			p.indent--
			p.line("}")
		}
	}
}

// Token writes a bracket-indented rendering of the Old optimizer's Token IR.
func Token(w io.Writer, prog token.Program) error {
	p := newPrinter(w)
	p.header("token-ir")
	p.dumpToken(prog)
	return nil
}

func (p *printer) dumpToken(prog token.Program) {
	for _, t := range prog {
		switch v := t.(type) {
		case token.Add:
			p.line("add tape[%d] += %d", v.Offset, v.Delta)
		case token.Set:
			p.line("set tape[%d] = %d", v.Offset, v.Value)
		case token.MulCopy:
			p.line("mulcopy tape[%d] += tape[%d] * %d", v.Dest, v.Src, v.Mul)
		case token.Move:
			p.line("move %d", v.Shift)
		case token.Scan:
			p.line("scan step=%d", v.Step)
		case token.Input:
			p.line("input")
		case token.LoadOut:
			p.line("loadout tape[%d]+%d", v.Offset, v.Add)
		case token.LoadOutSet:
			p.line("loadoutset %d", v.Value)
		case token.Output:
			p.line("output")
		case token.If:
			p.line("if tape[%d] != 0 {", v.Offset)
			p.indent++
			p.dumpToken(v.Body)
			p.indent--
			p.line("}")
		case token.Loop:
			p.line("loop {")
			p.indent++
			p.dumpToken(v.Body)
			p.indent--
			p.line("}")
		}
	}
}

// DAG writes every node in construction order followed by the terminal map.
func DAG(w io.Writer, d *dag.DAG) error {
	p := newPrinter(w)
	p.header("dag")
	for i, n := range d.Nodes {
		switch n.Kind {
		case dag.KindTape:
			p.line("%%%d = tape[%d]", i, n.Offset)
		case dag.KindConst:
			p.line("%%%d = const %d", i, n.Val)
		case dag.KindAdd:
			p.line("%%%d = %%%d + %%%d", i, n.A, n.B)
		case dag.KindMul:
			p.line("%%%d = %%%d * %%%d", i, n.A, n.B)
		}
	}
	p.line("terminals:")
	p.indent++
	d.Terminals.Range(func(off int32, node int) bool {
		p.line("tape[%d] <- %%%d", off, node)
		return true
	})
	p.indent--
	return nil
}

// LIR writes the flat instruction list, one instruction per line.
func LIR(w io.Writer, prog *lir.Program) error {
	p := newPrinter(w)
	p.header("lir")
	for _, instr := range prog.Instrs {
		switch v := instr.(type) {
		case lir.Shift:
			p.line("shift %d", v.Delta)
		case lir.Mov:
			p.line("mov %v, %v", v.Dst, v.Src)
		case lir.Add:
			p.line("add %v, %v, %v", v.Dst, v.A, v.B)
		case lir.Sub:
			p.line("sub %v, %v, %v", v.Dst, v.A, v.B)
		case lir.Mul:
			p.line("mul %v, %v, %v", v.Dst, v.A, v.B)
		case lir.Label:
			p.line("%s:", v.Name)
		case lir.Jp:
			p.line("jp %s", v.Target)
		case lir.Jz:
			p.line("jz %v, %s", v.Cond, v.Target)
		case lir.Jnz:
			p.line("jnz %v, %s", v.Cond, v.Target)
		case lir.DeclareBssBuf:
			p.line("declare_bss %s[%d]", v.Name, v.Size)
		case lir.Input:
			p.line("input %s[%d:%d]", v.Buf, v.Offset, v.Offset+v.Len)
		case lir.Output:
			p.line("output %s[%d:%d]", v.Buf, v.Offset, v.Offset+v.Len)
		}
	}
	return nil
}
