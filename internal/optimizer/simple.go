package optimizer

import (
	"io"

	"bfoptc/internal/ast"
	"bfoptc/internal/dump"
	"bfoptc/internal/lir"
)

// Simple is the direct AST -> LIR lowering with no algebraic
// transformation. It exists as a correctness reference: every other
// optimizer's LIR must produce the same observable output as Simple's.
type Simple struct{}

// Optimize ignores level: Simple always lowers the same way.
func (s *Simple) Optimize(prog ast.Program, level int) (*lir.Program, error) {
	b := lir.NewBuilder(lir.NewLabelAllocator())
	usedStrbuf := lowerSimple(prog, b)
	if usedStrbuf {
		b.DeclareBssBufOp("strbuf", 1)
	}
	return b.Build(), nil
}

// DumpIR has no separate intermediate form for Simple; it dumps the AST
// itself.
func (s *Simple) DumpIR(prog ast.Program, level int, w io.Writer) error {
	return dump.AST(w, prog)
}

// lowerSimple walks prog emitting the while-condition-at-bottom loop shape
// every optimizer follows: Jp(endN); Label(loopN); body; Label(endN);
// Jnz(Tape(0), loopN). It returns whether any I/O instruction was lowered,
// so the caller knows whether to declare the shared one-byte "strbuf".
func lowerSimple(prog ast.Program, b *lir.Builder) bool {
	usedStrbuf := false
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			b.AddOp(lir.Tape(0), lir.Tape(0), lir.Imm(v.Delta))
		case ast.Shift:
			b.ShiftOp(v.Delta)
		case ast.Output:
			usedStrbuf = true
			b.MovOp(lir.AtBuf("strbuf", 0), lir.Tape(0))
			b.OutputOp("strbuf", 0, 1)
		case ast.Input:
			usedStrbuf = true
			b.InputOp("strbuf", 0, 1)
			b.MovOp(lir.Tape(0), lir.AtBuf("strbuf", 0))
		case ast.Loop:
			loopLbl, endLbl := b.Labels().LoopLabels()
			b.JpOp(endLbl)
			b.LabelOp(loopLbl)
			if lowerSimple(v.Body, b) {
				usedStrbuf = true
			}
			b.LabelOp(endLbl)
			b.JnzOp(lir.Tape(0), loopLbl)
		}
	}
	return usedStrbuf
}
