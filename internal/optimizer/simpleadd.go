package optimizer

import (
	"io"

	"bfoptc/internal/ast"
	"bfoptc/internal/dump"
	"bfoptc/internal/lir"
	"bfoptc/internal/ordmap"
)

// SimpleAdd defers pointer movement and coalesces same-offset adds within a
// straight-line run, committing both only immediately before a node with a
// side effect (Input, Output, entering/leaving a Loop). It still lowers each
// committed offset independently, with no cross-offset reasoning: that is
// what separates it from Old and New.
type SimpleAdd struct{}

func (s *SimpleAdd) Optimize(prog ast.Program, level int) (*lir.Program, error) {
	if level == 0 {
		return (&Simple{}).Optimize(prog, level)
	}
	b := lir.NewBuilder(lir.NewLabelAllocator())
	usedStrbuf := lowerSimpleAdd(prog, b)
	if usedStrbuf {
		b.DeclareBssBufOp("strbuf", 1)
	}
	return b.Build(), nil
}

func (s *SimpleAdd) DumpIR(prog ast.Program, level int, w io.Writer) error {
	return dump.AST(w, prog)
}

// run accumulates a straight-line sequence of Add/Shift nodes: pendingShift
// is the net cursor movement not yet materialized, and adds maps an offset
// (relative to the cursor as of the start of the run) to its accumulated
// delta, in the order each offset was first touched.
type run struct {
	pendingShift int32
	adds         *ordmap.Map[int32, int32]
}

func newRun() *run {
	return &run{adds: ordmap.New[int32, int32]()}
}

// commit flushes the accumulated shift and adds as LIR, in the order the
// offsets were first seen. It resets the run so a fresh straight-line
// sequence can accumulate after it.
func (r *run) commit(b *lir.Builder) {
	r.adds.Range(func(offset int32, delta int32) bool {
		if delta != 0 {
			t := lir.Tape(offset)
			b.AddOp(t, t, lir.Imm(delta))
		}
		return true
	})
	if r.pendingShift != 0 {
		b.ShiftOp(r.pendingShift)
	}
	r.pendingShift = 0
	r.adds = ordmap.New[int32, int32]()
}

func lowerSimpleAdd(prog ast.Program, b *lir.Builder) bool {
	usedStrbuf := false
	r := newRun()
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			offset := r.pendingShift
			cur, _ := r.adds.Get(offset)
			r.adds.Set(offset, cur+v.Delta)
		case ast.Shift:
			r.pendingShift += v.Delta
		case ast.Output:
			r.commit(b)
			usedStrbuf = true
			b.MovOp(lir.AtBuf("strbuf", 0), lir.Tape(0))
			b.OutputOp("strbuf", 0, 1)
		case ast.Input:
			r.commit(b)
			usedStrbuf = true
			b.InputOp("strbuf", 0, 1)
			b.MovOp(lir.Tape(0), lir.AtBuf("strbuf", 0))
		case ast.Loop:
			r.commit(b)
			loopLbl, endLbl := b.Labels().LoopLabels()
			b.JpOp(endLbl)
			b.LabelOp(loopLbl)
			if lowerSimpleAdd(v.Body, b) {
				usedStrbuf = true
			}
			b.LabelOp(endLbl)
			b.JnzOp(lir.Tape(0), loopLbl)
		}
	}
	r.commit(b)
	return usedStrbuf
}
