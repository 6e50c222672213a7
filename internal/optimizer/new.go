package optimizer

import (
	"io"

	"bfoptc/internal/ast"
	"bfoptc/internal/dag"
	"bfoptc/internal/dump"
	"bfoptc/internal/lir"
)

// New is the DAG-based per-basic-block optimizer: each maximal run of
// Add/Shift nodes ending just before Input, Output, or Loop is folded into
// one expression DAG with structural sharing, and a narrow but high-value
// loop idiom (the decrement-and-scatter "flat multiplier loop") is
// recognized and inlined without ever emitting a real loop for it.
type New struct{}

func (n *New) Optimize(prog ast.Program, level int) (*lir.Program, error) {
	if level == 0 {
		return (&Simple{}).Optimize(prog, level)
	}
	b := lir.NewBuilder(lir.NewLabelAllocator())
	st := newNewLowerState()
	d := dag.New(true)
	d, shift := lowerNew(prog, d, 0, b, st)
	commitDAG(d, b)
	if shift != 0 {
		b.ShiftOp(shift)
	}
	if st.strbufUsed {
		b.DeclareBssBufOp("strbuf", 1)
	}
	if st.inputbufUsed {
		b.DeclareBssBufOp("inputbuf", 1)
	}
	return b.Build(), nil
}

func (n *New) DumpIR(prog ast.Program, level int, w io.Writer) error {
	var blocks []*dag.DAG
	d := dag.New(true)
	d, _ = collectBlocks(prog, d, 0, &blocks)
	blocks = append(blocks, d)
	for _, blk := range blocks {
		if err := dump.DAG(w, blk); err != nil {
			return err
		}
	}
	return nil
}

type newLowerState struct {
	strbufUsed   bool
	inputbufUsed bool
}

func newNewLowerState() *newLowerState { return &newLowerState{} }

// lowerNew walks prog, folding Add/Shift into d/shift and committing the
// running DAG to real LIR at every Input/Output/Loop boundary. It returns
// the still-open DAG and shift left after prog's last node, so the caller
// (an enclosing block, or the top-level Optimize) can keep accumulating
// into them.
func lowerNew(prog ast.Program, d *dag.DAG, shift int32, b *lir.Builder, st *newLowerState) (*dag.DAG, int32) {
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			cur := d.TerminalOrTape(shift)
			d.SetTerminal(shift, d.AddNode(cur, d.ConstNode(v.Delta)))

		case ast.Shift:
			shift += v.Delta

		case ast.Output:
			term := d.TerminalOrTape(shift)
			if c, ok := d.IsConst(term); ok {
				st.strbufUsed = true
				b.MovOp(lir.AtBuf("strbuf", 0), lir.Imm(c))
				b.OutputOp("strbuf", 0, 1)
				break
			}
			commitDAG(d, b)
			if shift != 0 {
				b.ShiftOp(shift)
			}
			d, shift = dag.New(false), 0
			st.strbufUsed = true
			b.MovOp(lir.AtBuf("strbuf", 0), lir.Tape(0))
			b.OutputOp("strbuf", 0, 1)

		case ast.Input:
			commitDAG(d, b)
			if shift != 0 {
				b.ShiftOp(shift)
			}
			d, shift = dag.New(false), 0
			st.inputbufUsed = true
			b.InputOp("inputbuf", 0, 1)
			b.MovOp(lir.Tape(0), lir.AtBuf("inputbuf", 0))
			d.SetTerminal(0, d.TapeNode(0))

		case ast.Loop:
			if tryFlatMultiplierLoop(d, shift, v.Body) {
				break
			}
			commitDAG(d, b)
			if shift != 0 {
				b.ShiftOp(shift)
			}
			loopLbl, endLbl := b.Labels().LoopLabels()
			b.JpOp(endLbl)
			b.LabelOp(loopLbl)
			bodyD, bodyShift := lowerNew(v.Body, dag.New(false), 0, b, st)
			commitDAG(bodyD, b)
			if bodyShift != 0 {
				b.ShiftOp(bodyShift)
			}
			b.LabelOp(endLbl)
			b.JnzOp(lir.Tape(0), loopLbl)
			d, shift = dag.New(false), 0
		}
	}
	return d, shift
}

// commitDAG lowers every node of d into LIR, in construction order (already
// a valid topological order), then writes each terminal back to its tape
// offset. Trivial nodes (Tape, Const) need no register; only Add/Mul nodes
// allocate one.
func commitDAG(d *dag.DAG, b *lir.Builder) {
	values := make(map[int]lir.RVal, len(d.Nodes))
	for i, node := range d.Nodes {
		switch node.Kind {
		case dag.KindTape:
			values[i] = lir.Tape(node.Offset)
		case dag.KindConst:
			values[i] = lir.Imm(node.Val)
		case dag.KindAdd:
			reg := b.NewReg()
			b.AddOp(reg, values[node.A], values[node.B])
			values[i] = reg
		case dag.KindMul:
			reg := b.NewReg()
			b.MulOp(reg, values[node.A], values[node.B])
			values[i] = reg
		}
	}
	for _, offset := range d.Terminals.Keys() {
		node, _ := d.Terminals.Get(offset)
		b.MovOp(lir.Tape(offset), values[node])
	}
}

// isPureArithmetic reports whether body contains only Add/Shift nodes,
// the precondition for analyzing it as a candidate flat multiplier loop
// without emitting any real instructions for it.
func isPureArithmetic(body ast.Program) bool {
	for _, n := range body {
		switch n.(type) {
		case ast.Add, ast.Shift:
		default:
			return false
		}
	}
	return true
}

// buildPureDAG folds a pure Add/Shift body into a DAG in the body's own
// local coordinates (offset 0 at loop entry), returning the DAG and its net
// end shift.
func buildPureDAG(body ast.Program) (*dag.DAG, int32) {
	d := dag.New(false)
	var shift int32
	for _, n := range body {
		switch v := n.(type) {
		case ast.Add:
			cur := d.TerminalOrTape(shift)
			d.SetTerminal(shift, d.AddNode(cur, d.ConstNode(v.Delta)))
		case ast.Shift:
			shift += v.Delta
		}
	}
	return d, shift
}

// tryFlatMultiplierLoop recognizes the "decrement cell 0 by one, scatter
// constant multiples of it to other cells" idiom and, on success, inlines
// its effect directly into outer (at outer's current local offset
// outerShift) with no loop ever reaching LIR. It reports whether the
// rewrite applied; outer is left untouched when it did not.
func tryFlatMultiplierLoop(outer *dag.DAG, outerShift int32, body ast.Program) bool {
	if !isPureArithmetic(body) {
		return false
	}
	bodyDAG, bodyShift := buildPureDAG(body)
	if bodyShift != 0 {
		return false
	}
	// Reposition the body's local coordinates (built starting at offset 0)
	// into outer's frame before inspecting or grafting anything from it.
	bodyDAG.Shift(outerShift)

	idx0, ok := bodyDAG.Terminals.Get(outerShift)
	if !ok {
		return false
	}
	if a, ok := bodyDAG.MatchTapePlusConst(idx0, outerShift); !ok || a != -1 {
		return false
	}

	valid := true
	bodyDAG.Terminals.Range(func(off int32, node int) bool {
		if off == outerShift {
			return true
		}
		if _, ok := bodyDAG.MatchTapePlusConst(node, off); ok {
			return true
		}
		if _, ok := bodyDAG.IsConst(node); ok {
			return true
		}
		valid = false
		return false
	})
	if !valid {
		return false
	}

	bodyDAG.Terminals.Range(func(off int32, node int) bool {
		if off == outerShift {
			return true
		}
		if a, ok := bodyDAG.MatchTapePlusConst(node, off); ok {
			base := outer.TerminalOrTape(off)
			mul := outer.MulNode(outer.TerminalOrTape(outerShift), outer.ConstNode(a))
			outer.SetTerminal(off, outer.AddNode(base, mul))
			return true
		}
		v, _ := bodyDAG.IsConst(node)
		outer.SetTerminal(off, outer.ConstNode(v))
		return true
	})
	outer.SetTerminal(outerShift, outer.ConstNode(0))
	return true
}

// collectBlocks mirrors lowerNew's traversal but only accumulates the
// per-basic-block DAGs it would have committed, for DumpIR's use; it never
// touches a Builder.
func collectBlocks(prog ast.Program, d *dag.DAG, shift int32, blocks *[]*dag.DAG) (*dag.DAG, int32) {
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			cur := d.TerminalOrTape(shift)
			d.SetTerminal(shift, d.AddNode(cur, d.ConstNode(v.Delta)))
		case ast.Shift:
			shift += v.Delta
		case ast.Output:
			term := d.TerminalOrTape(shift)
			if _, ok := d.IsConst(term); !ok {
				*blocks = append(*blocks, d)
				d, shift = dag.New(false), 0
			}
		case ast.Input:
			*blocks = append(*blocks, d)
			d, shift = dag.New(false), 0
			d.SetTerminal(0, d.TapeNode(0))
		case ast.Loop:
			if tryFlatMultiplierLoop(d, shift, v.Body) {
				break
			}
			*blocks = append(*blocks, d)
			bodyD, _ := collectBlocks(v.Body, dag.New(false), 0, blocks)
			*blocks = append(*blocks, bodyD)
			d, shift = dag.New(false), 0
		}
	}
	return d, shift
}
