package optimizer

import (
	"io"
	"reflect"

	"bfoptc/internal/ast"
	"bfoptc/internal/bferr"
	"bfoptc/internal/dump"
	"bfoptc/internal/lir"
	"bfoptc/internal/ordmap"
	"bfoptc/internal/token"
)

// Old is the token-based peephole optimizer: AST -> Token IR, a fixed-point
// rewrite pass recognizing three loop idioms (scan, clear-cell, multiplier
// copy), then Token IR -> LIR.
type Old struct{}

// maxFixedPointPasses bounds the rewrite loop defensively; the pass is
// designed to strictly decrease a lexicographic measure on every firing
// rewrite, so in a well-formed program this is never reached.
const maxFixedPointPasses = 10000

func (o *Old) Optimize(prog ast.Program, level int) (*lir.Program, error) {
	if level == 0 {
		return (&Simple{}).Optimize(prog, level)
	}
	toks := astToTokens(prog)
	opt, err := runToFixedPoint(toks)
	if err != nil {
		return nil, err
	}
	b := lir.NewBuilder(lir.NewLabelAllocator())
	st := newOldLowerState()
	lowerTokens(opt, b, st)
	if st.strbufUsed {
		size := st.maxOutPos
		if size == 0 {
			size = 1
		}
		b.DeclareBssBufOp("strbuf", int32(size))
	}
	if st.inputbufUsed {
		b.DeclareBssBufOp("inputbuf", 1)
	}
	return b.Build(), nil
}

func (o *Old) DumpIR(prog ast.Program, level int, w io.Writer) error {
	toks := astToTokens(prog)
	opt, err := runToFixedPoint(toks)
	if err != nil {
		return err
	}
	return dump.Token(w, opt)
}

// astToTokens lowers AST directly into Token IR, one construct at a time,
// with no fusion beyond what the parser already did: Shift becomes Move,
// Add keeps offset 0, Output buffers exactly the current cell before
// flushing.
func astToTokens(prog ast.Program) token.Program {
	out := make(token.Program, 0, len(prog))
	for _, n := range prog {
		switch v := n.(type) {
		case ast.Add:
			out = append(out, token.Add{Offset: 0, Delta: v.Delta})
		case ast.Shift:
			out = append(out, token.Move{Shift: v.Delta})
		case ast.Input:
			out = append(out, token.Input{})
		case ast.Output:
			out = append(out, token.LoadOut{Offset: 0, Add: 0}, token.Output{})
		case ast.Loop:
			out = append(out, token.Loop{Body: astToTokens(v.Body)})
		}
	}
	return out
}

// runToFixedPoint repeatedly rewrites prog until a pass produces no change.
func runToFixedPoint(prog token.Program) (token.Program, error) {
	cur := prog
	for i := 0; i < maxFixedPointPasses; i++ {
		next := onePass(cur)
		if reflect.DeepEqual(next, cur) {
			return next, nil
		}
		cur = next
	}
	return nil, bferr.Invariant("old optimizer fixed-point pass did not converge after %d iterations", maxFixedPointPasses)
}

// outItem is one queued byte destined for the implicit output buffer.
type outItem struct {
	isConst bool
	value   int32
	offset  int32
	add     int32
}

// passState accumulates deferred shift/sets/adds/output for one basic
// block, mirroring the commit discipline described for the token pass.
type passState struct {
	shift int32
	sets  *ordmap.Map[int32, int32]
	adds  *ordmap.Map[int32, int32]
	out   []outItem
}

func newPassState() *passState {
	return &passState{sets: ordmap.New[int32, int32](), adds: ordmap.New[int32, int32]()}
}

func lessOffset(a, b int32) bool { return a < b }

func (s *passState) applyAdd(offset, delta int32) {
	abs := offset + s.shift
	if v, ok := s.sets.Get(abs); ok {
		s.sets.Set(abs, v+delta)
		return
	}
	sum, _ := s.adds.Get(abs)
	sum += delta
	if sum == 0 {
		s.adds.Delete(abs)
		return
	}
	s.adds.Set(abs, sum)
}

func (s *passState) applySet(offset, value int32) {
	abs := offset + s.shift
	s.adds.Delete(abs)
	s.sets.Set(abs, value)
}

// applyLoadOut queues a read of tape[offset]+add for the next output flush,
// resolving against any pending Set/Add at that offset first so the queued
// item reflects the value the pending write is about to establish rather
// than whatever the tape cell holds right now. A pending Set fixes the
// loaded value at compile time, so the whole item collapses to a constant;
// a pending Add cannot be folded into a constant (its base is whatever the
// cell held before this run), so its delta is folded into add instead,
// leaving the Add itself in place to still be committed for its effect on
// the tape.
func (s *passState) applyLoadOut(offset, add int32) {
	abs := offset + s.shift
	if v, ok := s.sets.Get(abs); ok {
		s.out = append(s.out, outItem{isConst: true, value: v + add})
		return
	}
	if d, ok := s.adds.Get(abs); ok {
		add += d
	}
	s.out = append(s.out, outItem{offset: abs, add: add})
}

func (s *passState) applyLoadOutSet(value int32) {
	s.out = append(s.out, outItem{isConst: true, value: value})
}

// commit flushes output, then sets (ascending offset), then adds
// (ascending offset), then finally the pending shift, in that order,
// appending the materialized tokens to out. Every offset recorded in out,
// sets, and adds is relative to the cursor as it stands BEFORE the
// pending shift, so the shift itself must be the last thing emitted: were
// it emitted first, every following Set/Add's Offset would be read
// relative to the already-moved cursor and double-apply the shift. This
// is the one commit point every non-exempt token forces before it can
// itself be appended.
func (s *passState) commit(out *token.Program) {
	if len(s.out) > 0 {
		for _, item := range s.out {
			if item.isConst {
				*out = append(*out, token.LoadOutSet{Value: item.value})
			} else {
				*out = append(*out, token.LoadOut{Offset: item.offset, Add: item.add})
			}
		}
		*out = append(*out, token.Output{})
		s.out = nil
	}
	for _, k := range ordmap.SortedKeys(s.sets, lessOffset) {
		v, _ := s.sets.Get(k)
		*out = append(*out, token.Set{Offset: k, Value: v})
	}
	s.sets = ordmap.New[int32, int32]()
	for _, k := range ordmap.SortedKeys(s.adds, lessOffset) {
		v, _ := s.adds.Get(k)
		*out = append(*out, token.Add{Offset: k, Delta: v})
	}
	s.adds = ordmap.New[int32, int32]()
	if s.shift != 0 {
		*out = append(*out, token.Move{Shift: s.shift})
		s.shift = 0
	}
}

// onePass walks prog once, applying Add/Set/Move/LoadOut/LoadOutSet/Output
// into a running passState and forcing a commit before every other token
// (Input, Scan, If and MulCopy pass-through, and Loop, which additionally attempts the
// three loop-recognition rewrites before falling back to re-emitting
// itself).
func onePass(prog token.Program) token.Program {
	var out token.Program
	s := newPassState()
	for _, t := range prog {
		switch v := t.(type) {
		case token.Add:
			s.applyAdd(v.Offset, v.Delta)
		case token.Set:
			s.applySet(v.Offset, v.Value)
		case token.Move:
			s.shift += v.Shift
		case token.LoadOut:
			s.applyLoadOut(v.Offset, v.Add)
		case token.LoadOutSet:
			s.applyLoadOutSet(v.Value)
		case token.Output:
			// Nothing to do eagerly: presence of queued LoadOut/LoadOutSet
			// entries is what drives a real flush at the next commit.
		case token.Input:
			s.commit(&out)
			out = append(out, token.Input{})
		case token.Scan:
			s.commit(&out)
			out = append(out, v)
		case token.If:
			s.commit(&out)
			out = append(out, v)
		case token.MulCopy:
			s.commit(&out)
			out = append(out, v)
		case token.Loop:
			s.commit(&out)
			body := onePass(v.Body)
			if !recognizeLoop(body, s, &out) {
				out = append(out, token.Loop{Body: body})
			}
		}
	}
	s.commit(&out)
	return out
}

// recognizeLoop attempts the three loop-body idioms against an already
// optimized inner body. On success it feeds the resulting tokens back
// through s (so they can still merge with whatever follows the loop in the
// enclosing block) and reports true. On failure it reports false and
// leaves s and out untouched, so the caller re-emits the loop verbatim.
func recognizeLoop(body token.Program, s *passState, out *token.Program) bool {
	// Rule 1: scan fusion.
	if len(body) == 1 {
		if mv, ok := body[0].(token.Move); ok && mv.Shift != 0 {
			s.commit(out)
			*out = append(*out, token.Scan{Step: mv.Shift})
			return true
		}
	}

	// Both rule 2 and rule 3 require body to consist solely of Set and Add
	// tokens (the committed shape of a pure straight-line arithmetic block).
	var sets []token.Set
	var adds []token.Add
	for _, t := range body {
		switch v := t.(type) {
		case token.Set:
			sets = append(sets, v)
		case token.Add:
			adds = append(adds, v)
		default:
			return false
		}
	}
	if len(adds) == 0 {
		return false
	}

	var zeroAdd *token.Add
	var others []token.Add
	for i := range adds {
		if adds[i].Offset == 0 {
			a := adds[i]
			zeroAdd = &a
			continue
		}
		others = append(others, adds[i])
	}
	if zeroAdd == nil {
		return false
	}

	// Rule 2: clear-cell (no adds at any other offset).
	if len(others) == 0 && zeroAdd.Delta != 0 {
		if len(sets) > 0 {
			guarded := make(token.Program, 0, len(sets)+1)
			for _, st := range sets {
				guarded = append(guarded, st)
			}
			guarded = append(guarded, token.Set{Offset: 0, Value: 0})
			s.commit(out)
			*out = append(*out, token.If{Offset: 0, Body: guarded})
		} else {
			s.applySet(0, 0)
		}
		return true
	}

	// Rule 3: multiplier-copy extraction.
	if zeroAdd.Delta == -1 && len(others) > 0 {
		if len(sets) > 0 {
			guarded := make(token.Program, 0, len(sets)+len(others)+1)
			for _, st := range sets {
				guarded = append(guarded, st)
			}
			for _, a := range others {
				guarded = append(guarded, token.MulCopy{Src: 0, Dest: a.Offset, Mul: a.Delta})
			}
			guarded = append(guarded, token.Set{Offset: 0, Value: 0})
			s.commit(out)
			*out = append(*out, token.If{Offset: 0, Body: guarded})
		} else {
			s.commit(out)
			for _, a := range others {
				*out = append(*out, token.MulCopy{Src: 0, Dest: a.Offset, Mul: a.Delta})
			}
			s.applySet(0, 0)
		}
		return true
	}

	return false
}

// oldLowerState tracks the buffers a compilation unit's Token IR -> LIR
// lowering ends up needing, so the matching DeclareBssBuf instructions can
// be appended once at the tail.
type oldLowerState struct {
	strbufUsed   bool
	inputbufUsed bool
	maxOutPos    int
}

func newOldLowerState() *oldLowerState { return &oldLowerState{} }

func lowerTokens(prog token.Program, b *lir.Builder, st *oldLowerState) {
	outPos := 0
	flush := func() {
		if outPos > 0 {
			b.OutputOp("strbuf", 0, int32(outPos))
			if outPos > st.maxOutPos {
				st.maxOutPos = outPos
			}
			outPos = 0
		}
	}
	for _, t := range prog {
		switch v := t.(type) {
		case token.Add:
			tgt := lir.Tape(v.Offset)
			b.AddOp(tgt, tgt, lir.Imm(v.Delta))
		case token.Set:
			b.MovOp(lir.Tape(v.Offset), lir.Imm(v.Value))
		case token.MulCopy:
			reg := b.NewReg()
			b.MulOp(reg, lir.Tape(v.Src), lir.Imm(v.Mul))
			dst := lir.Tape(v.Dest)
			b.AddOp(dst, dst, reg)
		case token.Move:
			b.ShiftOp(v.Shift)
		case token.Scan:
			loopLbl, endLbl := b.Labels().LoopLabels()
			b.JpOp(endLbl)
			b.LabelOp(loopLbl)
			b.ShiftOp(v.Step)
			b.LabelOp(endLbl)
			b.JnzOp(lir.Tape(0), loopLbl)
		case token.Input:
			st.inputbufUsed = true
			b.InputOp("inputbuf", 0, 1)
			b.MovOp(lir.Tape(0), lir.AtBuf("inputbuf", 0))
		case token.LoadOut:
			st.strbufUsed = true
			reg := b.NewReg()
			b.AddOp(reg, lir.Tape(v.Offset), lir.Imm(v.Add))
			b.MovOp(lir.AtBuf("strbuf", int32(outPos)), reg)
			outPos++
		case token.LoadOutSet:
			st.strbufUsed = true
			b.MovOp(lir.AtBuf("strbuf", int32(outPos)), lir.Imm(v.Value))
			outPos++
		case token.Output:
			flush()
		case token.If:
			endif := b.Labels().EndIfLabel()
			b.JzOp(lir.Tape(v.Offset), endif)
			lowerTokens(v.Body, b, st)
			b.LabelOp(endif)
		case token.Loop:
			loopLbl, endLbl := b.Labels().LoopLabels()
			b.JpOp(endLbl)
			b.LabelOp(loopLbl)
			lowerTokens(v.Body, b, st)
			b.LabelOp(endLbl)
			b.JnzOp(lir.Tape(0), loopLbl)
		}
	}
	flush()
}
