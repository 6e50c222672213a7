package lir_test

import (
	"testing"

	"bfoptc/internal/lir"
)

func TestLabelAllocatorPairsShareCounter(t *testing.T) {
	a := lir.NewLabelAllocator()
	loop0, end0 := a.LoopLabels()
	if loop0 != "loop0" || end0 != "endloop0" {
		t.Fatalf("got (%s, %s), want (loop0, endloop0)", loop0, end0)
	}
	endif1 := a.EndIfLabel()
	if endif1 != "endif1" {
		t.Fatalf("got %s, want endif1", endif1)
	}
	loop2, end2 := a.LoopLabels()
	if loop2 != "loop2" || end2 != "endloop2" {
		t.Fatalf("got (%s, %s), want (loop2, endloop2)", loop2, end2)
	}
}

func TestLabelAllocatorsAreIndependent(t *testing.T) {
	a := lir.NewLabelAllocator()
	b := lir.NewLabelAllocator()
	loop, _ := a.LoopLabels()
	_, _ = a.LoopLabels()
	other, _ := b.LoopLabels()
	if loop != other {
		t.Fatalf("expected two fresh allocators to both start at loop0, got %s and %s", loop, other)
	}
}

func TestNewRegIsMonotonicAndNeverReused(t *testing.T) {
	b := lir.NewBuilder(lir.NewLabelAllocator())
	r0 := b.NewReg()
	r1 := b.NewReg()
	r2 := b.NewReg()
	if r0 == r1 || r1 == r2 || r0 == r2 {
		t.Fatalf("expected three distinct registers, got %v %v %v", r0, r1, r2)
	}
	if r0 != lir.Reg(0) || r1 != lir.Reg(1) || r2 != lir.Reg(2) {
		t.Fatalf("expected registers 0,1,2 in order, got %v %v %v", r0, r1, r2)
	}
}

func TestBuilderEmitsInOrder(t *testing.T) {
	b := lir.NewBuilder(lir.NewLabelAllocator())
	r := b.NewReg()
	b.MovOp(r, lir.Imm(5))
	b.AddOp(lir.Tape(0), r, lir.Imm(1))
	loop, end := b.Labels().LoopLabels()
	b.LabelOp(loop)
	b.JzOp(lir.Tape(0), end)
	b.JpOp(loop)
	b.LabelOp(end)

	prog := b.Build()
	if len(prog.Instrs) != 6 {
		t.Fatalf("expected 6 instructions, got %d: %#v", len(prog.Instrs), prog.Instrs)
	}
	if _, ok := prog.Instrs[0].(lir.Mov); !ok {
		t.Errorf("instr 0 = %T, want Mov", prog.Instrs[0])
	}
	if lbl, ok := prog.Instrs[2].(lir.Label); !ok || lbl.Name != loop {
		t.Errorf("instr 2 = %#v, want Label{%s}", prog.Instrs[2], loop)
	}
	if jp, ok := prog.Instrs[4].(lir.Jp); !ok || jp.Target != loop {
		t.Errorf("instr 4 = %#v, want Jp{%s}", prog.Instrs[4], loop)
	}
}

func TestBuilderLenTracksEmittedInstructions(t *testing.T) {
	b := lir.NewBuilder(lir.NewLabelAllocator())
	if b.Len() != 0 {
		t.Fatalf("expected empty builder to have length 0, got %d", b.Len())
	}
	b.ShiftOp(1)
	b.ShiftOp(-1)
	if b.Len() != 2 {
		t.Fatalf("expected length 2 after two ops, got %d", b.Len())
	}
}
