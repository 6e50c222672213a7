package lir

import "fmt"

// LabelAllocator hands out the loopN / endloopN / endifN label names every
// optimizer must use, with N a monotonically increasing counter scoped to a
// single compilation unit (never global process state, so concurrent
// Compile calls never collide).
type LabelAllocator struct {
	next int
}

// NewLabelAllocator creates a counter starting at 0.
func NewLabelAllocator() *LabelAllocator {
	return &LabelAllocator{}
}

// LoopLabels returns a correlated (loopN, endloopN) pair sharing one N.
func (a *LabelAllocator) LoopLabels() (loop, end string) {
	n := a.next
	a.next++
	return fmt.Sprintf("loop%d", n), fmt.Sprintf("endloop%d", n)
}

// EndIfLabel returns a fresh endifN label.
func (a *LabelAllocator) EndIfLabel() string {
	n := a.next
	a.next++
	return fmt.Sprintf("endif%d", n)
}

// Builder is a purely constructive, mutable instruction list: one method per
// Instr variant, each accepting arguments convertible to RVal/LVal through
// the IntoRVal/IntoLVal conversion trait rather than a runtime type switch
// at the call site.
type Builder struct {
	instrs  []Instr
	labels  *LabelAllocator
	nextReg uint32
}

// NewBuilder creates an empty Builder sharing lbl's label counter.
func NewBuilder(lbl *LabelAllocator) *Builder {
	return &Builder{labels: lbl}
}

// Labels exposes the shared label allocator, so an optimizer can mint a
// loop/endloop pair without going through an instruction-emitting method.
func (b *Builder) Labels() *LabelAllocator { return b.labels }

// NewReg allocates a fresh SSA register. Every definition site must call
// this rather than reuse a Reg value.
func (b *Builder) NewReg() Reg {
	r := Reg(b.nextReg)
	b.nextReg++
	return r
}

func (b *Builder) emit(i Instr) { b.instrs = append(b.instrs, i) }

func (b *Builder) ShiftOp(delta int32) { b.emit(Shift{Delta: delta}) }

func (b *Builder) MovOp(dst IntoLValArg, src IntoRValArg) {
	b.emit(Mov{Dst: dst.IntoLVal(), Src: src.IntoRVal()})
}

func (b *Builder) AddOp(dst IntoLValArg, a, c IntoRValArg) {
	b.emit(Add{Dst: dst.IntoLVal(), A: a.IntoRVal(), B: c.IntoRVal()})
}

func (b *Builder) SubOp(dst IntoLValArg, a, c IntoRValArg) {
	b.emit(Sub{Dst: dst.IntoLVal(), A: a.IntoRVal(), B: c.IntoRVal()})
}

func (b *Builder) MulOp(dst IntoLValArg, a, c IntoRValArg) {
	b.emit(Mul{Dst: dst.IntoLVal(), A: a.IntoRVal(), B: c.IntoRVal()})
}

func (b *Builder) LabelOp(name string) { b.emit(Label{Name: name}) }

func (b *Builder) JpOp(target string) { b.emit(Jp{Target: target}) }

func (b *Builder) JzOp(cond IntoRValArg, target string) {
	b.emit(Jz{Cond: cond.IntoRVal(), Target: target})
}

func (b *Builder) JnzOp(cond IntoRValArg, target string) {
	b.emit(Jnz{Cond: cond.IntoRVal(), Target: target})
}

func (b *Builder) DeclareBssBufOp(name string, size int32) {
	b.emit(DeclareBssBuf{Name: name, Size: size})
}

func (b *Builder) InputOp(buf string, offset, length int32) {
	b.emit(Input{Buf: buf, Offset: offset, Len: length})
}

func (b *Builder) OutputOp(buf string, offset, length int32) {
	b.emit(Output{Buf: buf, Offset: offset, Len: length})
}

// Len reports the number of instructions emitted so far; used by callers
// that need to patch/inspect a just-emitted instruction position.
func (b *Builder) Len() int { return len(b.instrs) }

// Build consumes the Builder and yields the finished Program.
func (b *Builder) Build() *Program {
	return &Program{Instrs: b.instrs}
}

// IntoLValArg is the conversion trait accepted by builder methods that
// write to a location.
type IntoLValArg interface {
	IntoLVal() LVal
}

// IntoRValArg is the conversion trait accepted by builder methods that read
// a value; Imm satisfies it but not IntoLValArg, since an immediate is never
// writable.
type IntoRValArg interface {
	IntoRVal() RVal
}
