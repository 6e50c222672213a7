package backend

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"bfoptc/internal/compileopts"
	"bfoptc/internal/lir"
)

// LLVMIR renders LIR as LLVM IR text, suitable for piping into llc or opt.
// Label/Jp/Jz/Jnz's flat goto model is reconciled with LLVM's basic-block
// CFG by a two-pass split: first every segment boundary is identified and
// an empty ir.Block is pre-allocated for it (so forward branches resolve),
// then each block's body is filled in a second pass.
type LLVMIR struct{}

func (l *LLVMIR) Emit(w io.Writer, prog *lir.Program, opts compileopts.Options) error {
	g := newLLVMGen(opts)
	g.run(prog)
	_, err := io.WriteString(w, g.module.String())
	return err
}

type llvmGen struct {
	module  *ir.Module
	main    *ir.Func
	getchar *ir.Func
	putchar *ir.Func
	cellT   types.Type
	tape    *ir.Global
	cursor  *ir.Global
	bufs    map[string]*ir.Global
	regs    map[uint32]value.Value
	blocks  map[string]*ir.Block
}

func cellIntType(w compileopts.CellWidth) types.Type {
	switch w {
	case compileopts.Cell8:
		return types.I8
	case compileopts.Cell16:
		return types.I16
	case compileopts.Cell32:
		return types.I32
	case compileopts.Cell64:
		return types.I64
	}
	return types.I8
}

func newLLVMGen(opts compileopts.Options) *llvmGen {
	m := ir.NewModule()
	cellT := cellIntType(opts.CellWidth)

	tapeT := types.NewArray(uint64(opts.TapeSize), cellT)
	tape := m.NewGlobalDef("tape", constant.NewZeroInitializer(tapeT))
	cursor := m.NewGlobalDef("cursor", constant.NewInt(types.I64, int64(opts.TapeSize/2)))

	getchar := m.NewFunc("getchar", types.I32)
	putchar := m.NewFunc("putchar", types.I32, ir.NewParam("c", types.I32))

	main := m.NewFunc("main", types.I32)

	return &llvmGen{
		module:  m,
		main:    main,
		getchar: getchar,
		putchar: putchar,
		cellT:   cellT,
		tape:    tape,
		cursor:  cursor,
		bufs:    make(map[string]*ir.Global),
		regs:    make(map[uint32]value.Value),
		blocks:  make(map[string]*ir.Block),
	}
}

// run performs the two-pass block split: segmentLabels first names every
// block the program can branch to (entry, plus every Label, plus the
// fallthrough point right after each Jz/Jnz), pre-creating them all on
// main so forward references resolve, then fill walks the instructions
// again emitting real IR into each block in turn.
func (g *llvmGen) run(prog *lir.Program) {
	entry := g.main.NewBlock("entry")
	g.blocks["entry"] = entry

	// Optimizers append DeclareBssBuf at the tail, after the Input/Output
	// that use the buffer, so every buffer global is created up front.
	for _, instr := range prog.Instrs {
		if db, ok := instr.(lir.DeclareBssBuf); ok {
			bufT := types.NewArray(uint64(db.Size), types.I8)
			g.bufs[db.Name] = g.module.NewGlobalDef(db.Name, constant.NewZeroInitializer(bufT))
		}
	}

	fallthroughCounter := 0
	nextFallthrough := func() string {
		fallthroughCounter++
		return fmt.Sprintf("cont%d", fallthroughCounter)
	}

	var segments []llvmSegment
	segStart := 0
	curName := "entry"
	for i, instr := range prog.Instrs {
		switch v := instr.(type) {
		case lir.Label:
			segments = append(segments, llvmSegment{curName, segStart})
			curName = v.Name
			g.blocks[v.Name] = g.main.NewBlock(v.Name)
			segStart = i
		case lir.Jz, lir.Jnz:
			cont := nextFallthrough()
			segments = append(segments, llvmSegment{curName, segStart})
			curName = cont
			g.blocks[cont] = g.main.NewBlock(cont)
			segStart = i + 1
		}
	}
	segments = append(segments, llvmSegment{curName, segStart})

	for idx, seg := range segments {
		end := len(prog.Instrs)
		if idx+1 < len(segments) {
			end = segments[idx+1].start
		}
		g.fillBlock(g.blocks[seg.name], prog.Instrs[seg.start:end], segments, idx)
	}
}

// llvmSegment is one contiguous run of instructions mapped to a single
// pre-allocated ir.Block, split at Label boundaries and right after every
// conditional branch (whose implicit fallthrough becomes its own block).
type llvmSegment struct {
	name  string
	start int
}

func (g *llvmGen) fillBlock(blk *ir.Block, instrs []lir.Instr, segments []llvmSegment, segIdx int) {
	nextName := ""
	if segIdx+1 < len(segments) {
		nextName = segments[segIdx+1].name
	}

	for _, instr := range instrs {
		switch v := instr.(type) {
		case lir.Label:
			// segment boundary only; no code.
		case lir.Shift:
			cur := blk.NewLoad(types.I64, g.cursor)
			sum := blk.NewAdd(cur, constant.NewInt(types.I64, int64(v.Delta)))
			blk.NewStore(sum, g.cursor)
		case lir.Mov:
			g.store(blk, v.Dst, g.load(blk, v.Src))
		case lir.Add:
			g.store(blk, v.Dst, blk.NewAdd(g.load(blk, v.A), g.load(blk, v.B)))
		case lir.Sub:
			g.store(blk, v.Dst, blk.NewSub(g.load(blk, v.A), g.load(blk, v.B)))
		case lir.Mul:
			g.store(blk, v.Dst, blk.NewMul(g.load(blk, v.A), g.load(blk, v.B)))
		case lir.DeclareBssBuf:
			// declared up front in run.
		case lir.Input:
			for i := int32(0); i < v.Len; i++ {
				c := blk.NewCall(g.getchar)
				b := blk.NewTrunc(c, types.I8)
				ptr := blk.NewGetElementPtr(types.I8, g.bufs[v.Buf], constant.NewInt(types.I32, int64(v.Offset+i)))
				blk.NewStore(b, ptr)
			}
		case lir.Output:
			for i := int32(0); i < v.Len; i++ {
				ptr := blk.NewGetElementPtr(types.I8, g.bufs[v.Buf], constant.NewInt(types.I32, int64(v.Offset+i)))
				byteVal := blk.NewLoad(types.I8, ptr)
				ext := blk.NewSExt(byteVal, types.I32)
				blk.NewCall(g.putchar, ext)
			}
		case lir.Jp:
			blk.NewBr(g.blocks[v.Target])
			return
		case lir.Jz:
			cond := blk.NewICmp(enum.IPredEQ, g.load(blk, v.Cond), constant.NewInt(g.cellT.(*types.IntType), 0))
			blk.NewCondBr(cond, g.blocks[v.Target], g.blocks[nextName])
			return
		case lir.Jnz:
			cond := blk.NewICmp(enum.IPredNE, g.load(blk, v.Cond), constant.NewInt(g.cellT.(*types.IntType), 0))
			blk.NewCondBr(cond, g.blocks[v.Target], g.blocks[nextName])
			return
		}
	}
	if nextName != "" {
		blk.NewBr(g.blocks[nextName])
	} else {
		blk.NewRet(constant.NewInt(types.I32, 0))
	}
}

// store writes val to l: a Reg destination just records val under its
// number (registers are SSA values, never memory), while Tape/Buf compute
// an address and store through it.
func (g *llvmGen) store(blk *ir.Block, l lir.LVal, val value.Value) {
	if r, ok := l.(lir.Reg); ok {
		g.regs[uint32(r)] = val
		return
	}
	blk.NewStore(val, g.addr(blk, l))
}

// addr returns the getelementptr that l designates in memory. Reg is never
// passed here; see store.
func (g *llvmGen) addr(blk *ir.Block, l lir.LVal) value.Value {
	switch v := l.(type) {
	case lir.Tape:
		cur := blk.NewLoad(types.I64, g.cursor)
		idx := blk.NewAdd(cur, constant.NewInt(types.I64, int64(v)))
		return blk.NewGetElementPtr(g.tape.ContentType, g.tape, constant.NewInt(types.I64, 0), idx)
	case lir.Buf:
		return blk.NewGetElementPtr(types.I8, g.bufs[v.Name], constant.NewInt(types.I32, int64(v.Index)))
	}
	return nil
}

// load reads an RVal's current value: Imm is a literal constant, Reg reads
// the SSA value produced at its one definition site, and Tape/Buf are
// loaded through addr.
func (g *llvmGen) load(blk *ir.Block, rv lir.RVal) value.Value {
	switch v := rv.(type) {
	case lir.Imm:
		return constant.NewInt(g.cellT.(*types.IntType), int64(v))
	case lir.Reg:
		return g.regs[uint32(v)]
	case lir.Tape:
		return blk.NewLoad(g.cellT, g.addr(blk, v))
	case lir.Buf:
		return blk.NewLoad(types.I8, g.addr(blk, v))
	}
	return nil
}
